package memsim

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/roach88/scratchbench/internal/sim"
)

// DefaultTick matches the VM's 30 frames per second.
const DefaultTick = time.Second / 30

// Step advances one program by one tick.
type Step func(w *World, dt time.Duration)

// Program is a green-flag script. It is invoked on every Start to set up its
// state and returns the Step run on each subsequent tick. Per-run state lives
// in the returned closure, so a restart always begins from scratch.
type Program func(w *World) Step

// SpriteSpec declares a sprite's initial state. A zero Direction means 90
// (pointing right) and a zero Radius means 20.
type SpriteSpec struct {
	Name      string
	X, Y      float64
	Direction float64
	Costumes  []string
	Radius    float64
	Vars      map[string]any
	Lists     map[string][]any
}

// Option configures a Sim.
type Option func(*Sim)

// WithTick sets the tick period.
func WithTick(d time.Duration) Option {
	return func(s *Sim) {
		if d > 0 {
			s.tick = d
		}
	}
}

// WithManualTicks disables the background ticker; the caller drives the
// simulation with Advance.
func WithManualTicks() Option {
	return func(s *Sim) { s.manual = true }
}

// WithSprite adds a sprite.
func WithSprite(spec SpriteSpec) Option {
	return func(s *Sim) {
		sp := &Sprite{
			Name:      spec.Name,
			X:         spec.X,
			Y:         spec.Y,
			Direction: spec.Direction,
			Costumes:  append([]string(nil), spec.Costumes...),
			Visible:   true,
			Size:      100,
			Radius:    spec.Radius,
			Vars:      map[string]any{},
			Lists:     map[string][]any{},
		}
		if sp.Direction == 0 {
			sp.Direction = 90
		}
		if sp.Radius == 0 {
			sp.Radius = 20
		}
		for k, v := range spec.Vars {
			sp.Vars[k] = v
		}
		for k, v := range spec.Lists {
			sp.Lists[k] = append([]any(nil), v...)
		}
		s.world.sprites = append(s.world.sprites, sp)
	}
}

// WithGlobal declares a stage (global) variable.
func WithGlobal(name string, v any) Option {
	return func(s *Sim) { s.world.Stage.Vars[name] = v }
}

// WithGlobalList declares a stage (global) list.
func WithGlobalList(name string, items ...any) Option {
	return func(s *Sim) { s.world.Stage.Lists[name] = append([]any(nil), items...) }
}

// WithProgram adds a green-flag program.
func WithProgram(p Program) Option {
	return func(s *Sim) { s.programs = append(s.programs, p) }
}

// Sim implements sim.Handle in process.
type Sim struct {
	mu sync.Mutex

	tick     time.Duration
	manual   bool
	world    *World
	programs []Program
	steps    []Step
	running  bool

	stopCh chan struct{}
	doneCh chan struct{}

	subs   map[sim.EventKind]map[sim.SubscriptionID]sim.Handler
	nextID sim.SubscriptionID

	inputs []sim.InputEvent
}

var _ sim.Handle = (*Sim)(nil)

// New creates a stopped simulation.
func New(opts ...Option) *Sim {
	s := &Sim{
		tick: DefaultTick,
		world: &World{
			Stage: &Sprite{Name: "Stage", Visible: true, Vars: map[string]any{}, Lists: map[string][]any{}},
			keys:  map[string]bool{},
			now:   time.Now,
		},
		subs: map[sim.EventKind]map[sim.SubscriptionID]sim.Handler{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start (re)runs every program from its init function. Starting a running
// simulation restarts it, as the green flag does.
func (s *Sim) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.halt()

	s.mu.Lock()
	s.world.elapsed = 0
	s.world.question = nil
	s.world.answer = nil
	s.steps = s.steps[:0]
	for _, p := range s.programs {
		if step := p(s.world); step != nil {
			s.steps = append(s.steps, step)
		}
	}
	s.running = true
	if !s.manual {
		s.stopCh = make(chan struct{})
		s.doneCh = make(chan struct{})
		go s.loop(s.stopCh, s.doneCh)
	}
	events, handlers := s.collectLocked()
	s.mu.Unlock()

	dispatch(events, handlers)
	return nil
}

// Stop halts all programs and clears any pending question.
func (s *Sim) Stop(ctx context.Context) error {
	s.halt()
	s.mu.Lock()
	s.world.question = nil
	s.mu.Unlock()
	return ctx.Err()
}

func (s *Sim) halt() {
	s.mu.Lock()
	s.running = false
	stopCh, doneCh := s.stopCh, s.doneCh
	s.stopCh, s.doneCh = nil, nil
	s.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-doneCh
	}
}

func (s *Sim) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.Advance(1)
		}
	}
}

// Advance steps a running simulation n ticks. It is what the background
// ticker calls; with WithManualTicks tests call it directly.
func (s *Sim) Advance(n int) {
	for i := 0; i < n; i++ {
		s.mu.Lock()
		if !s.running {
			s.mu.Unlock()
			return
		}
		s.world.elapsed += s.tick
		for _, step := range s.steps {
			step(s.world, s.tick)
		}
		events, handlers := s.collectLocked()
		s.mu.Unlock()

		dispatch(events, handlers)
	}
}

type boundHandler struct {
	kind sim.EventKind
	fn   sim.Handler
}

func (s *Sim) collectLocked() ([]sim.Event, []boundHandler) {
	events := s.world.drain()
	if len(events) == 0 {
		return nil, nil
	}
	var handlers []boundHandler
	kinds := make([]sim.EventKind, 0, len(s.subs))
	for k := range s.subs {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	for _, k := range kinds {
		ids := make([]sim.SubscriptionID, 0, len(s.subs[k]))
		for id := range s.subs[k] {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			handlers = append(handlers, boundHandler{kind: k, fn: s.subs[k][id]})
		}
	}
	return events, handlers
}

func dispatch(events []sim.Event, handlers []boundHandler) {
	for _, ev := range events {
		for _, h := range handlers {
			if h.kind == ev.Kind {
				h.fn(ev)
			}
		}
	}
}

// Actors lists the stage followed by every sprite.
func (s *Sim) Actors(ctx context.Context) ([]sim.Actor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	actors := []sim.Actor{{ID: "stage", Name: s.world.Stage.Name, IsStage: true}}
	for _, sp := range s.world.sprites {
		actors = append(actors, sim.Actor{ID: spriteID(sp.Name), Name: sp.Name})
	}
	return actors, nil
}

func spriteID(name string) string {
	return "sprite:" + name
}

func (s *Sim) lookupLocked(actor sim.Actor) (*Sprite, error) {
	if actor.IsStage || actor.ID == "stage" {
		return s.world.Stage, nil
	}
	for _, sp := range s.world.sprites {
		if spriteID(sp.Name) == actor.ID {
			return sp, nil
		}
	}
	return nil, &sim.NotFoundError{Kind: sim.NotFoundActor, Name: actor.Name}
}

// ReadField reads one field of an actor.
func (s *Sim) ReadField(ctx context.Context, actor sim.Actor, field sim.Field) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sp, err := s.lookupLocked(actor)
	if err != nil {
		return nil, err
	}

	switch field {
	case sim.FieldX:
		return sp.X, nil
	case sim.FieldY:
		return sp.Y, nil
	case sim.FieldDirection:
		return sp.Direction, nil
	case sim.FieldCostume:
		return sp.Costume, nil
	case sim.FieldCostumeName:
		return sp.CostumeName(), nil
	case sim.FieldVisible:
		return sp.Visible, nil
	case sim.FieldGhost:
		return sp.Ghost, nil
	case sim.FieldSize:
		return sp.Size, nil
	default:
		return nil, fmt.Errorf("unknown field %q", field)
	}
}

// Variables lists an actor's variables (sorted by name) followed by its lists.
func (s *Sim) Variables(ctx context.Context, actor sim.Actor) ([]sim.Variable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sp, err := s.lookupLocked(actor)
	if err != nil {
		return nil, err
	}

	vars := make([]sim.Variable, 0, len(sp.Vars)+len(sp.Lists))
	for name, v := range sp.Vars {
		vars = append(vars, sim.Variable{ID: "var:" + name, Name: name, Value: v})
	}
	for name, items := range sp.Lists {
		vars = append(vars, sim.Variable{ID: "list:" + name, Name: name, Kind: sim.KindList, Value: append([]any(nil), items...)})
	}
	sort.Slice(vars, func(i, j int) bool {
		if vars[i].Kind != vars[j].Kind {
			return vars[i].Kind < vars[j].Kind
		}
		return vars[i].Name < vars[j].Name
	})
	return vars, nil
}

// Subscribe registers h for events of kind.
func (s *Sim) Subscribe(kind sim.EventKind, h sim.Handler) (sim.SubscriptionID, error) {
	if h == nil {
		return 0, fmt.Errorf("subscribe %s: nil handler", kind)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	if s.subs[kind] == nil {
		s.subs[kind] = map[sim.SubscriptionID]sim.Handler{}
	}
	s.subs[kind][s.nextID] = h
	return s.nextID, nil
}

// Unsubscribe removes a handler; unknown ids are ignored.
func (s *Sim) Unsubscribe(kind sim.EventKind, id sim.SubscriptionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.subs[kind], id)
	if len(s.subs[kind]) == 0 {
		delete(s.subs, kind)
	}
	return nil
}

// PostInput applies one input event to the world.
func (s *Sim) PostInput(ctx context.Context, ev sim.InputEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.inputs = append(s.inputs, ev)
	w := s.world

	switch ev.Device {
	case sim.DeviceKeyboard:
		if ev.Key == "" {
			s.mu.Unlock()
			return fmt.Errorf("keyboard event without key")
		}
		if ev.IsDown {
			w.keys[ev.Key] = true
		} else {
			delete(w.keys, ev.Key)
		}
	case sim.DeviceMouse:
		w.mouseX, w.mouseY = ev.X, ev.Y
		if !ev.Move {
			if !ev.IsDown && w.mouseDown {
				w.clicked = true
			}
			w.mouseDown = ev.IsDown
		}
	case sim.DeviceAnswer:
		if w.question != nil {
			text := ev.Text
			w.answer = &text
			asker := w.question.asker
			w.question = nil
			w.emit(sim.Event{Kind: sim.EventAnswer, Actor: asker, Text: text})
		}
	default:
		s.mu.Unlock()
		return fmt.Errorf("unknown input device %q", ev.Device)
	}

	events, handlers := s.collectLocked()
	s.mu.Unlock()

	dispatch(events, handlers)
	return nil
}

// Do runs fn against the world under the simulation lock, for tests that
// need to mutate state mid-run.
func (s *Sim) Do(fn func(w *World)) {
	s.mu.Lock()
	fn(s.world)
	events, handlers := s.collectLocked()
	s.mu.Unlock()

	dispatch(events, handlers)
}

// Running reports whether programs are being stepped.
func (s *Sim) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// HeldKeys returns the keys currently held, sorted.
func (s *Sim) HeldKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.world.heldKeys()
}

// MouseDown reports whether the mouse button is held.
func (s *Sim) MouseDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.world.mouseDown
}

// ListenerCount returns the number of registered event handlers.
func (s *Sim) ListenerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.subs {
		n += len(m)
	}
	return n
}

// Inputs returns every input event posted so far.
func (s *Sim) Inputs() []sim.InputEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sim.InputEvent(nil), s.inputs...)
}

// Snapshot returns a copy of a sprite's current state, or nil.
func (s *Sim) Snapshot(name string) *Sprite {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sp := s.world.Sprite(name); sp != nil {
		return sp.clone()
	}
	return nil
}
