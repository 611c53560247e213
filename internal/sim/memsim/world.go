package memsim

import (
	"math"
	"sort"
	"time"

	"github.com/roach88/scratchbench/internal/sim"
)

// Stage extents in stage coordinates (origin at the centre).
const (
	StageWidth  = 480
	StageHeight = 360
	StageMaxX   = StageWidth / 2
	StageMaxY   = StageHeight / 2
)

// Sprite is the mutable state of one actor.
type Sprite struct {
	Name      string
	X, Y      float64
	Direction float64
	Costumes  []string
	Costume   int
	Visible   bool
	Ghost     float64
	Size      float64

	// Radius is the half-extent used for edge and click hit tests.
	Radius float64

	Vars  map[string]any
	Lists map[string][]any
}

func (s *Sprite) clone() *Sprite {
	c := *s
	c.Costumes = append([]string(nil), s.Costumes...)
	c.Vars = make(map[string]any, len(s.Vars))
	for k, v := range s.Vars {
		c.Vars[k] = v
	}
	c.Lists = make(map[string][]any, len(s.Lists))
	for k, v := range s.Lists {
		c.Lists[k] = append([]any(nil), v...)
	}
	return &c
}

// Move advances the sprite steps units along its direction (90 is right,
// 0 is up).
func (s *Sprite) Move(steps float64) {
	rad := s.Direction * math.Pi / 180
	s.X += steps * math.Sin(rad)
	s.Y += steps * math.Cos(rad)
}

// BounceOnEdge reflects the sprite's direction when it touches a stage edge
// and pulls it back inside the stage.
func (s *Sprite) BounceOnEdge() {
	maxX := StageMaxX - s.Radius
	maxY := StageMaxY - s.Radius
	switch {
	case s.X > maxX:
		s.X = maxX
		s.Direction = normalizeDirection(-s.Direction)
	case s.X < -maxX:
		s.X = -maxX
		s.Direction = normalizeDirection(-s.Direction)
	}
	switch {
	case s.Y > maxY:
		s.Y = maxY
		s.Direction = normalizeDirection(180 - s.Direction)
	case s.Y < -maxY:
		s.Y = -maxY
		s.Direction = normalizeDirection(180 - s.Direction)
	}
}

// Contains reports whether a stage point lies within the sprite's hit box.
func (s *Sprite) Contains(x, y float64) bool {
	return s.Visible && math.Abs(x-s.X) <= s.Radius && math.Abs(y-s.Y) <= s.Radius
}

// SwitchCostume selects a costume by name; unknown names are ignored.
func (s *Sprite) SwitchCostume(name string) {
	for i, c := range s.Costumes {
		if c == name {
			s.Costume = i
			return
		}
	}
}

// CostumeName returns the current costume's name, or "" without costumes.
func (s *Sprite) CostumeName() string {
	if s.Costume < 0 || s.Costume >= len(s.Costumes) {
		return ""
	}
	return s.Costumes[s.Costume]
}

// normalizeDirection wraps a heading into (-180, 180].
func normalizeDirection(d float64) float64 {
	d = math.Mod(d, 360)
	if d > 180 {
		d -= 360
	}
	if d <= -180 {
		d += 360
	}
	return d
}

// World is the state programs read and mutate on each tick. All World
// methods are called with the Sim lock held; programs must not retain the
// World beyond the call that received it.
type World struct {
	Stage   *Sprite
	sprites []*Sprite

	keys      map[string]bool
	mouseX    float64
	mouseY    float64
	mouseDown bool
	clicked   bool

	elapsed time.Duration

	question *pendingQuestion
	answer   *string

	emitted []sim.Event
	now     func() time.Time
}

type pendingQuestion struct {
	asker string
	text  string
}

// Sprite returns the named sprite, or nil.
func (w *World) Sprite(name string) *Sprite {
	for _, s := range w.sprites {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// RemoveSprite deletes a sprite from the world (a "delete this clone").
func (w *World) RemoveSprite(name string) {
	out := w.sprites[:0]
	for _, s := range w.sprites {
		if s.Name != name {
			out = append(out, s)
		}
	}
	w.sprites = out
}

// Global reads a stage (global) variable.
func (w *World) Global(name string) any {
	return w.Stage.Vars[name]
}

// SetGlobal writes a stage (global) variable.
func (w *World) SetGlobal(name string, v any) {
	w.Stage.Vars[name] = v
}

// KeyPressed reports whether a key is currently held.
func (w *World) KeyPressed(key string) bool {
	return w.keys[key]
}

// Mouse returns the pointer position and button state.
func (w *World) Mouse() (x, y float64, down bool) {
	return w.mouseX, w.mouseY, w.mouseDown
}

// TakeClick reports a completed press since the last call and consumes it.
func (w *World) TakeClick() (x, y float64, ok bool) {
	if !w.clicked {
		return 0, 0, false
	}
	w.clicked = false
	return w.mouseX, w.mouseY, true
}

// Elapsed is the simulated time since the last Start.
func (w *World) Elapsed() time.Duration {
	return w.elapsed
}

// Say makes a sprite emit text.
func (w *World) Say(s *Sprite, text string) {
	w.emit(sim.Event{Kind: sim.EventSay, Actor: s.Name, Text: text})
}

// Ask makes a sprite ask a question; the answer is collected with TakeAnswer.
func (w *World) Ask(s *Sprite, text string) {
	w.question = &pendingQuestion{asker: s.Name, text: text}
	w.answer = nil
	w.emit(sim.Event{Kind: sim.EventQuestion, Actor: s.Name, Text: text})
}

// Asking reports whether a question is waiting for an answer.
func (w *World) Asking() bool {
	return w.question != nil
}

// TakeAnswer returns the answer to the last question once one was given.
func (w *World) TakeAnswer() (string, bool) {
	if w.answer == nil {
		return "", false
	}
	a := *w.answer
	w.answer = nil
	return a, true
}

func (w *World) emit(ev sim.Event) {
	ev.At = w.now()
	w.emitted = append(w.emitted, ev)
}

func (w *World) drain() []sim.Event {
	out := w.emitted
	w.emitted = nil
	return out
}

func (w *World) heldKeys() []string {
	var keys []string
	for k, down := range w.keys {
		if down {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
