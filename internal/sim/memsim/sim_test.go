package memsim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scratchbench/internal/sim"
)

func walker() Program {
	return func(w *World) Step {
		cat := w.Sprite("Cat")
		cat.X, cat.Y = 0, 0
		cat.Direction = 90
		return func(w *World, dt time.Duration) {
			cat.Move(10)
			cat.BounceOnEdge()
		}
	}
}

func TestSim_ManualAdvanceMovesSprite(t *testing.T) {
	ctx := context.Background()
	s := New(WithManualTicks(), WithSprite(SpriteSpec{Name: "Cat"}), WithProgram(walker()))

	require.NoError(t, s.Start(ctx))
	s.Advance(3)

	actors, err := s.Actors(ctx)
	require.NoError(t, err)
	require.Len(t, actors, 2)
	assert.True(t, actors[0].IsStage)

	x, err := s.ReadField(ctx, actors[1], sim.FieldX)
	require.NoError(t, err)
	assert.InDelta(t, 30.0, x.(float64), 1e-9)
}

func TestSim_BounceReversesDirection(t *testing.T) {
	ctx := context.Background()
	s := New(WithManualTicks(), WithSprite(SpriteSpec{Name: "Cat"}), WithProgram(walker()))

	require.NoError(t, s.Start(ctx))
	s.Advance(25) // 250 units to the right overshoots the 220 edge

	snap := s.Snapshot("Cat")
	require.NotNil(t, snap)
	assert.Equal(t, -90.0, snap.Direction)
}

func TestSim_RestartRunsInitAgain(t *testing.T) {
	ctx := context.Background()
	s := New(WithManualTicks(), WithSprite(SpriteSpec{Name: "Cat"}), WithProgram(walker()))

	require.NoError(t, s.Start(ctx))
	s.Advance(5)
	require.NoError(t, s.Start(ctx))

	assert.Equal(t, 0.0, s.Snapshot("Cat").X)
}

func TestSim_StopHaltsStepping(t *testing.T) {
	ctx := context.Background()
	s := New(WithManualTicks(), WithSprite(SpriteSpec{Name: "Cat"}), WithProgram(walker()))

	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Stop(ctx))
	s.Advance(5)

	assert.False(t, s.Running())
	assert.Equal(t, 0.0, s.Snapshot("Cat").X)
}

func TestSim_BackgroundTicker(t *testing.T) {
	ctx := context.Background()
	s := New(WithTick(5*time.Millisecond), WithSprite(SpriteSpec{Name: "Cat"}), WithProgram(walker()))

	require.NoError(t, s.Start(ctx))
	defer s.Stop(ctx)

	assert.Eventually(t, func() bool { return s.Snapshot("Cat").X > 0 }, time.Second, 5*time.Millisecond)
}

func TestSim_KeyboardAndMouseState(t *testing.T) {
	ctx := context.Background()
	s := New(WithManualTicks())

	require.NoError(t, s.PostInput(ctx, sim.InputEvent{Device: sim.DeviceKeyboard, Key: "ArrowRight", IsDown: true}))
	assert.Equal(t, []string{"ArrowRight"}, s.HeldKeys())
	require.NoError(t, s.PostInput(ctx, sim.InputEvent{Device: sim.DeviceKeyboard, Key: "ArrowRight"}))
	assert.Empty(t, s.HeldKeys())

	require.NoError(t, s.PostInput(ctx, sim.InputEvent{Device: sim.DeviceMouse, X: 10, Y: 20, IsDown: true}))
	assert.True(t, s.MouseDown())
	require.NoError(t, s.PostInput(ctx, sim.InputEvent{Device: sim.DeviceMouse, X: 10, Y: 20, Move: true}))
	assert.True(t, s.MouseDown(), "a move must not release the button")
	require.NoError(t, s.PostInput(ctx, sim.InputEvent{Device: sim.DeviceMouse, X: 10, Y: 20}))
	assert.False(t, s.MouseDown())

	var clicked bool
	s.Do(func(w *World) {
		x, y, ok := w.TakeClick()
		clicked = ok && x == 10 && y == 20
	})
	assert.True(t, clicked)

	assert.Len(t, s.Inputs(), 5)
}

func TestSim_UnknownDevice(t *testing.T) {
	err := New().PostInput(context.Background(), sim.InputEvent{Device: "gamepad"})
	assert.Error(t, err)
}

func TestSim_QuestionAnswerEvents(t *testing.T) {
	ctx := context.Background()
	var answered string
	s := New(WithManualTicks(),
		WithSprite(SpriteSpec{Name: "Cat"}),
		WithProgram(func(w *World) Step {
			w.Ask(w.Sprite("Cat"), "What's your name?")
			return func(w *World, dt time.Duration) {
				if a, ok := w.TakeAnswer(); ok {
					answered = a
					w.Say(w.Sprite("Cat"), "Hello "+a+"!")
				}
			}
		}),
	)

	var events []sim.Event
	for _, kind := range []sim.EventKind{sim.EventQuestion, sim.EventAnswer, sim.EventSay} {
		_, err := s.Subscribe(kind, func(ev sim.Event) { events = append(events, ev) })
		require.NoError(t, err)
	}
	assert.Equal(t, 3, s.ListenerCount())

	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.PostInput(ctx, sim.InputEvent{Device: sim.DeviceAnswer, Text: "Ada"}))
	s.Advance(1)

	assert.Equal(t, "Ada", answered)
	require.Len(t, events, 3)
	assert.Equal(t, sim.EventQuestion, events[0].Kind)
	assert.Equal(t, sim.EventAnswer, events[1].Kind)
	assert.Equal(t, "Hello Ada!", events[2].Text)
}

func TestSim_Unsubscribe(t *testing.T) {
	s := New()
	id, err := s.Subscribe(sim.EventSay, func(sim.Event) {})
	require.NoError(t, err)

	require.NoError(t, s.Unsubscribe(sim.EventSay, id))
	require.NoError(t, s.Unsubscribe(sim.EventSay, id))
	assert.Equal(t, 0, s.ListenerCount())

	_, err = s.Subscribe(sim.EventSay, nil)
	assert.Error(t, err)
}

func TestSim_RemovedSpriteIsNotFound(t *testing.T) {
	ctx := context.Background()
	s := New(WithManualTicks(), WithSprite(SpriteSpec{Name: "Cat"}))
	actors, err := s.Actors(ctx)
	require.NoError(t, err)
	cat := actors[1]

	s.Do(func(w *World) { w.RemoveSprite("Cat") })

	_, err = s.ReadField(ctx, cat, sim.FieldX)
	assert.True(t, sim.IsNotFound(err))
}

func TestSim_Variables(t *testing.T) {
	ctx := context.Background()
	s := New(
		WithSprite(SpriteSpec{Name: "Cat", Vars: map[string]any{"speed": 5.0}}),
		WithGlobal("score", 0.0),
		WithGlobalList("items", "a", "b"),
	)

	stage := sim.Actor{ID: "stage", IsStage: true}
	vars, err := s.Variables(ctx, stage)
	require.NoError(t, err)
	require.Len(t, vars, 2)
	assert.Equal(t, "score", vars[0].Name)
	assert.Equal(t, sim.KindList, vars[1].Kind)
	assert.Equal(t, []any{"a", "b"}, vars[1].Value)

	vars, err = s.Variables(ctx, sim.Actor{ID: "sprite:Cat", Name: "Cat"})
	require.NoError(t, err)
	require.Len(t, vars, 1)
	assert.Equal(t, 5.0, vars[0].Value)
}

func TestSprite_CostumeHelpers(t *testing.T) {
	sp := &Sprite{Costumes: []string{"light-off", "light-on"}}
	assert.Equal(t, "light-off", sp.CostumeName())
	sp.SwitchCostume("light-on")
	assert.Equal(t, 1, sp.Costume)
	sp.SwitchCostume("missing")
	assert.Equal(t, 1, sp.Costume)
}

func TestNormalizeDirection(t *testing.T) {
	assert.Equal(t, -90.0, normalizeDirection(270))
	assert.Equal(t, 180.0, normalizeDirection(-180))
	assert.Equal(t, 90.0, normalizeDirection(450))
}
