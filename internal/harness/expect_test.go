package harness

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scratchbench/internal/input"
	"github.com/roach88/scratchbench/internal/observe"
	"github.com/roach88/scratchbench/internal/sampler"
	"github.com/roach88/scratchbench/internal/sim"
	"github.com/roach88/scratchbench/internal/sim/memsim"
)

func testEnv(t *testing.T, s *memsim.Sim) *Env {
	t.Helper()
	rec, err := observe.Record(s, sim.EventSay)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rec.Release() })

	return &Env{
		Sim:     s,
		Input:   input.New(s, testLogger()),
		Sampler: sampler.New(s),
		Log:     testLogger(),
		Actor:   sampler.ActorQuery{Name: "Cat"},
		Events:  rec,
	}
}

func costumeSim() *memsim.Sim {
	return memsim.New(
		memsim.WithManualTicks(),
		memsim.WithSprite(memsim.SpriteSpec{
			Name:     "Cat",
			Costumes: []string{"light-off", "light-on"},
			Vars:     map[string]any{"count": 3.0},
		}),
		memsim.WithGlobal("answer", "Ada"),
	)
}

func TestExpectation_HistoryKinds(t *testing.T) {
	h := observe.FromValues("x", 100*time.Millisecond, 0.0, 5.0, 10.0, 15.0)
	env := testEnv(t, newSim())
	ctx := context.Background()

	tests := []struct {
		name   string
		expect Expectation
		passed bool
	}{
		{"displacement", Expectation{Displacement: &DisplacementExpect{Field: "x", Epsilon: 1}}, true},
		{"displacement too small", Expectation{Displacement: &DisplacementExpect{Field: "x", Epsilon: 20}}, false},
		{"alignment right", Expectation{Alignment: &AlignmentExpect{Field: "x", Sign: 1, MinRatio: 1, MinFrames: 3}}, true},
		{"alignment left", Expectation{Alignment: &AlignmentExpect{Field: "x", Sign: -1, MinRatio: 0.5}}, false},
		{"ladder", Expectation{Ladder: &LadderExpect{Field: "x", Values: []float64{0, 10}}}, true},
		{"transition", Expectation{Transition: &TransitionExpect{Field: "x", From: 5, To: 10}}, true},
		{"transition absent", Expectation{Transition: &TransitionExpect{Field: "x", From: 15, To: 0}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := tt.expect.evaluate(ctx, env, h)
			require.NoError(t, err)
			assert.Equal(t, tt.passed, v.Passed, "%+v", v.Meta)
			k, _ := tt.expect.kind()
			assert.Equal(t, k, v.Meta["kind"])
		})
	}
}

func TestExpectation_StateKinds(t *testing.T) {
	s := costumeSim()
	s.Do(func(w *memsim.World) { w.Sprite("Cat").SwitchCostume("light-on") })
	env := testEnv(t, s)
	ctx := context.Background()

	tests := []struct {
		name   string
		expect Expectation
		passed bool
	}{
		{"costume by name", Expectation{Costume: &CostumeExpect{Equals: "light-on"}}, true},
		{"costume by index", Expectation{Costume: &CostumeExpect{Equals: 1}}, true},
		{"wrong costume", Expectation{Costume: &CostumeExpect{Equals: "light-off"}}, false},
		{"local variable", Expectation{Variable: &VariableExpect{Name: "count", Equals: "3"}}, true},
		{"global variable", Expectation{Variable: &VariableExpect{Name: "answer", Equals: "ada", CaseInsensitive: true}}, true},
		{"global variable case sensitive", Expectation{Variable: &VariableExpect{Name: "answer", Equals: "ada"}}, false},
		{"missing variable", Expectation{Variable: &VariableExpect{Name: "score", Equals: 1}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := tt.expect.evaluate(ctx, env, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.passed, v.Passed, "%+v", v.Meta)
		})
	}
}

func TestExpectation_MissingSpriteFails(t *testing.T) {
	env := testEnv(t, costumeSim())
	env.Actor = sampler.ActorQuery{Name: "Dog"}

	v, err := Expectation{Costume: &CostumeExpect{Equals: 0}}.evaluate(context.Background(), env, nil)
	require.NoError(t, err)
	assert.False(t, v.Passed)
	assert.Contains(t, v.Reason(), "Dog")
}

func TestExpectation_Say(t *testing.T) {
	s := newSim()
	env := testEnv(t, s)
	s.Do(func(w *memsim.World) {
		w.Say(w.Sprite("Cat"), "Meow")
		w.Say(w.Sprite("Cat"), "Hello Ada!")
	})

	v, err := Expectation{Say: &SayExpect{Text: "hello ada!", CaseInsensitive: true}}.evaluate(context.Background(), env, nil)
	require.NoError(t, err)
	assert.True(t, v.Passed)
	assert.Equal(t, 1, v.Meta["index"])

	v, err = Expectation{Say: &SayExpect{Text: "Bye"}}.evaluate(context.Background(), env, nil)
	require.NoError(t, err)
	assert.False(t, v.Passed)
}

func TestExpectation_Empty(t *testing.T) {
	_, err := Expectation{}.evaluate(context.Background(), testEnv(t, newSim()), nil)
	var ee *ExpectationError
	require.True(t, errors.As(err, &ee))
	assert.Contains(t, ee.Error(), "empty expectation")
}

func TestSampleFields(t *testing.T) {
	s := costumeSim()
	env := testEnv(t, s)

	sample := SampleFields(env, []string{"x", "costume_name", "var:count", "var:answer"})
	values, err := sample(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0.0, values["x"])
	assert.Equal(t, "light-off", values["costume_name"])
	assert.Equal(t, 3.0, values["var:count"])
	assert.Equal(t, "Ada", values["var:answer"])

	env.Actor = sampler.ActorQuery{Name: "Dog"}
	_, err = sample(context.Background())
	assert.True(t, sim.IsNotFound(err))
}
