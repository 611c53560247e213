package sampler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scratchbench/internal/sim"
	"github.com/roach88/scratchbench/internal/sim/memsim"
)

func newWorld(opts ...memsim.Option) *Sampler {
	return New(memsim.New(opts...))
}

func TestResolve_ExactNameFirst(t *testing.T) {
	s := newWorld(
		memsim.WithSprite(memsim.SpriteSpec{Name: "Sprite1"}),
		memsim.WithSprite(memsim.SpriteSpec{Name: "Cat"}),
	)

	a, err := s.Resolve(context.Background(), ActorQuery{Name: "Cat", Aliases: []string{"Sprite1"}})
	require.NoError(t, err)
	assert.Equal(t, "Cat", a.Name)
}

func TestResolve_AliasFallback(t *testing.T) {
	s := newWorld(
		memsim.WithSprite(memsim.SpriteSpec{Name: "Ball"}),
		memsim.WithSprite(memsim.SpriteSpec{Name: "Sprite1"}),
	)

	a, err := s.Resolve(context.Background(), ActorQuery{Name: "Cat", Aliases: []string{"Kitty", "Sprite1"}})
	require.NoError(t, err)
	assert.Equal(t, "Sprite1", a.Name)
}

func TestResolve_SingleActorFallback(t *testing.T) {
	s := newWorld(memsim.WithSprite(memsim.SpriteSpec{Name: "Whatever"}))

	a, err := s.Resolve(context.Background(), ActorQuery{Name: "Cat", SingleActorFallback: true})
	require.NoError(t, err)
	assert.Equal(t, "Whatever", a.Name)

	_, err = s.Resolve(context.Background(), ActorQuery{Name: "Cat"})
	assert.True(t, sim.IsNotFound(err), "fallback must be opt-in")
}

func TestResolve_SingleActorFallbackNeedsExactlyOne(t *testing.T) {
	s := newWorld(
		memsim.WithSprite(memsim.SpriteSpec{Name: "A"}),
		memsim.WithSprite(memsim.SpriteSpec{Name: "B"}),
	)

	_, err := s.Resolve(context.Background(), ActorQuery{Name: "Cat", Aliases: []string{"Kitty"}, SingleActorFallback: true})
	var nf *sim.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, sim.NotFoundActor, nf.Kind)
	assert.Equal(t, []string{"Cat", "Kitty", "<single sprite>"}, nf.Tried)
}

func TestResolve_NeverMatchesStageByName(t *testing.T) {
	s := newWorld()
	_, err := s.Resolve(context.Background(), ActorQuery{Name: "Cat", SingleActorFallback: true})
	assert.True(t, sim.IsNotFound(err))

	stage, err := s.Resolve(context.Background(), Stage())
	require.NoError(t, err)
	assert.True(t, stage.IsStage)
}

func TestReadPositionHeadingCostume(t *testing.T) {
	ctx := context.Background()
	s := newWorld(memsim.WithSprite(memsim.SpriteSpec{
		Name: "Cat", X: 12, Y: -7, Direction: -90, Costumes: []string{"a", "b"},
	}))
	q := ActorQuery{Name: "Cat"}

	pos, err := s.ReadPosition(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, Position{X: 12, Y: -7}, pos)

	heading, err := s.ReadHeading(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, -90.0, heading)

	idx, err := s.ReadCostumeIndex(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	_, err = s.ReadPosition(ctx, ActorQuery{Name: "Dog"})
	assert.True(t, sim.IsNotFound(err))
}

func TestReadVariable_CaseInsensitiveLocalBeforeGlobal(t *testing.T) {
	ctx := context.Background()
	s := newWorld(
		memsim.WithSprite(memsim.SpriteSpec{Name: "Cat", Vars: map[string]any{"Score": 7.0}}),
		memsim.WithGlobal("score", 100.0),
		memsim.WithGlobal("Timer Left", 3.0),
	)

	v, err := s.ReadVariable(ctx, ActorQuery{Name: "Cat"}, "SCORE")
	require.NoError(t, err)
	assert.Equal(t, 7.0, v, "actor-local scope wins")

	v, err = s.ReadVariable(ctx, ActorQuery{Name: "Cat"}, "timer left")
	require.NoError(t, err)
	assert.Equal(t, 3.0, v, "falls back to the stage")

	v, err = s.ReadVariable(ctx, ActorQuery{}, "score")
	require.NoError(t, err)
	assert.Equal(t, 100.0, v, "zero scope reads globals")

	v, err = s.ReadVariable(ctx, ActorQuery{Name: "Missing"}, "score")
	require.NoError(t, err)
	assert.Equal(t, 100.0, v, "unresolved scope still searches the stage")

	_, err = s.ReadVariable(ctx, ActorQuery{Name: "Cat"}, "lives")
	var nf *sim.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, sim.NotFoundVariable, nf.Kind)
}

func TestReadList(t *testing.T) {
	ctx := context.Background()
	s := newWorld(memsim.WithGlobalList("Items", "x", "y"))

	items, err := s.ReadList(ctx, Stage(), "items")
	require.NoError(t, err)
	assert.Equal(t, []any{"x", "y"}, items)

	_, err = s.ReadList(ctx, Stage(), "missing")
	var nf *sim.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, sim.NotFoundList, nf.Kind)
}

func TestSnapshot(t *testing.T) {
	s := newWorld(memsim.WithSprite(memsim.SpriteSpec{Name: "Cat", X: 1, Y: 2}))

	values, err := s.Snapshot(context.Background(), ActorQuery{Name: "Cat"}, sim.FieldX, sim.FieldY, sim.FieldVisible)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": 1.0, "y": 2.0, "visible": true}, values)
}
