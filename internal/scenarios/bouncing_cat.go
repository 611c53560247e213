package scenarios

import (
	"context"
	"time"

	"github.com/roach88/scratchbench/internal/harness"
	"github.com/roach88/scratchbench/internal/sim/memsim"
	"github.com/roach88/scratchbench/internal/verdict"
)

const bouncingCatDescription = "the cat walks across the stage and turns around at the edge"

var bouncingCatEntry = Entry{
	Name:        "bouncing_cat",
	Description: bouncingCatDescription,
	Build:       bouncingCat,
	Reference:   bouncingCatWorld,
}

func bouncingCat() *harness.Scenario {
	return &harness.Scenario{
		Name:         "bouncing_cat",
		Description:  bouncingCatDescription,
		Sprite:       "Cat",
		Aliases:      []string{"Sprite1"},
		SingleSprite: true,
		Cases: []harness.Case{
			{
				Name:    "moves",
				Restart: true,
				Body: func(ctx context.Context, env *harness.Env) (verdict.Verdict, error) {
					h, err := observeFields(ctx, env, env.Config.Millis("move_ms", time.Second), 100*time.Millisecond, "x", "y")
					if err != nil {
						return verdict.Verdict{}, err
					}
					return verdict.Any(
						verdict.Displacement(h, "x", 5),
						verdict.Displacement(h, "y", 5),
					), nil
				},
			},
			{
				Name:    "bounces_at_edge",
				Restart: true,
				Body: func(ctx context.Context, env *harness.Env) (verdict.Verdict, error) {
					h, err := observeFields(ctx, env, env.Config.Millis("bounce_ms", 3*time.Second), 50*time.Millisecond, "direction")
					if err != nil {
						return verdict.Verdict{}, err
					}
					return verdict.Transition(h, "direction", 90, -90), nil
				},
			},
		},
	}
}

func bouncingCatWorld(opts ...memsim.Option) *memsim.Sim {
	return reference([]memsim.Option{
		memsim.WithSprite(memsim.SpriteSpec{Name: "Cat"}),
		memsim.WithProgram(func(w *memsim.World) memsim.Step {
			cat := w.Sprite("Cat")
			cat.X, cat.Y, cat.Direction = 0, 0, 90
			return func(w *memsim.World, dt time.Duration) {
				cat.Move(10)
				cat.BounceOnEdge()
			}
		}),
	}, opts)
}
