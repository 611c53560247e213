package scenarios

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/scratchbench/internal/harness"
	"github.com/roach88/scratchbench/internal/sim/memsim"
	"github.com/roach88/scratchbench/internal/verdict"
)

const arrowKeysDescription = "the arrow keys move the sprite left and right"

var arrowKeysEntry = Entry{
	Name:        "arrow_keys",
	Description: arrowKeysDescription,
	Build:       arrowKeys,
	Reference:   arrowKeysWorld,
}

func arrowKeys() *harness.Scenario {
	return &harness.Scenario{
		Name:         "arrow_keys",
		Description:  arrowKeysDescription,
		Sprite:       "Cat",
		Aliases:      []string{"Sprite1"},
		SingleSprite: true,
		Cases: []harness.Case{
			holdArrow("right_moves_right", "ArrowRight", 1),
			holdArrow("left_moves_left", "ArrowLeft", -1),
			{
				Name:    "idle_stays_put",
				Restart: true,
				Body: func(ctx context.Context, env *harness.Env) (verdict.Verdict, error) {
					h, err := observeFields(ctx, env, 500*time.Millisecond, 100*time.Millisecond, "x")
					if err != nil {
						return verdict.Verdict{}, err
					}
					moved := verdict.Displacement(h, "x", 1)
					return verdict.Of(!moved.Passed, moved.Meta), nil
				},
			},
		},
	}
}

// holdArrow holds key while sampling x and requires the x deltas to share
// sign.
func holdArrow(name, key string, sign int) harness.Case {
	return harness.Case{
		Name:    name,
		Restart: true,
		Body: func(ctx context.Context, env *harness.Env) (verdict.Verdict, error) {
			if err := env.Input.KeyDown(ctx, key); err != nil {
				return verdict.Verdict{}, fmt.Errorf("press %s: %w", key, err)
			}
			h, err := observeFields(ctx, env, env.Config.Millis("hold_ms", time.Second), 100*time.Millisecond, "x")
			if err != nil {
				return verdict.Verdict{}, err
			}
			if err := env.Input.KeyUp(ctx, key); err != nil {
				return verdict.Verdict{}, fmt.Errorf("release %s: %w", key, err)
			}
			return verdict.Alignment(h, "x", verdict.AlignmentOptions{
				Sign:      sign,
				MinRatio:  env.Config.Float("min_ratio", 0.6),
				MinFrames: 3,
			}), nil
		},
	}
}

func arrowKeysWorld(opts ...memsim.Option) *memsim.Sim {
	const speed = 5
	return reference([]memsim.Option{
		memsim.WithSprite(memsim.SpriteSpec{Name: "Cat"}),
		memsim.WithProgram(func(w *memsim.World) memsim.Step {
			cat := w.Sprite("Cat")
			cat.X, cat.Y = 0, 0
			return func(w *memsim.World, dt time.Duration) {
				if w.KeyPressed("ArrowRight") {
					cat.X += speed
				}
				if w.KeyPressed("ArrowLeft") {
					cat.X -= speed
				}
				cat.BounceOnEdge()
			}
		}),
	}, opts)
}
