package scenarios

import (
	"context"
	"time"

	"github.com/roach88/scratchbench/internal/harness"
	"github.com/roach88/scratchbench/internal/sim/memsim"
	"github.com/roach88/scratchbench/internal/verdict"
)

const screenWrapDescription = "a sprite leaving the right edge reappears at the left edge"

var screenWrapEntry = Entry{
	Name:        "screen_wrap",
	Description: screenWrapDescription,
	Build:       screenWrap,
	Reference:   screenWrapWorld,
}

func screenWrap() *harness.Scenario {
	return &harness.Scenario{
		Name:         "screen_wrap",
		Description:  screenWrapDescription,
		Sprite:       "Cat",
		Aliases:      []string{"Sprite1"},
		SingleSprite: true,
		Cases: []harness.Case{
			{
				Name:    "wraps_right_to_left",
				Restart: true,
				Body: func(ctx context.Context, env *harness.Env) (verdict.Verdict, error) {
					h, err := observeFields(ctx, env, env.Config.Millis("observe_ms", 2500*time.Millisecond), 50*time.Millisecond, "x", "y")
					if err != nil {
						return verdict.Verdict{}, err
					}
					return verdict.EdgeWrap(h, verdict.WrapOptions{
						Axis:          "x",
						Edge:          memsim.StageMaxX,
						Margin:        env.Config.Float("margin", 60),
						MaxOrthogonal: 10,
						Sign:          1,
					}), nil
				},
			},
			{
				Name:    "moves_right",
				Restart: true,
				Body: func(ctx context.Context, env *harness.Env) (verdict.Verdict, error) {
					h, err := observeFields(ctx, env, time.Second, 100*time.Millisecond, "x")
					if err != nil {
						return verdict.Verdict{}, err
					}
					// one wrap inside the window is a single backwards delta
					return verdict.Alignment(h, "x", verdict.AlignmentOptions{Sign: 1, MinRatio: 0.8, MinFrames: 3}), nil
				},
			},
		},
	}
}

func screenWrapWorld(opts ...memsim.Option) *memsim.Sim {
	return reference([]memsim.Option{
		memsim.WithSprite(memsim.SpriteSpec{Name: "Cat"}),
		memsim.WithProgram(func(w *memsim.World) memsim.Step {
			cat := w.Sprite("Cat")
			cat.X, cat.Y = 0, 0
			return func(w *memsim.World, dt time.Duration) {
				cat.X += 10
				if cat.X > memsim.StageMaxX {
					cat.X = -memsim.StageMaxX
				}
			}
		}),
	}, opts)
}
