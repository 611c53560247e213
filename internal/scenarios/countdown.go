package scenarios

import (
	"context"
	"time"

	"github.com/roach88/scratchbench/internal/harness"
	"github.com/roach88/scratchbench/internal/sampler"
	"github.com/roach88/scratchbench/internal/sim"
	"github.com/roach88/scratchbench/internal/sim/memsim"
	"github.com/roach88/scratchbench/internal/timing"
	"github.com/roach88/scratchbench/internal/verdict"
)

const countdownDescription = "a global count goes 5, 4, 3, 2, 1, 0 about once per second"

var countdownEntry = Entry{
	Name:        "countdown",
	Description: countdownDescription,
	Build:       countdown,
	Reference:   countdownWorld,
}

// countdownLadder is the sequence the count variable must show.
var countdownLadder = []float64{5, 4, 3, 2, 1, 0}

func countdown() *harness.Scenario {
	return &harness.Scenario{
		Name:        "countdown",
		Description: countdownDescription,
		Timeout:     12 * time.Second,
		Cases: []harness.Case{
			{
				Name:    "starts_at_five",
				Restart: true,
				Body: func(ctx context.Context, env *harness.Env) (verdict.Verdict, error) {
					v, err := awaitVariable(ctx, env, "count", 5.0, env.Config.Millis("start_ms", time.Second))
					if err != nil {
						return verdict.Verdict{}, err
					}
					return verdict.ExactMatch(v, 5, verdict.MatchOptions{}), nil
				},
			},
			{
				Name:    "counts_down_each_second",
				Restart: true,
				Body: func(ctx context.Context, env *harness.Env) (verdict.Verdict, error) {
					h, err := observeFields(ctx, env, env.Config.Millis("observe_ms", 6500*time.Millisecond), 100*time.Millisecond, "var:count")
					if err != nil {
						return verdict.Verdict{}, err
					}
					return verdict.All(
						verdict.DescendingLadder(h, "var:count", countdownLadder),
						verdict.PeriodicSteps(h, "var:count", verdict.PeriodicOptions{Sign: -1, MinGaps: 3}),
					), nil
				},
			},
		},
	}
}

// awaitVariable polls a global until it equals want or wait runs out, and
// returns the last value read.
func awaitVariable(ctx context.Context, env *harness.Env, name string, want float64, wait time.Duration) (any, error) {
	deadline := time.Now().Add(wait)
	for {
		v, err := env.Sampler.ReadVariable(ctx, sampler.Stage(), name)
		if err != nil {
			return nil, err
		}
		if n, ok := sim.ToNumber(v); (ok && n == want) || !time.Now().Before(deadline) {
			return v, nil
		}
		if err := timing.Wait(ctx, 20*time.Millisecond); err != nil {
			return nil, err
		}
	}
}

func countdownWorld(opts ...memsim.Option) *memsim.Sim {
	return reference([]memsim.Option{
		memsim.WithSprite(memsim.SpriteSpec{Name: "Timer"}),
		memsim.WithGlobal("count", 0.0),
		memsim.WithProgram(func(w *memsim.World) memsim.Step {
			w.SetGlobal("count", 5.0)
			next := time.Second
			return func(w *memsim.World, dt time.Duration) {
				n, _ := sim.ToNumber(w.Global("count"))
				if n > 0 && w.Elapsed() >= next {
					w.SetGlobal("count", n-1)
					next += time.Second
				}
			}
		}),
	}, opts)
}
