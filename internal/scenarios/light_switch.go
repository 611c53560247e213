package scenarios

import (
	"context"
	"time"

	"github.com/roach88/scratchbench/internal/harness"
	"github.com/roach88/scratchbench/internal/input"
	"github.com/roach88/scratchbench/internal/sim"
	"github.com/roach88/scratchbench/internal/sim/memsim"
	"github.com/roach88/scratchbench/internal/timing"
	"github.com/roach88/scratchbench/internal/verdict"
)

const lightSwitchDescription = "clicking the light switches its costume between on and off"

var lightSwitchEntry = Entry{
	Name:        "light_switch",
	Description: lightSwitchDescription,
	Build:       lightSwitch,
	Reference:   lightSwitchWorld,
}

// settleDelay is how long a click gets to take effect.
const settleDelay = 300 * time.Millisecond

func lightSwitch() *harness.Scenario {
	return &harness.Scenario{
		Name:         "light_switch",
		Description:  lightSwitchDescription,
		Sprite:       "Light",
		Aliases:      []string{"Switch", "Lamp", "Sprite1"},
		SingleSprite: true,
		Cases: []harness.Case{
			{
				Name:    "click_toggles",
				Restart: true,
				Body: func(ctx context.Context, env *harness.Env) (verdict.Verdict, error) {
					before, err := readLook(ctx, env)
					if err != nil {
						return verdict.Verdict{}, err
					}
					after, err := clickLight(ctx, env)
					if err != nil {
						return verdict.Verdict{}, err
					}
					return verdict.Toggled(before.costume, before.ghost, after.costume, after.ghost), nil
				},
			},
			{
				Name:    "second_click_toggles_back",
				Restart: true,
				Body: func(ctx context.Context, env *harness.Env) (verdict.Verdict, error) {
					first, err := readLook(ctx, env)
					if err != nil {
						return verdict.Verdict{}, err
					}
					mid, err := clickLight(ctx, env)
					if err != nil {
						return verdict.Verdict{}, err
					}
					last, err := clickLight(ctx, env)
					if err != nil {
						return verdict.Verdict{}, err
					}
					return verdict.All(
						verdict.Toggled(first.costume, first.ghost, mid.costume, mid.ghost),
						verdict.Toggled(mid.costume, mid.ghost, last.costume, last.ghost),
					), nil
				},
			},
		},
	}
}

type look struct {
	costume string
	ghost   float64
}

func readLook(ctx context.Context, env *harness.Env) (look, error) {
	snap, err := env.Sampler.Snapshot(ctx, env.Actor, sim.FieldCostumeName, sim.FieldGhost)
	if err != nil {
		return look{}, err
	}
	ghost, _ := sim.ToNumber(snap[string(sim.FieldGhost)])
	return look{costume: sim.ToString(snap[string(sim.FieldCostumeName)]), ghost: ghost}, nil
}

// clickLight clicks the centre of the light and reads its look once the
// click has settled.
func clickLight(ctx context.Context, env *harness.Env) (look, error) {
	pos, err := env.Sampler.ReadPosition(ctx, env.Actor)
	if err != nil {
		return look{}, err
	}
	if err := env.Input.ClickAt(ctx, pos.X, pos.Y, input.ClickOptions{}); err != nil {
		return look{}, err
	}
	if err := timing.Wait(ctx, settleDelay); err != nil {
		return look{}, err
	}
	return readLook(ctx, env)
}

func lightSwitchWorld(opts ...memsim.Option) *memsim.Sim {
	return reference([]memsim.Option{
		memsim.WithSprite(memsim.SpriteSpec{Name: "Light", Costumes: []string{"light-off", "light-on"}}),
		memsim.WithProgram(func(w *memsim.World) memsim.Step {
			light := w.Sprite("Light")
			light.SwitchCostume("light-off")
			return func(w *memsim.World, dt time.Duration) {
				x, y, ok := w.TakeClick()
				if !ok || !light.Contains(x, y) {
					return
				}
				if light.CostumeName() == "light-off" {
					light.SwitchCostume("light-on")
				} else {
					light.SwitchCostume("light-off")
				}
			}
		}),
	}, opts)
}
