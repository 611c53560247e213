package scenarios

import (
	"context"
	"time"

	"github.com/roach88/scratchbench/internal/harness"
	"github.com/roach88/scratchbench/internal/observe"
	"github.com/roach88/scratchbench/internal/sim"
	"github.com/roach88/scratchbench/internal/sim/memsim"
	"github.com/roach88/scratchbench/internal/timing"
	"github.com/roach88/scratchbench/internal/verdict"
)

const askNameDescription = "the sprite asks for a name and greets with Hello <name>!"

var askNameEntry = Entry{
	Name:        "ask_name",
	Description: askNameDescription,
	Build:       askName,
	Reference:   askNameWorld,
}

// greetingTimeout bounds the wait for a greeting after answering.
const greetingTimeout = 3 * time.Second

func askName() *harness.Scenario {
	return &harness.Scenario{
		Name:         "ask_name",
		Description:  askNameDescription,
		Sprite:       "Cat",
		Aliases:      []string{"Sprite1"},
		SingleSprite: true,
		Cases: []harness.Case{
			{
				Name:    "asks_question",
				Restart: true,
				Body: func(ctx context.Context, env *harness.Env) (verdict.Verdict, error) {
					if err := waitForQuestion(ctx, env); err != nil {
						return verdict.Verdict{}, err
					}
					qs := env.Events.Texts(sim.EventQuestion)
					return verdict.Of(len(qs) > 0, map[string]any{"questions": qs}), nil
				},
			},
			greets("greets_by_name", "name", "Ada"),
			greets("greets_another_name", "other_name", "Grace"),
		},
	}
}

// waitForQuestion gives the project a moment to reach its ask block.
func waitForQuestion(ctx context.Context, env *harness.Env) error {
	deadline := time.Now().Add(time.Second)
	for len(env.Events.Texts(sim.EventQuestion)) == 0 && time.Now().Before(deadline) {
		if err := timing.Wait(ctx, 20*time.Millisecond); err != nil {
			return err
		}
	}
	return nil
}

func greets(caseName, key, def string) harness.Case {
	return harness.Case{
		Name:    caseName,
		Restart: true,
		Body: func(ctx context.Context, env *harness.Env) (verdict.Verdict, error) {
			if err := waitForQuestion(ctx, env); err != nil {
				return verdict.Verdict{}, err
			}
			name := env.Config.String(key, def)
			want := "Hello " + name + "!"
			opts := verdict.MatchOptions{CaseInsensitive: true}

			if err := env.Input.AnswerPendingQuestion(ctx, name); err != nil {
				return verdict.Verdict{}, err
			}
			m, err := observe.ObserveUntil(ctx, env.Sim, sim.EventSay, func(ev sim.Event) bool {
				return verdict.ExactMatch(ev.Text, want, opts).Passed
			}, greetingTimeout)
			if err != nil {
				return verdict.Verdict{}, err
			}
			if m.Matched {
				return verdict.Pass(map[string]any{"said": m.Event.Text, "expected": want}), nil
			}
			// The greeting may have been said before the wait subscribed.
			return verdict.AnyMessage(env.Events.Texts(sim.EventSay), want, opts), nil
		},
	}
}

func askNameWorld(opts ...memsim.Option) *memsim.Sim {
	return reference([]memsim.Option{
		memsim.WithSprite(memsim.SpriteSpec{Name: "Cat"}),
		memsim.WithProgram(func(w *memsim.World) memsim.Step {
			cat := w.Sprite("Cat")
			w.Ask(cat, "What's your name?")
			var name string
			var answeredAt time.Duration
			return func(w *memsim.World, dt time.Duration) {
				if a, ok := w.TakeAnswer(); ok {
					name, answeredAt = a, w.Elapsed()
				}
				if name != "" && w.Elapsed()-answeredAt >= 100*time.Millisecond {
					w.Say(cat, "Hello "+name+"!")
					name = ""
				}
			}
		}),
	}, opts)
}
