package harness

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/scratchbench/internal/input"
	"github.com/roach88/scratchbench/internal/observe"
	"github.com/roach88/scratchbench/internal/sim"
	"github.com/roach88/scratchbench/internal/timing"
	"github.com/roach88/scratchbench/internal/verdict"
)

// DefaultAwaitTimeout bounds an await_say step without timeout_ms.
const DefaultAwaitTimeout = 3 * time.Second

// varPrefix marks an observed field that names a variable.
const varPrefix = "var:"

// Compile turns a validated definition into a runnable Scenario.
func (d *Definition) Compile() (*Scenario, error) {
	if err := validateDefinition(d); err != nil {
		return nil, fmt.Errorf("invalid definition: %w", err)
	}

	sc := &Scenario{
		Name:         d.Name,
		Description:  d.Description,
		Sprite:       d.Sprite,
		Aliases:      append([]string(nil), d.Aliases...),
		SingleSprite: d.SingleSprite,
		Timeout:      seconds(d.Timeout),
	}
	for _, c := range d.Cases {
		sc.Cases = append(sc.Cases, Case{
			Name:    c.Name,
			Timeout: seconds(c.Timeout),
			Restart: c.Restart,
			Body:    c.body(),
		})
	}
	return sc, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// body runs the steps in order and then requires every expectation to pass.
// A step that cannot be satisfied (an await_say without a match) fails the
// case without evaluating the expectations.
func (c CaseDefinition) body() Body {
	return func(ctx context.Context, env *Env) (verdict.Verdict, error) {
		var last *observe.History
		for i, step := range c.Steps {
			kind, _ := step.kind()
			h, failed, err := runStep(ctx, env, step)
			if err != nil {
				return verdict.Verdict{}, fmt.Errorf("step %d (%s): %w", i, kind, err)
			}
			if failed != nil {
				failed.Meta["step"] = i
				return *failed, nil
			}
			if h != nil {
				last = h
			}
		}

		vs := make([]verdict.Verdict, 0, len(c.Expect))
		for _, e := range c.Expect {
			v, err := e.evaluate(ctx, env, last)
			if err != nil {
				return verdict.Verdict{}, err
			}
			vs = append(vs, v)
		}
		return verdict.All(vs...), nil
	}
}

func runStep(ctx context.Context, env *Env, s Step) (*observe.History, *verdict.Verdict, error) {
	switch {
	case s.Start != nil:
		return nil, nil, env.Sim.Start(ctx)
	case s.Stop != nil:
		return nil, nil, env.Sim.Stop(ctx)
	case s.Wait != nil:
		return nil, nil, waitMillis(ctx, *s.Wait)
	case s.KeyDown != "":
		return nil, nil, env.Input.KeyDown(ctx, s.KeyDown)
	case s.KeyUp != "":
		return nil, nil, env.Input.KeyUp(ctx, s.KeyUp)
	case s.Press != nil:
		return nil, nil, env.Input.PressKey(ctx, s.Press.Key, millis(s.Press.HoldMS))
	case s.MouseMove != nil:
		return nil, nil, env.Input.MouseMove(ctx, s.MouseMove.X, s.MouseMove.Y)
	case s.MouseDown != nil:
		return nil, nil, env.Input.MouseDown(ctx, s.MouseDown.X, s.MouseDown.Y)
	case s.MouseUp != nil:
		return nil, nil, env.Input.MouseUp(ctx, s.MouseUp.X, s.MouseUp.Y)
	case s.Click != nil:
		return nil, nil, env.Input.ClickAt(ctx, s.Click.X, s.Click.Y, input.ClickOptions{Hold: millis(s.Click.HoldMS)})
	case s.Answer != nil:
		return nil, nil, env.Input.AnswerPendingQuestion(ctx, *s.Answer)
	case s.Observe != nil:
		h, err := observeStep(ctx, env, s.Observe)
		return h, nil, err
	case s.AwaitSay != nil:
		v, err := awaitSay(ctx, env, s.AwaitSay)
		return nil, v, err
	default:
		return nil, nil, fmt.Errorf("empty step")
	}
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func waitMillis(ctx context.Context, ms int) error {
	return timing.Wait(ctx, millis(ms))
}

func observeStep(ctx context.Context, env *Env, o *ObserveStep) (*observe.History, error) {
	policy, err := observe.ParseAbsentPolicy(o.Absent)
	if err != nil {
		return nil, err
	}
	env.Log.WithField("fields", o.Fields).Debug("observing")
	return observe.Observe(ctx, SampleFields(env, o.Fields), observe.Options{
		Duration: millis(o.DurationMS),
		Interval: millis(o.IntervalMS),
		OnAbsent: policy,
	})
}

// SampleFields builds a sample function reading fields of the scenario's
// sprite; a field named "var:<name>" reads that variable instead.
func SampleFields(env *Env, fields []string) observe.SampleFunc {
	var spriteFields []sim.Field
	var vars []string
	for _, f := range fields {
		if name, ok := strings.CutPrefix(f, varPrefix); ok {
			vars = append(vars, name)
			continue
		}
		spriteFields = append(spriteFields, sim.Field(f))
	}

	return func(ctx context.Context) (map[string]any, error) {
		values := map[string]any{}
		if len(spriteFields) > 0 {
			snap, err := env.Sampler.Snapshot(ctx, env.Actor, spriteFields...)
			if err != nil {
				return nil, err
			}
			values = snap
		}
		for _, name := range vars {
			v, err := env.Sampler.ReadVariable(ctx, env.Actor, name)
			if err != nil {
				return nil, err
			}
			values[varPrefix+name] = v
		}
		return values, nil
	}
}

func awaitSay(ctx context.Context, env *Env, a *AwaitSayStep) (*verdict.Verdict, error) {
	expected := a.Text
	opts := verdict.MatchOptions{CaseInsensitive: a.CaseInsensitive}
	if a.Contains != "" {
		expected = a.Contains
		opts.Contains = true
	}
	timeout := millis(a.TimeoutMS)
	if timeout <= 0 {
		timeout = DefaultAwaitTimeout
	}

	m, err := observe.ObserveUntil(ctx, env.Sim, sim.EventSay, func(ev sim.Event) bool {
		return verdict.ExactMatch(ev.Text, expected, opts).Passed
	}, timeout)
	if err != nil {
		return nil, err
	}
	if m.Matched {
		return nil, nil
	}

	said := make([]string, 0, len(m.History))
	for _, ev := range m.History {
		said = append(said, ev.Text)
	}
	v := verdict.Fail(map[string]any{
		"reason":   fmt.Sprintf("no say matching %q within %s", expected, timeout),
		"expected": expected,
		"said":     said,
	})
	return &v, nil
}
