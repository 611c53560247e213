package harness

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/roach88/scratchbench/internal/input"
	"github.com/roach88/scratchbench/internal/observe"
	"github.com/roach88/scratchbench/internal/sampler"
	"github.com/roach88/scratchbench/internal/sim"
	"github.com/roach88/scratchbench/internal/timing"
	"github.com/roach88/scratchbench/internal/verdict"
)

// TeardownTimeout bounds the stop/release work after each case.
const TeardownTimeout = 5 * time.Second

// Body is the behavior check of one case. Returning an error marks the case
// ERRORED (or FAILED for a *sim.NotFoundError, TIMED_OUT for a
// *timing.TimeoutError); otherwise the verdict decides PASSED or FAILED.
type Body func(ctx context.Context, env *Env) (verdict.Verdict, error)

// Case is one named behavioral check.
type Case struct {
	Name string

	// Timeout overrides the scenario's case budget.
	Timeout time.Duration

	// Restart starts the simulation (green flag) after the setup stop.
	Restart bool

	Body Body
}

// Scenario is an ordered list of cases evaluating one task.
type Scenario struct {
	Name        string
	Description string

	// Sprite is the declared name of the observed actor; Aliases are tried
	// after it. SingleSprite resolves to the only sprite when neither
	// matches.
	Sprite       string
	Aliases      []string
	SingleSprite bool

	// Timeout is the default case budget for this scenario.
	Timeout time.Duration

	// Prepare runs once before the first case. An error aborts the scenario
	// and is returned to the caller.
	Prepare func(ctx context.Context, h sim.Handle, cfg Config) error

	Cases []Case
}

// Env is everything a case body may use. It is created fresh for each case.
type Env struct {
	Sim     sim.Handle
	Input   *input.Adapter
	Sampler *sampler.Sampler
	Log     logrus.FieldLogger
	Config  Config

	// Actor designates the scenario's observed sprite, with any
	// Config.SpriteName override applied.
	Actor sampler.ActorQuery

	// Events records every say/question/answer event emitted during the
	// case.
	Events *observe.Recorder
}

// Runner executes scenarios against a simulation.
type Runner struct {
	log logrus.FieldLogger
}

// NewRunner creates a Runner that logs through log.
func NewRunner(log logrus.FieldLogger) *Runner {
	return &Runner{log: log.WithField("component", "harness")}
}

// RunScenario runs every case of sc in order against h and aggregates the
// results. Cases never run concurrently. A failing case never stops the
// scenario. Input that one case's teardown could not release is released
// again in the next case's setup.
//
// cleanup, when non-nil, is called exactly once after the scenario settles,
// whether it returns a result, an error, or panics. The only error returned
// is a failure of sc.Prepare or of the context before the first case.
func (r *Runner) RunScenario(ctx context.Context, h sim.Handle, sc *Scenario, cfg Config, cleanup func()) (ScenarioResult, error) {
	var once sync.Once
	defer func() {
		if cleanup != nil {
			once.Do(cleanup)
		}
	}()

	log := r.log.WithField("scenario", sc.Name)
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return ScenarioResult{}, err
	}
	if sc.Prepare != nil {
		if err := sc.Prepare(ctx, h, cfg); err != nil {
			log.WithError(err).Error("scenario setup failed")
			return ScenarioResult{}, fmt.Errorf("prepare scenario %s: %w", sc.Name, err)
		}
	}

	details := make([]CaseResult, 0, len(sc.Cases))
	var stuck *input.Adapter
	for _, c := range sc.Cases {
		var res CaseResult
		res, stuck = r.runCase(ctx, h, sc, c, cfg, stuck)
		details = append(details, res)
	}
	res := NewScenarioResult(details)

	log.WithFields(logrus.Fields{
		"passed":   res.PassedTests,
		"total":    res.TotalTests,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Info("scenario finished")
	return res, nil
}

// actorQuery applies the caller's sprite override to the scenario's actor.
func actorQuery(sc *Scenario, cfg Config) sampler.ActorQuery {
	q := sampler.ActorQuery{
		Name:                sc.Sprite,
		Aliases:             append([]string(nil), sc.Aliases...),
		SingleActorFallback: sc.SingleSprite,
	}
	if cfg.SpriteName != "" && cfg.SpriteName != sc.Sprite {
		if sc.Sprite != "" {
			q.Aliases = append([]string{sc.Sprite}, q.Aliases...)
		}
		q.Name = cfg.SpriteName
	}
	return q
}

func caseBudget(sc *Scenario, c Case, cfg Config) time.Duration {
	switch {
	case c.Timeout > 0:
		return c.Timeout
	case cfg.Timeout > 0:
		return cfg.Timeout
	case sc.Timeout > 0:
		return sc.Timeout
	default:
		return DefaultCaseTimeout
	}
}

// caseRun carries one case through its state machine.
type caseRun struct {
	log    logrus.FieldLogger
	status CaseStatus
}

var legalTransitions = map[CaseStatus][]CaseStatus{
	StatusPending: {StatusRunning, StatusErrored},
	StatusRunning: {StatusPassed, StatusFailed, StatusErrored, StatusTimedOut},
}

func (c *caseRun) transition(to CaseStatus) {
	for _, next := range legalTransitions[c.status] {
		if next == to {
			c.log.WithFields(logrus.Fields{"from": c.status, "to": to}).Debug("case transition")
			c.status = to
			return
		}
	}
	panic(fmt.Sprintf("illegal case transition %s -> %s", c.status, to))
}

// RunCase runs one case: setup, the body under the case budget, then
// teardown. Teardown (stop the simulation, release held input, drop event
// listeners) runs exactly once on every path. RunCase never panics on a
// misbehaving body; every outcome is a CaseResult.
func (r *Runner) RunCase(ctx context.Context, h sim.Handle, sc *Scenario, c Case, cfg Config) CaseResult {
	res, _ := r.runCase(ctx, h, sc, c, cfg, nil)
	return res
}

// runCase runs one case. stuck is the adapter of an earlier case whose
// teardown could not release everything; setup retries its release. The
// returned adapter is non-nil when input is still held after teardown.
func (r *Runner) runCase(ctx context.Context, h sim.Handle, sc *Scenario, c Case, cfg Config, stuck *input.Adapter) (res CaseResult, carry *input.Adapter) {
	start := time.Now()
	log := r.log.WithFields(logrus.Fields{"scenario": sc.Name, "case": c.Name})
	run := &caseRun{log: log, status: StatusPending}
	res = CaseResult{Name: c.Name, Status: StatusPending, Meta: map[string]any{}}

	adapter := input.New(h, log)
	var recorder *observe.Recorder

	var teardownOnce sync.Once
	teardown := func() {
		teardownOnce.Do(func() {
			tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), TeardownTimeout)
			defer cancel()

			var errs []error
			errs = append(errs, adapter.Close(tctx))
			if recorder != nil {
				errs = append(errs, recorder.Release())
			}
			if err := h.Stop(tctx); err != nil {
				errs = append(errs, fmt.Errorf("stop simulation: %w", err))
			}
			if err := errors.Join(errs...); err != nil {
				log.WithError(err).Warn("teardown incomplete")
				res.Meta["teardown_error"] = err.Error()
			}
		})
	}
	defer func() {
		teardown()
		if adapter.Holding() {
			carry = adapter
		}
		res.Status = run.status
		res.Duration = time.Since(start)
		if len(res.Meta) == 0 {
			res.Meta = nil
		}
		log.WithFields(logrus.Fields{
			"status":   res.Status,
			"duration": res.Duration.Round(time.Millisecond),
		}).Info("case finished")
	}()

	// PENDING -> RUNNING: reset the simulation before the body runs.
	if err := r.setup(ctx, h, c, stuck, &recorder); err != nil {
		run.transition(StatusErrored)
		res.Error = fmt.Sprintf("setup: %v", err)
		carry = stuck
		return res, carry
	}
	run.transition(StatusRunning)

	env := &Env{
		Sim:     h,
		Input:   adapter,
		Sampler: sampler.New(h),
		Log:     log,
		Config:  cfg,
		Actor:   actorQuery(sc, cfg),
		Events:  recorder,
	}

	budget := caseBudget(sc, c, cfg)
	var v verdict.Verdict
	err := timing.WithTimeout(ctx, c.Name, budget, func() {
		log.WithField("budget", budget).Warn("case timed out")
		// Reject input from a body that keeps running past its budget;
		// teardown releases what it holds.
		adapter.Reject()
	}, func(ctx context.Context) error {
		if c.Body == nil {
			return errors.New("case has no body")
		}
		var err error
		v, err = c.Body(ctx, env)
		return err
	})

	var (
		nf *sim.NotFoundError
		te *timing.TimeoutError
		pe *timing.PanicError
	)
	switch {
	case err == nil:
		for k, val := range v.Meta {
			res.Meta[k] = val
		}
		res.Passed = v.Passed
		if v.Passed {
			run.transition(StatusPassed)
		} else {
			run.transition(StatusFailed)
		}
	case errors.As(err, &te):
		run.transition(StatusTimedOut)
		res.Error = err.Error()
		res.Meta["timeout"] = true
		res.Meta["timeout_ms"] = te.After.Milliseconds()
	case errors.As(err, &nf):
		run.transition(StatusFailed)
		res.Error = err.Error()
		res.Meta["not_found"] = string(nf.Kind)
		if len(nf.Tried) > 0 {
			res.Meta["tried"] = nf.Tried
		}
	case errors.As(err, &pe):
		run.transition(StatusErrored)
		res.Error = err.Error()
		log.WithField("stack", string(pe.Stack)).Error("case body panicked")
	default:
		run.transition(StatusErrored)
		res.Error = err.Error()
	}
	return res, carry
}

func (r *Runner) setup(ctx context.Context, h sim.Handle, c Case, stuck *input.Adapter, recorder **observe.Recorder) error {
	if err := h.Stop(ctx); err != nil {
		return fmt.Errorf("stop simulation: %w", err)
	}
	if stuck != nil {
		rctx, cancel := context.WithTimeout(ctx, TeardownTimeout)
		err := stuck.Close(rctx)
		cancel()
		if err != nil {
			return fmt.Errorf("release stuck input: %w", err)
		}
	}
	rec, err := observe.Record(h, sim.EventSay, sim.EventQuestion, sim.EventAnswer)
	if err != nil {
		return err
	}
	*recorder = rec
	if c.Restart {
		if err := h.Start(ctx); err != nil {
			return fmt.Errorf("start simulation: %w", err)
		}
	}
	return nil
}
