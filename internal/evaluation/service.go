package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/scratchbench/internal/harness"
	"github.com/roach88/scratchbench/internal/scenarios"
	"github.com/roach88/scratchbench/internal/store"
	"github.com/roach88/scratchbench/internal/timing"
)

// DefaultSafetyTimeout bounds a whole evaluation, setup included.
const DefaultSafetyTimeout = 120 * time.Second

// ErrUnknownTask is returned for task names missing from the catalogue.
var ErrUnknownTask = errors.New("unknown task")

// RunWriter persists reports. *store.Store implements it.
type RunWriter interface {
	WriteRun(ctx context.Context, run store.RunRecord) (bool, error)
}

// Options configures New.
type Options struct {
	// Tasks is the catalogue evaluations are looked up in. Required.
	Tasks *scenarios.Registry

	// Open provides a simulation per evaluation. Required.
	Open Opener

	// Backend names the simulation backend in stored runs.
	Backend string

	// Store, when set, receives every report.
	Store RunWriter

	IDs           IDGenerator
	SafetyTimeout time.Duration
	Logger        logrus.FieldLogger
	Now           func() time.Time
}

// Service evaluates tasks.
type Service struct {
	tasks   *scenarios.Registry
	open    Opener
	backend string
	store   RunWriter
	ids     IDGenerator
	safety  time.Duration
	log     logrus.FieldLogger
	now     func() time.Time
}

// New creates a Service.
func New(opts Options) (*Service, error) {
	if opts.Tasks == nil {
		return nil, fmt.Errorf("evaluation: no task catalogue")
	}
	if opts.Open == nil {
		return nil, fmt.Errorf("evaluation: no simulation opener")
	}
	if opts.IDs == nil {
		opts.IDs = UUIDv7Generator{}
	}
	if opts.SafetyTimeout <= 0 {
		opts.SafetyTimeout = DefaultSafetyTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		tasks:   opts.Tasks,
		open:    opts.Open,
		backend: opts.Backend,
		store:   opts.Store,
		ids:     opts.IDs,
		safety:  opts.SafetyTimeout,
		log:     opts.Logger,
		now:     opts.Now,
	}, nil
}

// Request names a task and tunes its scenario.
type Request struct {
	TaskName string

	// Timeout is the per-case budget; zero keeps the scenario default.
	Timeout    time.Duration
	SpriteName string
	Overrides  map[string]any
}

func (r Request) config() harness.Config {
	return harness.Config{Timeout: r.Timeout, SpriteName: r.SpriteName, Overrides: r.Overrides}
}

// Report is the outcome of one evaluation.
type Report struct {
	RunID    string                  `json:"run_id"`
	TaskName string                  `json:"task_name"`
	Status   string                  `json:"status"`
	Result   *harness.ScenarioResult `json:"result,omitempty"`
	Error    string                  `json:"error,omitempty"`

	// Stdout holds the log lines emitted during the evaluation.
	Stdout    string        `json:"stdout"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"-"`
}

// MarshalJSON renders Duration as whole milliseconds.
func (r Report) MarshalJSON() ([]byte, error) {
	type plain Report
	return json.Marshal(struct {
		plain
		DurationMS int64 `json:"duration_ms"`
	}{plain(r), r.Duration.Milliseconds()})
}

// Passed reports whether every case of the scenario passed.
func (r Report) Passed() bool {
	return r.Status == store.StatusSuccess
}

// Evaluate runs one task. Failures inside the evaluation (setup errors, the
// safety timeout, failing cases) are reported through the Report; the
// returned error is reserved for unknown tasks and for a report that could
// not be persisted.
func (s *Service) Evaluate(ctx context.Context, req Request) (Report, error) {
	task, ok := s.tasks.Get(req.TaskName)
	if !ok {
		return Report{}, fmt.Errorf("%w: %s", ErrUnknownTask, req.TaskName)
	}

	logger, capture := captureLogger(s.log)
	rep := Report{
		RunID:     s.ids.Generate(),
		TaskName:  task.Name,
		StartedAt: s.now(),
	}
	log := logger.WithFields(logrus.Fields{
		"component": "evaluation",
		"task":      task.Name,
		"run_id":    rep.RunID,
	})
	log.Info("evaluation started")

	start := time.Now()
	res, err := s.run(ctx, task, req.config(), logger, log)
	rep.Duration = time.Since(start)

	if err != nil {
		rep.Status = store.StatusFailed
		rep.Error = err.Error()
		log.WithError(err).Error("evaluation failed")
	} else {
		rep.Result = &res
		rep.Status = store.StatusFailed
		if res.Success {
			rep.Status = store.StatusSuccess
		}
		log.WithFields(logrus.Fields{
			"status":   rep.Status,
			"passed":   res.PassedTests,
			"total":    res.TotalTests,
			"duration": rep.Duration.Round(time.Millisecond),
		}).Info("evaluation finished")
	}
	rep.Stdout = capture.String()

	if s.store != nil {
		if _, err := s.store.WriteRun(context.WithoutCancel(ctx), s.record(rep, req)); err != nil {
			return rep, fmt.Errorf("persist run %s: %w", rep.RunID, err)
		}
	}
	return rep, nil
}

func (s *Service) run(ctx context.Context, task scenarios.Entry, cfg harness.Config, logger logrus.FieldLogger, log logrus.FieldLogger) (harness.ScenarioResult, error) {
	var res harness.ScenarioResult
	held := &lease{log: log}
	defer held.Release()

	err := timing.WithTimeout(ctx, "evaluation "+task.Name, s.safety, func() {
		log.WithField("after", s.safety).Warn("safety timeout, abandoning evaluation")
	}, func(ctx context.Context) error {
		h, release, err := s.open(ctx, task)
		if err != nil {
			return fmt.Errorf("open simulation: %w", err)
		}
		if !held.hold(release) {
			return ctx.Err()
		}

		r, err := harness.NewRunner(logger).RunScenario(ctx, h, task.Build(), cfg, held.Release)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if timing.IsTimeout(err) {
		return harness.ScenarioResult{}, fmt.Errorf("evaluation timeout after %ss", strconv.FormatFloat(s.safety.Seconds(), 'f', -1, 64))
	}
	if err != nil {
		return harness.ScenarioResult{}, err
	}
	return res, nil
}

// lease owns the release function of an opened simulation. Release may be
// called before the simulation is open; a later hold then releases at once.
type lease struct {
	log logrus.FieldLogger

	mu       sync.Mutex
	release  func()
	released bool
}

// hold stores release, or calls it and returns false if the lease was
// already released.
func (l *lease) hold(release func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.released {
		release()
		return false
	}
	l.release = release
	return true
}

// Release releases the simulation once.
func (l *lease) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.released {
		return
	}
	l.released = true
	if l.release != nil {
		l.release()
		l.log.Debug("simulation released")
	}
}

// EvaluateAll runs requests with at most parallel evaluations in flight
// (parallel <= 0 means one at a time). Reports keep the order of reqs. Every
// task name is checked before anything runs.
func (s *Service) EvaluateAll(ctx context.Context, reqs []Request, parallel int) ([]Report, error) {
	for _, req := range reqs {
		if _, ok := s.tasks.Get(req.TaskName); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTask, req.TaskName)
		}
	}
	if parallel <= 0 {
		parallel = 1
	}

	reports := make([]Report, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, req := range reqs {
		g.Go(func() error {
			rep, err := s.Evaluate(gctx, req)
			reports[i] = rep
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return reports, err
	}
	return reports, nil
}

// Tasks returns the catalogue entries sorted by name.
func (s *Service) Tasks() []scenarios.Entry {
	return s.tasks.All()
}

func (s *Service) record(rep Report, req Request) store.RunRecord {
	run := store.RunRecord{
		ID:        rep.RunID,
		Task:      rep.TaskName,
		Status:    rep.Status,
		Error:     rep.Error,
		Stdout:    rep.Stdout,
		Backend:   s.backend,
		Config:    configMap(req),
		StartedAt: rep.StartedAt,
		Duration:  rep.Duration,
	}
	if res := rep.Result; res != nil {
		run.Success = res.Success
		run.PassedTests = res.PassedTests
		run.TotalTests = res.TotalTests
		run.PartialSuccessRate = res.PartialSuccessRate
		for i, d := range res.Details {
			run.Cases = append(run.Cases, store.CaseRecord{
				Index:    i,
				Name:     d.Name,
				Passed:   d.Passed,
				Status:   string(d.Status),
				Error:    d.Error,
				Meta:     d.Meta,
				Duration: d.Duration,
			})
		}
	}
	return run
}

func configMap(req Request) map[string]any {
	m := map[string]any{}
	for k, v := range req.Overrides {
		m[k] = v
	}
	if req.Timeout > 0 {
		m["timeout"] = req.Timeout.Seconds()
	}
	if req.SpriteName != "" {
		m["sprite_name"] = req.SpriteName
	}
	return m
}
