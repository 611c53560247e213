package evaluation

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scratchbench/internal/harness"
	"github.com/roach88/scratchbench/internal/scenarios"
	"github.com/roach88/scratchbench/internal/sim"
	"github.com/roach88/scratchbench/internal/sim/memsim"
	"github.com/roach88/scratchbench/internal/store"
	"github.com/roach88/scratchbench/internal/testutil"
	"github.com/roach88/scratchbench/internal/verdict"
)

var testStart = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func catWorld(opts ...memsim.Option) *memsim.Sim {
	return memsim.New(append([]memsim.Option{
		memsim.WithSprite(memsim.SpriteSpec{Name: "Cat"}),
	}, opts...)...)
}

func constBody(pass bool) harness.Body {
	return func(ctx context.Context, env *harness.Env) (verdict.Verdict, error) {
		return verdict.Of(pass, nil), nil
	}
}

func blockingBody(ctx context.Context, env *harness.Env) (verdict.Verdict, error) {
	<-ctx.Done()
	return verdict.Verdict{}, ctx.Err()
}

// configBody passes when the caller's sprite and greeting overrides arrive.
func configBody(ctx context.Context, env *harness.Env) (verdict.Verdict, error) {
	ok := env.Config.SpriteName == "Cat" && env.Config.String("greeting", "") == "hi"
	return verdict.Of(ok, map[string]any{"greeting": env.Config.String("greeting", "")}), nil
}

func entry(name string, cases ...harness.Case) scenarios.Entry {
	return scenarios.Entry{
		Name:        name,
		Description: name,
		Build: func() *harness.Scenario {
			return &harness.Scenario{Name: name, Sprite: "Cat", Cases: cases}
		},
		Reference: catWorld,
	}
}

func testRegistry(t *testing.T) *scenarios.Registry {
	t.Helper()
	r := scenarios.NewRegistry()
	for _, e := range []scenarios.Entry{
		entry("pass_fail",
			harness.Case{Name: "always_pass", Body: constBody(true)},
			harness.Case{Name: "always_fail", Body: constBody(false)},
		),
		entry("all_pass", harness.Case{Name: "ok", Body: constBody(true)}),
		entry("hangs", harness.Case{Name: "forever", Timeout: time.Minute, Body: blockingBody}),
		entry("configured", harness.Case{Name: "reads_config", Body: configBody}),
	} {
		require.NoError(t, r.Register(e))
	}
	return r
}

// memWriter is an in-memory RunWriter.
type memWriter struct {
	mu   sync.Mutex
	runs []store.RunRecord
	err  error
}

func (w *memWriter) WriteRun(ctx context.Context, run store.RunRecord) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return false, w.err
	}
	w.runs = append(w.runs, run)
	return true, nil
}

func newService(t *testing.T, opts Options) *Service {
	t.Helper()
	if opts.Tasks == nil {
		opts.Tasks = testRegistry(t)
	}
	if opts.Open == nil {
		opts.Open = MemsimOpener(memsim.WithTick(5 * time.Millisecond))
	}
	if opts.Logger == nil {
		opts.Logger = testLogger()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return testStart }
	}
	svc, err := New(opts)
	require.NoError(t, err)
	return svc
}

func TestNew_RequiresTasksAndOpener(t *testing.T) {
	_, err := New(Options{Open: MemsimOpener()})
	assert.Error(t, err)

	_, err = New(Options{Tasks: scenarios.NewRegistry()})
	assert.Error(t, err)
}

func TestEvaluate_PassFail(t *testing.T) {
	w := &memWriter{}
	svc := newService(t, Options{
		Backend: "memsim",
		Store:   w,
		IDs:     NewSequenceGenerator("run-1"),
	})

	rep, err := svc.Evaluate(context.Background(), Request{TaskName: "pass_fail"})
	require.NoError(t, err)

	assert.Equal(t, "run-1", rep.RunID)
	assert.Equal(t, "pass_fail", rep.TaskName)
	assert.Equal(t, store.StatusFailed, rep.Status)
	assert.False(t, rep.Passed())
	assert.Empty(t, rep.Error)
	assert.Equal(t, testStart, rep.StartedAt)

	require.NotNil(t, rep.Result)
	assert.False(t, rep.Result.Success)
	assert.Equal(t, 1, rep.Result.PassedTests)
	assert.Equal(t, 2, rep.Result.TotalTests)
	assert.Equal(t, 0.5, rep.Result.PartialSuccessRate)

	assert.Contains(t, rep.Stdout, `msg="evaluation started"`)
	assert.Contains(t, rep.Stdout, `msg="case finished"`)
	assert.Contains(t, rep.Stdout, "case=always_fail")
	assert.Contains(t, rep.Stdout, `msg="evaluation finished"`)

	require.Len(t, w.runs, 1)
	run := w.runs[0]
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, "memsim", run.Backend)
	assert.Equal(t, 1, run.PassedTests)
	assert.Equal(t, rep.Stdout, run.Stdout)
	require.Len(t, run.Cases, 2)
	assert.Equal(t, "always_pass", run.Cases[0].Name)
	assert.Equal(t, "PASSED", run.Cases[0].Status)
	assert.Equal(t, "FAILED", run.Cases[1].Status)
	assert.Equal(t, 1, run.Cases[1].Index)
}

func TestEvaluate_AllPass(t *testing.T) {
	svc := newService(t, Options{})

	rep, err := svc.Evaluate(context.Background(), Request{TaskName: "all_pass"})
	require.NoError(t, err)
	assert.Equal(t, store.StatusSuccess, rep.Status)
	assert.True(t, rep.Passed())
	assert.NotEmpty(t, rep.RunID, "UUIDv7 ids by default")
}

func TestEvaluate_UnknownTask(t *testing.T) {
	w := &memWriter{}
	svc := newService(t, Options{Store: w})

	_, err := svc.Evaluate(context.Background(), Request{TaskName: "nope"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownTask))
	assert.Contains(t, err.Error(), "unknown task")
	assert.Empty(t, w.runs)
}

func TestEvaluate_SafetyTimeout(t *testing.T) {
	var released atomic.Int32
	w := &memWriter{}
	svc := newService(t, Options{
		Store:         w,
		SafetyTimeout: 200 * time.Millisecond,
		Open: func(ctx context.Context, task scenarios.Entry) (sim.Handle, func(), error) {
			s := task.Reference()
			return s, func() {
				released.Add(1)
				_ = s.Stop(context.Background())
			}, nil
		},
	})

	start := time.Now()
	rep, err := svc.Evaluate(context.Background(), Request{TaskName: "hangs"})
	elapsed := time.Since(start)
	require.NoError(t, err)

	assert.Less(t, elapsed, 2*time.Second)
	assert.Equal(t, store.StatusFailed, rep.Status)
	assert.Equal(t, "evaluation timeout after 0.2s", rep.Error)
	assert.Nil(t, rep.Result)
	assert.Contains(t, rep.Stdout, "safety timeout")
	assert.Equal(t, int32(1), released.Load(), "simulation released exactly once")

	require.Len(t, w.runs, 1)
	assert.Equal(t, rep.Error, w.runs[0].Error)
	assert.Empty(t, w.runs[0].Cases)
}

func TestEvaluate_OpenFailure(t *testing.T) {
	svc := newService(t, Options{
		Open: func(ctx context.Context, task scenarios.Entry) (sim.Handle, func(), error) {
			return nil, nil, errors.New("chrome not reachable")
		},
	})

	rep, err := svc.Evaluate(context.Background(), Request{TaskName: "all_pass"})
	require.NoError(t, err)
	assert.Equal(t, store.StatusFailed, rep.Status)
	assert.Contains(t, rep.Error, "open simulation")
	assert.Contains(t, rep.Error, "chrome not reachable")
	assert.Contains(t, rep.Stdout, `msg="evaluation failed"`)
}

func TestEvaluate_PassesConfig(t *testing.T) {
	w := &memWriter{}
	svc := newService(t, Options{Store: w})

	rep, err := svc.Evaluate(context.Background(), Request{
		TaskName:   "configured",
		Timeout:    3 * time.Second,
		SpriteName: "Cat",
		Overrides:  map[string]any{"greeting": "hi"},
	})
	require.NoError(t, err)
	assert.True(t, rep.Passed(), "details: %+v", rep.Result)

	require.Len(t, w.runs, 1)
	assert.Equal(t, map[string]any{
		"greeting":    "hi",
		"sprite_name": "Cat",
		"timeout":     3.0,
	}, w.runs[0].Config)
}

func TestEvaluate_PersistFailure(t *testing.T) {
	svc := newService(t, Options{Store: &memWriter{err: errors.New("disk full")}})

	rep, err := svc.Evaluate(context.Background(), Request{TaskName: "all_pass"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.True(t, rep.Passed(), "the report is still returned")
}

func TestEvaluate_CancelledContext(t *testing.T) {
	svc := newService(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := svc.Evaluate(ctx, Request{TaskName: "all_pass"})
	require.NoError(t, err)
	assert.Equal(t, store.StatusFailed, rep.Status)
	assert.Contains(t, rep.Error, context.Canceled.Error())
}

func TestEvaluateAll_KeepsOrder(t *testing.T) {
	w := &memWriter{}
	svc := newService(t, Options{Store: w})

	reps, err := svc.EvaluateAll(context.Background(), []Request{
		{TaskName: "pass_fail"},
		{TaskName: "all_pass"},
		{TaskName: "configured", SpriteName: "Cat", Overrides: map[string]any{"greeting": "hi"}},
	}, 3)
	require.NoError(t, err)
	require.Len(t, reps, 3)

	assert.Equal(t, "pass_fail", reps[0].TaskName)
	assert.False(t, reps[0].Passed())
	assert.Equal(t, "all_pass", reps[1].TaskName)
	assert.True(t, reps[1].Passed())
	assert.Equal(t, "configured", reps[2].TaskName)
	assert.True(t, reps[2].Passed())
	assert.Len(t, w.runs, 3)
}

func TestEvaluateAll_StampsRuns(t *testing.T) {
	w := &memWriter{}
	clock := testutil.NewStepClock(testStart, time.Second)
	svc := newService(t, Options{
		Store: w,
		IDs:   testutil.NewCountingIDs("eval"),
		Now:   clock.Now,
	})

	reps, err := svc.EvaluateAll(context.Background(), []Request{
		{TaskName: "all_pass"},
		{TaskName: "pass_fail"},
	}, 1)
	require.NoError(t, err)
	require.Len(t, reps, 2)

	assert.Equal(t, "eval-1", reps[0].RunID)
	assert.Equal(t, testStart, reps[0].StartedAt)
	assert.Equal(t, "eval-2", reps[1].RunID)
	assert.Equal(t, testStart.Add(time.Second), reps[1].StartedAt)

	require.Len(t, w.runs, 2)
	assert.Equal(t, "eval-1", w.runs[0].ID)
	assert.Equal(t, testStart.Add(time.Second), w.runs[1].StartedAt)
}

func TestEvaluateAll_ChecksNamesFirst(t *testing.T) {
	w := &memWriter{}
	svc := newService(t, Options{Store: w})

	_, err := svc.EvaluateAll(context.Background(), []Request{
		{TaskName: "all_pass"},
		{TaskName: "missing"},
	}, 1)
	require.ErrorIs(t, err, ErrUnknownTask)
	assert.Empty(t, w.runs, "nothing runs when a name is unknown")
}

func TestMemsimOpener_NoReferenceWorld(t *testing.T) {
	_, _, err := MemsimOpener()(context.Background(), scenarios.Entry{Name: "from_file"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no reference world")
}

func TestReport_MarshalJSON(t *testing.T) {
	rep := Report{RunID: "r", TaskName: "t", Status: store.StatusSuccess, Duration: 1500 * time.Millisecond}
	data, err := rep.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"duration_ms":1500`)
	assert.Contains(t, string(data), `"run_id":"r"`)
	assert.NotContains(t, string(data), `"result"`)
}
