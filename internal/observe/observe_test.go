package observe

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scratchbench/internal/sim"
	"github.com/roach88/scratchbench/internal/sim/memsim"
)

func counter() (SampleFunc, *atomic.Int64) {
	var n atomic.Int64
	return func(context.Context) (map[string]any, error) {
		return map[string]any{"n": float64(n.Add(1))}, nil
	}, &n
}

func TestObserve_FirstSampleBeforeAnyWait(t *testing.T) {
	fn, calls := counter()

	start := time.Now()
	h, err := Observe(context.Background(), fn, Options{Interval: time.Second})
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, int64(1), calls.Load())
	require.Equal(t, 1, h.Len())
	assert.Equal(t, int64(1), h.Samples()[0].Seq)
}

func TestObserve_SamplesAtCadence(t *testing.T) {
	fn, _ := counter()

	h, err := Observe(context.Background(), fn, Options{Duration: 250 * time.Millisecond, Interval: 50 * time.Millisecond})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, h.Len(), 4)
	assert.LessOrEqual(t, h.Len(), 7)

	samples := h.Samples()
	for i := 1; i < len(samples); i++ {
		assert.Greater(t, samples[i].Seq, samples[i-1].Seq)
		assert.GreaterOrEqual(t, samples[i].Offset, samples[i-1].Offset)
	}
}

func flaky(missing map[int64]bool, other error) SampleFunc {
	var n atomic.Int64
	return func(context.Context) (map[string]any, error) {
		i := n.Add(1)
		if missing[i] {
			return nil, &sim.NotFoundError{Kind: sim.NotFoundActor, Name: "Cat"}
		}
		if other != nil && i == 2 {
			return nil, other
		}
		return map[string]any{"x": float64(i)}, nil
	}
}

func TestObserve_AbsentPolicies(t *testing.T) {
	opts := func(p AbsentPolicy) Options {
		return Options{Duration: 120 * time.Millisecond, Interval: 10 * time.Millisecond, OnAbsent: p}
	}
	missing := map[int64]bool{2: true, 3: true}

	t.Run("skip", func(t *testing.T) {
		h, err := Observe(context.Background(), flaky(missing, nil), opts(AbsentSkip))
		require.NoError(t, err)
		assert.Zero(t, h.AbsentCount())
		assert.Greater(t, h.Len(), 2)
	})

	t.Run("record", func(t *testing.T) {
		h, err := Observe(context.Background(), flaky(missing, nil), opts(AbsentRecord))
		require.NoError(t, err)
		assert.Equal(t, 2, h.AbsentCount())
		assert.True(t, h.Samples()[1].Absent)
		assert.Len(t, h.Series("x"), h.Len()-2)
	})

	t.Run("stop", func(t *testing.T) {
		h, err := Observe(context.Background(), flaky(missing, nil), opts(AbsentStop))
		require.NoError(t, err)
		assert.Equal(t, 1, h.Len())
	})
}

func TestObserve_SampleErrorEndsObservation(t *testing.T) {
	boom := errors.New("boom")

	h, err := Observe(context.Background(), flaky(nil, boom), Options{Duration: time.Second, Interval: 5 * time.Millisecond})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, h.Len(), "history collected so far is returned")
}

func TestObserve_ContextCancelled(t *testing.T) {
	fn, _ := counter()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	h, err := Observe(ctx, fn, Options{Duration: 5 * time.Second, Interval: 5 * time.Millisecond})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, h.Len(), 1)
}

func TestParseAbsentPolicy(t *testing.T) {
	for in, want := range map[string]AbsentPolicy{"": AbsentSkip, "skip": AbsentSkip, "record": AbsentRecord, "stop": AbsentStop} {
		got, err := ParseAbsentPolicy(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.NotEmpty(t, got.String())
	}
	_, err := ParseAbsentPolicy("explode")
	assert.Error(t, err)
}

func sayLater(s *memsim.Sim, after time.Duration, texts ...string) {
	time.AfterFunc(after, func() {
		s.Do(func(w *memsim.World) {
			for _, text := range texts {
				w.Say(w.Sprite("Cat"), text)
			}
		})
	})
}

func TestObserveUntil_MatchesAndUnsubscribes(t *testing.T) {
	s := memsim.New(memsim.WithManualTicks(), memsim.WithSprite(memsim.SpriteSpec{Name: "Cat"}))
	sayLater(s, 20*time.Millisecond, "hmm", "Hello Ada!", "bye")

	m, err := ObserveUntil(context.Background(), s, sim.EventSay, func(ev sim.Event) bool {
		return ev.Text == "Hello Ada!"
	}, time.Second)
	require.NoError(t, err)

	assert.True(t, m.Matched)
	assert.Equal(t, "Hello Ada!", m.Event.Text)
	assert.Equal(t, "Cat", m.Event.Actor)
	require.Len(t, m.History, 2, "events after the match are not recorded")
	assert.Equal(t, "hmm", m.History[0].Text)
	assert.Zero(t, s.ListenerCount())
}

func TestObserveUntil_TimeoutIsNotAnError(t *testing.T) {
	s := memsim.New(memsim.WithManualTicks(), memsim.WithSprite(memsim.SpriteSpec{Name: "Cat"}))
	sayLater(s, 5*time.Millisecond, "nope")

	start := time.Now()
	m, err := ObserveUntil(context.Background(), s, sim.EventSay, func(ev sim.Event) bool {
		return ev.Text == "yes"
	}, 80*time.Millisecond)
	require.NoError(t, err)

	assert.False(t, m.Matched)
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
	assert.Len(t, m.History, 1)
	assert.Zero(t, s.ListenerCount())
}

func TestObserveUntil_ContextCancelled(t *testing.T) {
	s := memsim.New(memsim.WithManualTicks())
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	_, err := ObserveUntil(ctx, s, sim.EventAnswer, nil, 0)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, s.ListenerCount())
}
