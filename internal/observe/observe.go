// Package observe samples a running simulation over time.
//
// Observe polls a sample function on a fixed cadence for a bounded duration
// and returns the materialized History. ObserveUntil waits for a simulation
// event matching a predicate. Both release every timer and subscription they
// create on every return path.
package observe

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/scratchbench/internal/sim"
	"github.com/roach88/scratchbench/internal/timing"
)

// DefaultInterval is the sampling cadence when Options.Interval is zero.
const DefaultInterval = 100 * time.Millisecond

// SampleFunc reads the current values of the observed fields.
type SampleFunc func(ctx context.Context) (map[string]any, error)

// AbsentPolicy decides what happens when a SampleFunc reports that the
// observed entity does not resolve (a *sim.NotFoundError).
type AbsentPolicy int

const (
	// AbsentSkip drops the sample and keeps observing.
	AbsentSkip AbsentPolicy = iota

	// AbsentRecord keeps an Absent sample in the history and keeps observing.
	AbsentRecord

	// AbsentStop ends the observation and returns what was collected.
	AbsentStop
)

// String returns the policy name.
func (p AbsentPolicy) String() string {
	switch p {
	case AbsentSkip:
		return "skip"
	case AbsentRecord:
		return "record"
	case AbsentStop:
		return "stop"
	default:
		return fmt.Sprintf("AbsentPolicy(%d)", int(p))
	}
}

// ParseAbsentPolicy parses "skip", "record" or "stop"; "" means skip.
func ParseAbsentPolicy(s string) (AbsentPolicy, error) {
	switch s {
	case "", "skip":
		return AbsentSkip, nil
	case "record":
		return AbsentRecord, nil
	case "stop":
		return AbsentStop, nil
	default:
		return AbsentSkip, fmt.Errorf("unknown absent policy %q", s)
	}
}

// Options bounds one observation.
type Options struct {
	// Duration is how long to keep sampling after the first sample. Zero
	// takes exactly one sample.
	Duration time.Duration

	// Interval is the sampling cadence. Zero means DefaultInterval.
	Interval time.Duration

	// OnAbsent is the policy for samples whose entity does not resolve.
	OnAbsent AbsentPolicy
}

// Observe samples fn every Interval until Duration elapses. The first sample
// is taken before any wait. The history collected so far is returned with
// any error: a non-NotFound sample error or ctx cancellation ends the
// observation early.
func Observe(ctx context.Context, fn SampleFunc, opts Options) (*History, error) {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}

	clock := timing.NewClock()
	start := time.Now()
	h := &History{}

	take := func() (bool, error) {
		now := time.Now()
		values, err := fn(ctx)
		switch {
		case err == nil:
			s := NewSample(clock.Next(), now.Sub(start), values)
			s.Time = now
			h.append(s)
			return false, nil
		case sim.IsNotFound(err):
			switch opts.OnAbsent {
			case AbsentRecord:
				h.append(Sample{Seq: clock.Next(), Offset: now.Sub(start), Time: now, Absent: true})
				return false, nil
			case AbsentStop:
				return true, nil
			default:
				return false, nil
			}
		default:
			return true, fmt.Errorf("sample at %s: %w", now.Sub(start).Round(time.Millisecond), err)
		}
	}

	if stop, err := take(); stop || err != nil {
		return h, err
	}
	if opts.Duration <= 0 {
		return h, nil
	}

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()
	deadline := time.NewTimer(opts.Duration)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return h, ctx.Err()
		case <-deadline.C:
			return h, nil
		case <-ticker.C:
			if stop, err := take(); stop || err != nil {
				return h, err
			}
		}
	}
}

// Match is the outcome of ObserveUntil.
type Match struct {
	// Matched is true when an event satisfied the predicate in time.
	Matched bool `json:"matched"`

	// Event is the matching event (zero when Matched is false).
	Event sim.Event `json:"event"`

	// History is every event of the observed kind seen before settling.
	History []sim.Event `json:"history"`
}

// ObserveUntil subscribes to events of kind and settles on the first event
// for which predicate returns true, or when timeout elapses. A timeout is a
// normal non-matching outcome, not an error. The subscription is released on
// every path. A non-positive timeout waits until ctx is done.
func ObserveUntil(ctx context.Context, h sim.Handle, kind sim.EventKind, predicate func(sim.Event) bool, timeout time.Duration) (Match, error) {
	rec := newRecorder()
	matched := make(chan sim.Event, 1)

	handler := func(ev sim.Event) {
		if !rec.add(ev) {
			return
		}
		if predicate == nil || predicate(ev) {
			rec.close()
			select {
			case matched <- ev:
			default:
			}
		}
	}

	var result Match
	err := WithSubscription(h, kind, handler, func() error {
		var expired <-chan time.Time
		if timeout > 0 {
			timer := time.NewTimer(timeout)
			defer timer.Stop()
			expired = timer.C
		}

		select {
		case ev := <-matched:
			result = Match{Matched: true, Event: ev}
		case <-expired:
			select {
			case ev := <-matched:
				result = Match{Matched: true, Event: ev}
			default:
			}
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	})
	rec.close()
	result.History = rec.Events()
	return result, err
}
