package timing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime/debug"
	"time"
)

// MaxSeconds bounds Seconds: larger values do not fit in a time.Duration.
const MaxSeconds = float64(math.MaxInt64) / float64(time.Second)

// Seconds converts a non-negative number of seconds to a Duration. NaN,
// negative and infinite values fail, as do values of MaxSeconds or more.
func Seconds(secs float64) (time.Duration, error) {
	return scale(secs, time.Second, "seconds")
}

// Millis is Seconds for a number of milliseconds.
func Millis(ms float64) (time.Duration, error) {
	return scale(ms, time.Millisecond, "milliseconds")
}

func scale(v float64, unit time.Duration, name string) (time.Duration, error) {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0, fmt.Errorf("want non-negative %s, got %v", name, v)
	case v*float64(unit) >= float64(math.MaxInt64):
		return 0, fmt.Errorf("%v %s overflows a duration", v, name)
	}
	return time.Duration(v * float64(unit)), nil
}

// TimeoutError reports that an operation did not settle before its deadline.
type TimeoutError struct {
	// Op names the operation that overran (a case name, "observe_until", ...).
	Op string

	// After is the budget that was exceeded.
	After time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timeout after %s", e.Op, e.After)
}

// IsTimeout returns true if err is or wraps a *TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// PanicError carries a panic recovered from work run by WithTimeout.
type PanicError struct {
	Value any
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Wait suspends the calling flow for at least d, or until ctx is done.
// A non-positive d returns immediately (reporting ctx.Err() if already done).
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// WithTimeout races fn against a deadline of d.
//
// fn runs on its own goroutine with a context that is cancelled as soon as
// WithTimeout returns. When the deadline fires first, onTimeout (if non-nil) is
// invoked exactly once, after fn's context has been cancelled, and a
// *TimeoutError is returned; fn's eventual result is discarded. When fn and the deadline are ready together, fn's result wins.
// A panic inside fn is recovered and returned as a *PanicError.
//
// A non-positive d disables the deadline. Cancellation of the parent ctx
// settles the race with ctx.Err().
func WithTimeout(ctx context.Context, op string, d time.Duration, onTimeout func(), fn func(ctx context.Context) error) error {
	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- &PanicError{Value: r, Stack: debug.Stack()}
			}
		}()
		done <- fn(workCtx)
	}()

	var expired <-chan time.Time
	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case err := <-done:
		return err
	case <-expired:
		select {
		case err := <-done:
			return err
		default:
		}
		cancel()
		if onTimeout != nil {
			onTimeout()
		}
		return &TimeoutError{Op: op, After: d}
	case <-ctx.Done():
		return ctx.Err()
	}
}
