package timing

import "sync/atomic"

// Clock is a monotonic logical clock used to stamp samples and events.
//
// Wall-clock timestamps from two goroutines can tie or go backwards across a
// clock adjustment; the sequence number cannot, so histories are ordered by
// Seq and only use wall time for gap measurements.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
