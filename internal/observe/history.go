package observe

import (
	"time"

	"github.com/roach88/scratchbench/internal/sim"
)

// Sample is one snapshot of observed state. Its values are private so that a
// Sample cannot change after the observer created it.
type Sample struct {
	// Seq orders samples within one observation.
	Seq int64

	// Offset is the time since the observation began.
	Offset time.Duration

	// Time is the wall-clock instant the sample was taken.
	Time time.Time

	// Absent marks a sample taken while the observed entity did not resolve.
	Absent bool

	values map[string]any
}

// NewSample builds a sample from values; the map is copied.
func NewSample(seq int64, offset time.Duration, values map[string]any) Sample {
	cp := make(map[string]any, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return Sample{Seq: seq, Offset: offset, values: cp}
}

// Get returns one observed value.
func (s Sample) Get(field string) (any, bool) {
	v, ok := s.values[field]
	return v, ok
}

// Number returns one observed value cast to a number.
func (s Sample) Number(field string) (float64, bool) {
	v, ok := s.values[field]
	if !ok {
		return 0, false
	}
	return sim.ToNumber(v)
}

// Values returns a copy of every observed value.
func (s Sample) Values() map[string]any {
	cp := make(map[string]any, len(s.values))
	for k, v := range s.values {
		cp[k] = v
	}
	return cp
}

// History is the ordered samples of one observation window.
type History struct {
	samples []Sample
}

// NewHistory builds a history from samples already in order.
func NewHistory(samples ...Sample) *History {
	return &History{samples: append([]Sample(nil), samples...)}
}

// FromValues builds a single-field history with one sample per value spaced
// interval apart. A nil value produces an absent sample.
func FromValues(field string, interval time.Duration, values ...any) *History {
	h := &History{}
	for i, v := range values {
		offset := time.Duration(i) * interval
		if v == nil {
			h.append(Sample{Seq: int64(i + 1), Offset: offset, Absent: true})
			continue
		}
		h.append(NewSample(int64(i+1), offset, map[string]any{field: v}))
	}
	return h
}

func (h *History) append(s Sample) {
	h.samples = append(h.samples, s)
}

// Len returns the number of samples, absent ones included.
func (h *History) Len() int {
	if h == nil {
		return 0
	}
	return len(h.samples)
}

// Samples returns the samples in order.
func (h *History) Samples() []Sample {
	if h == nil {
		return nil
	}
	return append([]Sample(nil), h.samples...)
}

// Point is one numeric value of a field at an offset.
type Point struct {
	Offset time.Duration
	Value  float64
}

// Series returns the numeric values of field, skipping absent samples and
// samples where the value is missing or not numeric.
func (h *History) Series(field string) []Point {
	if h == nil {
		return nil
	}
	out := make([]Point, 0, len(h.samples))
	for _, s := range h.samples {
		if s.Absent {
			continue
		}
		if n, ok := s.Number(field); ok {
			out = append(out, Point{Offset: s.Offset, Value: n})
		}
	}
	return out
}

// Raw returns the values of field as observed, skipping samples without it.
func (h *History) Raw(field string) []any {
	if h == nil {
		return nil
	}
	out := make([]any, 0, len(h.samples))
	for _, s := range h.samples {
		if v, ok := s.Get(field); ok && !s.Absent {
			out = append(out, v)
		}
	}
	return out
}

// Last returns the most recent present sample.
func (h *History) Last() (Sample, bool) {
	if h == nil {
		return Sample{}, false
	}
	for i := len(h.samples) - 1; i >= 0; i-- {
		if !h.samples[i].Absent {
			return h.samples[i], true
		}
	}
	return Sample{}, false
}

// AbsentCount returns how many samples were taken while the entity was gone.
func (h *History) AbsentCount() int {
	if h == nil {
		return 0
	}
	n := 0
	for _, s := range h.samples {
		if s.Absent {
			n++
		}
	}
	return n
}
