package verdict

import (
	"math"
	"time"

	"github.com/roach88/scratchbench/internal/observe"
)

// Displacement passes when a field moved more than epsilon away from its first
// value: max_i |v[i] - v[0]| > epsilon.
func Displacement(h *observe.History, field string, epsilon float64) Verdict {
	pts := h.Series(field)
	if len(pts) < 2 {
		return insufficient("need at least 2 samples of %s, got %d", field, len(pts))
	}
	maxDisp := 0.0
	for _, p := range pts[1:] {
		maxDisp = math.Max(maxDisp, math.Abs(p.Value-pts[0].Value))
	}
	return Of(maxDisp > epsilon, map[string]any{
		"field":            field,
		"max_displacement": maxDisp,
		"epsilon":          epsilon,
		"samples":          len(pts),
	})
}

// Transition passes when two consecutive present samples go from -> to.
// Values compare numerically when both are numeric, otherwise as text.
func Transition(h *observe.History, field string, from, to any) Verdict {
	raw := h.Raw(field)
	meta := map[string]any{
		"field":   field,
		"from":    from,
		"to":      to,
		"samples": len(raw),
	}
	count := 0
	for i := 1; i < len(raw); i++ {
		if Equal(raw[i-1], from, MatchOptions{}) && Equal(raw[i], to, MatchOptions{}) {
			if count == 0 {
				meta["first_index"] = i
			}
			count++
		}
	}
	meta["transitions"] = count
	return Of(count > 0, meta)
}

// AlignmentOptions tunes Alignment.
type AlignmentOptions struct {
	// Sign is the expected direction of change: +1 or -1.
	Sign int

	// MinRatio is the fraction of moving frames that must move in Sign's
	// direction.
	MinRatio float64

	// MinFrames is the minimum number of moving frames.
	MinFrames int

	// Epsilon is the smallest |delta| that counts as movement. Zero means
	// DefaultEpsilon.
	Epsilon float64
}

// DefaultEpsilon is the movement threshold used when none is declared.
const DefaultEpsilon = 0.01

// Alignment counts frames whose delta is non-negligible and, among those, the
// frames whose delta has the expected sign. It passes when aligned/moving is at
// least MinRatio and moving is at least MinFrames, so noise alone never passes.
func Alignment(h *observe.History, field string, opts AlignmentOptions) Verdict {
	eps := opts.Epsilon
	if eps <= 0 {
		eps = DefaultEpsilon
	}
	pts := h.Series(field)

	moving, aligned := 0, 0
	for i := 1; i < len(pts); i++ {
		d := pts[i].Value - pts[i-1].Value
		if math.Abs(d) <= eps {
			continue
		}
		moving++
		if sign(d) == sign(float64(opts.Sign)) {
			aligned++
		}
	}

	ratio := 0.0
	if moving > 0 {
		ratio = float64(aligned) / float64(moving)
	}
	return Of(moving > 0 && moving >= opts.MinFrames && ratio >= opts.MinRatio, map[string]any{
		"field":          field,
		"sign":           opts.Sign,
		"ratio":          ratio,
		"moving_frames":  moving,
		"aligned_frames": aligned,
		"min_ratio":      opts.MinRatio,
		"min_frames":     opts.MinFrames,
	})
}

func sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// PeriodicOptions tunes PeriodicSteps.
type PeriodicOptions struct {
	// MinGap and MaxGap bound the accepted time between consecutive steps.
	// Zero values mean 650ms and 1700ms, a tolerance window around a
	// one-second cadence.
	MinGap, MaxGap time.Duration

	// MinGaps is how many in-window gaps are required. Zero means 2.
	MinGaps int

	// Sign restricts qualifying steps to one direction (+1 or -1); 0 accepts
	// both.
	Sign int

	// Epsilon is the smallest |delta| that counts as a step.
	Epsilon float64
}

// Default window of PeriodicSteps.
const (
	DefaultMinGap  = 650 * time.Millisecond
	DefaultMaxGap  = 1700 * time.Millisecond
	DefaultMinGaps = 2
)

// PeriodicSteps finds the samples where field changed by a qualifying delta
// and measures the time between consecutive changes. It passes when at least
// MinGaps of those gaps fall inside [MinGap, MaxGap].
func PeriodicSteps(h *observe.History, field string, opts PeriodicOptions) Verdict {
	if opts.MinGap <= 0 {
		opts.MinGap = DefaultMinGap
	}
	if opts.MaxGap <= 0 {
		opts.MaxGap = DefaultMaxGap
	}
	if opts.MinGaps <= 0 {
		opts.MinGaps = DefaultMinGaps
	}
	eps := opts.Epsilon
	if eps <= 0 {
		eps = DefaultEpsilon
	}

	pts := h.Series(field)
	var steps []time.Duration
	for i := 1; i < len(pts); i++ {
		d := pts[i].Value - pts[i-1].Value
		if math.Abs(d) <= eps {
			continue
		}
		if opts.Sign != 0 && sign(d) != sign(float64(opts.Sign)) {
			continue
		}
		steps = append(steps, pts[i].Offset)
	}

	gaps := make([]int64, 0, len(steps))
	inWindow := 0
	for i := 1; i < len(steps); i++ {
		gap := steps[i] - steps[i-1]
		gaps = append(gaps, gap.Milliseconds())
		if gap >= opts.MinGap && gap <= opts.MaxGap {
			inWindow++
		}
	}

	return Of(inWindow >= opts.MinGaps, map[string]any{
		"field":     field,
		"steps":     len(steps),
		"gaps_ms":   gaps,
		"in_window": inWindow,
		"min_gaps":  opts.MinGaps,
		"window_ms": []int64{opts.MinGap.Milliseconds(), opts.MaxGap.Milliseconds()},
	})
}

// DescendingLadder passes when the values of ladder appear in order among the
// samples of field, not necessarily contiguously (e.g. 5,4,3,2,1,0).
func DescendingLadder(h *observe.History, field string, ladder []float64) Verdict {
	if len(ladder) == 0 {
		return insufficient("empty ladder")
	}
	pts := h.Series(field)
	next := 0
	for _, p := range pts {
		if next < len(ladder) && p.Value == ladder[next] {
			next++
		}
	}
	meta := map[string]any{
		"field":   field,
		"ladder":  ladder,
		"matched": next,
		"samples": len(pts),
	}
	if next < len(ladder) {
		meta["next_expected"] = ladder[next]
	}
	return Of(next == len(ladder), meta)
}

// Stage bounds of a 480x360 Scratch stage centred on the origin.
const (
	StageHalfWidth  = 240
	StageHalfHeight = 180
)

// WrapOptions tunes EdgeWrap.
type WrapOptions struct {
	// Axis is the field that wraps ("x" or "y"); Orthogonal is the other one.
	Axis, Orthogonal string

	// Edge is the boundary magnitude. Zero means the stage edge of Axis:
	// StageHalfWidth for x, StageHalfHeight for y.
	Edge float64

	// Margin is how close to ±Edge a value must be to count as near it.
	Margin float64

	// MaxOrthogonal bounds |Δorthogonal| across the wrapping sample pair.
	MaxOrthogonal float64

	// Sign restricts the wrap direction: +1 for leaving the positive edge and
	// reappearing at the negative one, -1 for the reverse, 0 for either.
	Sign int
}

// EdgeWrap passes when consecutive samples jump from near one boundary to near
// the opposite boundary while the orthogonal axis barely changes. Gradual
// drift across the stage never satisfies it because both samples of the pair
// must sit within Margin of opposite edges.
func EdgeWrap(h *observe.History, opts WrapOptions) Verdict {
	if opts.Axis == "" {
		opts.Axis = "x"
	}
	if opts.Orthogonal == "" {
		opts.Orthogonal = "y"
		if opts.Axis == "y" {
			opts.Orthogonal = "x"
		}
	}
	if opts.Edge == 0 {
		opts.Edge = StageHalfWidth
		if opts.Axis == "y" {
			opts.Edge = StageHalfHeight
		}
	}
	near := opts.Edge - opts.Margin
	if opts.Edge < 0 || near <= 0 {
		return insufficient("edge %v with margin %v leaves no band near the boundary", opts.Edge, opts.Margin)
	}

	samples := h.Samples()
	meta := map[string]any{
		"axis":    opts.Axis,
		"edge":    opts.Edge,
		"margin":  opts.Margin,
		"samples": len(samples),
	}

	var prev *observe.Sample
	wraps := 0
	for i := range samples {
		cur := samples[i]
		if cur.Absent {
			continue
		}
		if prev != nil {
			pa, ok1 := prev.Number(opts.Axis)
			ca, ok2 := cur.Number(opts.Axis)
			po, ok3 := prev.Number(opts.Orthogonal)
			co, ok4 := cur.Number(opts.Orthogonal)
			if ok1 && ok2 && ok3 && ok4 && math.Abs(co-po) <= opts.MaxOrthogonal {
				forward := pa >= near && ca <= -near
				backward := pa <= -near && ca >= near
				if (forward && opts.Sign >= 0) || (backward && opts.Sign <= 0) {
					if wraps == 0 {
						meta["from"] = pa
						meta["to"] = ca
						meta["at_ms"] = cur.Offset.Milliseconds()
					}
					wraps++
				}
			}
		}
		prev = &samples[i]
	}
	meta["wraps"] = wraps
	return Of(wraps > 0, meta)
}
