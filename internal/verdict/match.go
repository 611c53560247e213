package verdict

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/scratchbench/internal/sim"
)

// MatchOptions controls text normalization before comparison. Text is always
// NFC-normalized and trimmed.
type MatchOptions struct {
	CaseInsensitive bool

	// Contains accepts an observed text that contains the expected one.
	Contains bool
}

// Normalize applies the comparison normalization to s.
func Normalize(s string, opts MatchOptions) string {
	s = strings.TrimSpace(norm.NFC.String(s))
	if opts.CaseInsensitive {
		s = cases.Fold().String(s)
	}
	return s
}

// Equal compares two observed values: numerically when both cast to numbers,
// otherwise as normalized text.
func Equal(a, b any, opts MatchOptions) bool {
	if x, ok := sim.ToNumber(a); ok {
		if y, ok := sim.ToNumber(b); ok {
			return x == y
		}
	}
	return Normalize(sim.ToString(a), opts) == Normalize(sim.ToString(b), opts)
}

func textMatches(observed, expected string, opts MatchOptions) bool {
	o, e := Normalize(observed, opts), Normalize(expected, opts)
	if opts.Contains {
		return strings.Contains(o, e)
	}
	return o == e
}

// ExactMatch compares one observed value with the expected literal.
func ExactMatch(observed, expected any, opts MatchOptions) Verdict {
	var ok bool
	if opts.Contains {
		ok = textMatches(sim.ToString(observed), sim.ToString(expected), opts)
	} else {
		ok = Equal(observed, expected, opts)
	}
	return Of(ok, map[string]any{
		"observed": observed,
		"expected": expected,
	})
}

// AnyMessage passes when at least one message matches expected.
func AnyMessage(messages []string, expected string, opts MatchOptions) Verdict {
	meta := map[string]any{
		"expected": expected,
		"messages": len(messages),
	}
	for i, m := range messages {
		if textMatches(m, expected, opts) {
			meta["matched"] = m
			meta["index"] = i
			return Pass(meta)
		}
	}
	if len(messages) == 0 {
		meta["reason"] = "no messages observed"
	} else {
		meta["last"] = messages[len(messages)-1]
	}
	return Fail(meta)
}
