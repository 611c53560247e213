// Package verdict holds the predicates that judge observed behavior.
//
// Every predicate is a pure function over a History, a value or a list of
// messages, and returns a Verdict with diagnostic metadata. None of them
// returns an error: missing samples or an empty history are ordinary failing
// verdicts whose Meta explains what was missing.
package verdict

import "fmt"

// Verdict is the outcome of one predicate.
type Verdict struct {
	Passed bool           `json:"passed"`
	Meta   map[string]any `json:"meta,omitempty"`
}

// Pass returns a passing verdict.
func Pass(meta map[string]any) Verdict {
	return Verdict{Passed: true, Meta: meta}
}

// Fail returns a failing verdict.
func Fail(meta map[string]any) Verdict {
	return Verdict{Passed: false, Meta: meta}
}

// Of returns a verdict passing when ok is true.
func Of(ok bool, meta map[string]any) Verdict {
	return Verdict{Passed: ok, Meta: meta}
}

// Reason returns the "reason" diagnostic, if any.
func (v Verdict) Reason() string {
	if r, ok := v.Meta["reason"].(string); ok {
		return r
	}
	return ""
}

func insufficient(format string, args ...any) Verdict {
	return Fail(map[string]any{"reason": fmt.Sprintf(format, args...)})
}

// All passes when every verdict passes. An empty list passes.
func All(vs ...Verdict) Verdict {
	checks := make([]map[string]any, len(vs))
	passed := true
	for i, v := range vs {
		checks[i] = map[string]any{"passed": v.Passed, "meta": v.Meta}
		passed = passed && v.Passed
	}
	return Of(passed, map[string]any{"checks": checks})
}

// Any passes when at least one verdict passes. An empty list fails.
func Any(vs ...Verdict) Verdict {
	checks := make([]map[string]any, len(vs))
	passed := false
	for i, v := range vs {
		checks[i] = map[string]any{"passed": v.Passed, "meta": v.Meta}
		passed = passed || v.Passed
	}
	return Of(passed, map[string]any{"checks": checks})
}
