package harness

import (
	"encoding/json"
	"time"
)

// CaseStatus is the state of one case in the runner's state machine:
// PENDING -> RUNNING -> PASSED | FAILED | ERRORED | TIMED_OUT.
type CaseStatus string

const (
	StatusPending  CaseStatus = "PENDING"
	StatusRunning  CaseStatus = "RUNNING"
	StatusPassed   CaseStatus = "PASSED"
	StatusFailed   CaseStatus = "FAILED"
	StatusErrored  CaseStatus = "ERRORED"
	StatusTimedOut CaseStatus = "TIMED_OUT"
)

// Terminal reports whether s ends a case.
func (s CaseStatus) Terminal() bool {
	switch s {
	case StatusPassed, StatusFailed, StatusErrored, StatusTimedOut:
		return true
	default:
		return false
	}
}

// CaseResult is the outcome of one case. It is not modified after the
// runner returns it.
type CaseResult struct {
	Name   string         `json:"name"`
	Passed bool           `json:"passed"`
	Status CaseStatus     `json:"status"`
	Error  string         `json:"error,omitempty"`
	Meta   map[string]any `json:"meta,omitempty"`

	// Duration is wall time from setup to the end of teardown.
	Duration time.Duration `json:"-"`
}

// MarshalJSON renders Duration as whole milliseconds.
func (r CaseResult) MarshalJSON() ([]byte, error) {
	type plain CaseResult
	return json.Marshal(struct {
		plain
		DurationMS int64 `json:"duration_ms"`
	}{plain(r), r.Duration.Milliseconds()})
}

// ScenarioResult summarizes one scenario run.
//
// Invariants (established by NewScenarioResult):
//   - PassedTests == count(Details where Passed)
//   - PartialSuccessRate == PassedTests/TotalTests, 0 when TotalTests is 0
//   - Success == (PassedTests == TotalTests)
type ScenarioResult struct {
	Success            bool         `json:"success"`
	PassedTests        int          `json:"passed_tests"`
	TotalTests         int          `json:"total_tests"`
	PartialSuccessRate float64      `json:"partial_success_rate"`
	Details            []CaseResult `json:"details"`
}

// NewScenarioResult aggregates case results, preserving their order.
func NewScenarioResult(details []CaseResult) ScenarioResult {
	res := ScenarioResult{
		TotalTests: len(details),
		Details:    append([]CaseResult{}, details...),
	}
	for _, d := range details {
		if d.Passed {
			res.PassedTests++
		}
	}
	if res.TotalTests > 0 {
		res.PartialSuccessRate = float64(res.PassedTests) / float64(res.TotalTests)
	}
	res.Success = res.PassedTests == res.TotalTests
	return res
}

// Failed returns the results of every case that did not pass.
func (r ScenarioResult) Failed() []CaseResult {
	var out []CaseResult
	for _, d := range r.Details {
		if !d.Passed {
			out = append(out, d)
		}
	}
	return out
}
