package store

import "time"

// Run statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// RunRecord is one persisted evaluation.
type RunRecord struct {
	ID                 string         `json:"id"`
	Task               string         `json:"task"`
	Status             string         `json:"status"`
	Success            bool           `json:"success"`
	PassedTests        int            `json:"passed_tests"`
	TotalTests         int            `json:"total_tests"`
	PartialSuccessRate float64        `json:"partial_success_rate"`
	Error              string         `json:"error,omitempty"`
	Stdout             string         `json:"stdout,omitempty"`
	Backend            string         `json:"backend,omitempty"`
	Config             map[string]any `json:"config,omitempty"`
	StartedAt          time.Time      `json:"started_at"`
	Duration           time.Duration  `json:"duration_ns"`

	// Cases is written by WriteRun. ListRuns leaves it empty; use
	// CaseResults or ReadRun.
	Cases []CaseRecord `json:"cases,omitempty"`
}

// CaseRecord is one persisted case result.
type CaseRecord struct {
	Index    int            `json:"index"`
	Name     string         `json:"name"`
	Passed   bool           `json:"passed"`
	Status   string         `json:"status"`
	Error    string         `json:"error,omitempty"`
	Meta     map[string]any `json:"meta,omitempty"`
	Duration time.Duration  `json:"duration_ns"`
}

// RunFilter narrows ListRuns. Zero values match everything.
type RunFilter struct {
	Task  string
	Limit int
}

// TaskSummary aggregates every stored run of one task.
type TaskSummary struct {
	Task           string  `json:"task"`
	Runs           int     `json:"runs"`
	Successes      int     `json:"successes"`
	SuccessRate    float64 `json:"success_rate"`
	AvgPartialRate float64 `json:"avg_partial_rate"`
	AvgDurationSec float64 `json:"avg_duration_sec"`
}
