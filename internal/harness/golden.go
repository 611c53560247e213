package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// ResultSnapshot is the deterministic part of a scenario result: durations
// are dropped and metadata is limited to the keys a test chooses to pin.
type ResultSnapshot struct {
	ScenarioName       string         `json:"scenario_name"`
	Success            bool           `json:"success"`
	PassedTests        int            `json:"passed_tests"`
	TotalTests         int            `json:"total_tests"`
	PartialSuccessRate float64        `json:"partial_success_rate"`
	Cases              []CaseSnapshot `json:"cases"`
}

// CaseSnapshot is the deterministic part of a CaseResult.
type CaseSnapshot struct {
	Name   string         `json:"name"`
	Passed bool           `json:"passed"`
	Status CaseStatus     `json:"status"`
	Error  string         `json:"error,omitempty"`
	Meta   map[string]any `json:"meta,omitempty"`
}

// Snapshot reduces a result to its deterministic fields. Only the meta keys
// listed in keepMeta are kept.
func Snapshot(name string, res ScenarioResult, keepMeta ...string) ResultSnapshot {
	snap := ResultSnapshot{
		ScenarioName:       name,
		Success:            res.Success,
		PassedTests:        res.PassedTests,
		TotalTests:         res.TotalTests,
		PartialSuccessRate: res.PartialSuccessRate,
		Cases:              make([]CaseSnapshot, len(res.Details)),
	}
	for i, d := range res.Details {
		cs := CaseSnapshot{Name: d.Name, Passed: d.Passed, Status: d.Status, Error: d.Error}
		for _, k := range keepMeta {
			if v, ok := d.Meta[k]; ok {
				if cs.Meta == nil {
					cs.Meta = map[string]any{}
				}
				cs.Meta[k] = v
			}
		}
		snap.Cases[i] = cs
	}
	return snap
}

// AssertGolden compares a scenario result against
// testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func AssertGolden(t *testing.T, name string, res ScenarioResult, keepMeta ...string) error {
	t.Helper()

	data, err := json.MarshalIndent(Snapshot(name, res, keepMeta...), "", "  ")
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)

	return nil
}
