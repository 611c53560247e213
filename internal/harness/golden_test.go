package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshot_KeepsOnlyRequestedMeta(t *testing.T) {
	res := NewScenarioResult([]CaseResult{
		{Name: "moves", Passed: true, Status: StatusPassed, Meta: map[string]any{"ratio": 1.0, "moving_frames": 3}},
		{Name: "hangs", Status: StatusTimedOut, Error: "case hangs timed out", Meta: map[string]any{"timeout": true}},
	})

	snap := Snapshot("motion", res, "ratio")

	assert.Equal(t, "motion", snap.ScenarioName)
	assert.Equal(t, 1, snap.PassedTests)
	assert.Equal(t, 2, snap.TotalTests)
	assert.Equal(t, map[string]any{"ratio": 1.0}, snap.Cases[0].Meta)
	assert.Nil(t, snap.Cases[1].Meta)
	assert.Equal(t, StatusTimedOut, snap.Cases[1].Status)
	assert.Equal(t, "case hangs timed out", snap.Cases[1].Error)
}

func TestSnapshot_Empty(t *testing.T) {
	snap := Snapshot("empty", NewScenarioResult(nil))
	assert.Empty(t, snap.Cases)
	assert.True(t, snap.Success)
}
