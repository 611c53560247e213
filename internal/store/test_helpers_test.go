package store

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"
)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var testEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// createTestRun creates a run whose counters agree with its cases.
func createTestRun(id, task string, startOffset time.Duration, passed ...bool) RunRecord {
	run := RunRecord{
		ID:        id,
		Task:      task,
		Backend:   "memsim",
		StartedAt: testEpoch.Add(startOffset),
		Duration:  2 * time.Second,
	}
	for i, p := range passed {
		status := "PASSED"
		if !p {
			status = "FAILED"
		}
		run.Cases = append(run.Cases, CaseRecord{
			Name:     "case_" + string(rune('a'+i)),
			Passed:   p,
			Status:   status,
			Duration: 100 * time.Millisecond,
		})
		if p {
			run.PassedTests++
		}
	}
	run.TotalTests = len(passed)
	if run.TotalTests > 0 {
		run.PartialSuccessRate = float64(run.PassedTests) / float64(run.TotalTests)
	}
	run.Success = run.PassedTests == run.TotalTests
	run.Status = StatusFailed
	if run.Success {
		run.Status = StatusSuccess
	}
	return run
}

func mustWriteRun(t *testing.T, s *Store, run RunRecord) {
	t.Helper()
	inserted, err := s.WriteRun(t.Context(), run)
	if err != nil {
		t.Fatalf("WriteRun(%s) failed: %v", run.ID, err)
	}
	if !inserted {
		t.Fatalf("WriteRun(%s) inserted = false, want true", run.ID)
	}
}

func getTableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table)
	if err != nil {
		t.Fatalf("failed to get indexes for %q: %v", table, err)
	}
	defer rows.Close()

	var indexes []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan index name: %v", err)
		}
		indexes = append(indexes, name)
	}
	return indexes
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
