package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const runColumns = `id, task, status, success, passed_tests, total_tests, partial_success_rate,
	error, stdout, backend, config, started_at, duration_ms`

// ListRuns returns runs newest first, without their cases.
// Ordering is deterministic: started_at DESC, id COLLATE BINARY ASC.
//
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) ListRuns(ctx context.Context, f RunFilter) ([]RunRecord, error) {
	var (
		where []string
		args  []any
	)
	if f.Task != "" {
		where = append(where, "task = ?")
		args = append(args, f.Task)
	}

	query := "SELECT " + runColumns + " FROM runs"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY started_at DESC, id COLLATE BINARY ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun retrieves one run with its cases.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (RunRecord, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if err != nil {
		return RunRecord{}, err
	}

	run.Cases, err = s.CaseResults(ctx, id)
	if err != nil {
		return RunRecord{}, err
	}
	return run, nil
}

// CaseResults returns the cases of a run in declaration order.
// Returns an empty slice (not nil) for unknown runs.
func (s *Store) CaseResults(ctx context.Context, runID string) ([]CaseRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, name, passed, status, error, meta, duration_ms
		FROM case_results
		WHERE run_id = ?
		ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query case results: %w", err)
	}
	defer rows.Close()

	cases := []CaseRecord{}
	for rows.Next() {
		var (
			c          CaseRecord
			passed     int
			metaJSON   string
			durationMS int64
		)
		if err := rows.Scan(&c.Index, &c.Name, &passed, &c.Status, &c.Error, &metaJSON, &durationMS); err != nil {
			return nil, fmt.Errorf("scan case result: %w", err)
		}
		c.Passed = passed != 0
		c.Duration = time.Duration(durationMS) * time.Millisecond
		if c.Meta, err = unmarshalObject(metaJSON); err != nil {
			return nil, fmt.Errorf("case %q meta: %w", c.Name, err)
		}
		cases = append(cases, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate case results: %w", err)
	}
	return cases, nil
}

// Summarize aggregates all runs per task, ordered by task name.
func (s *Store) Summarize(ctx context.Context) ([]TaskSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT task,
		       COUNT(*),
		       SUM(success),
		       AVG(partial_success_rate),
		       AVG(duration_ms)
		FROM runs
		GROUP BY task
		ORDER BY task COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query summary: %w", err)
	}
	defer rows.Close()

	summaries := []TaskSummary{}
	for rows.Next() {
		var (
			ts         TaskSummary
			durationMS float64
		)
		if err := rows.Scan(&ts.Task, &ts.Runs, &ts.Successes, &ts.AvgPartialRate, &durationMS); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		if ts.Runs > 0 {
			ts.SuccessRate = float64(ts.Successes) / float64(ts.Runs)
		}
		ts.AvgDurationSec = durationMS / 1000
		summaries = append(summaries, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summary: %w", err)
	}
	return summaries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var (
		run        RunRecord
		success    int
		configJSON string
		startedMS  int64
		durationMS int64
	)
	err := row.Scan(
		&run.ID,
		&run.Task,
		&run.Status,
		&success,
		&run.PassedTests,
		&run.TotalTests,
		&run.PartialSuccessRate,
		&run.Error,
		&run.Stdout,
		&run.Backend,
		&configJSON,
		&startedMS,
		&durationMS,
	)
	if err == sql.ErrNoRows {
		return RunRecord{}, err
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("scan run: %w", err)
	}

	run.Success = success != 0
	run.StartedAt = time.UnixMilli(startedMS).UTC()
	run.Duration = time.Duration(durationMS) * time.Millisecond
	if run.Config, err = unmarshalObject(configJSON); err != nil {
		return RunRecord{}, fmt.Errorf("run %s config: %w", run.ID, err)
	}
	return run, nil
}
