package store

import (
	"context"
	"fmt"
)

// WriteRun inserts a run and its case results in one transaction.
// Uses ON CONFLICT DO NOTHING for idempotency: a run ID that already exists
// keeps its original record and cases, and inserted is false.
func (s *Store) WriteRun(ctx context.Context, run RunRecord) (inserted bool, err error) {
	if run.ID == "" {
		return false, fmt.Errorf("write run: empty id")
	}
	if run.Status != StatusSuccess && run.Status != StatusFailed {
		return false, fmt.Errorf("write run %s: invalid status %q", run.ID, run.Status)
	}

	configJSON, err := marshalObject(run.Config)
	if err != nil {
		return false, fmt.Errorf("write run %s: %w", run.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("write run %s: begin tx: %w", run.ID, err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, task, status, success, passed_tests, total_tests, partial_success_rate,
		 error, stdout, backend, config, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Task,
		run.Status,
		boolToInt(run.Success),
		run.PassedTests,
		run.TotalTests,
		run.PartialSuccessRate,
		run.Error,
		run.Stdout,
		run.Backend,
		configJSON,
		run.StartedAt.UnixMilli(),
		run.Duration.Milliseconds(),
	)
	if err != nil {
		return false, fmt.Errorf("write run %s: %w", run.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write run %s: rows affected: %w", run.ID, err)
	}
	if affected == 0 {
		return false, nil
	}

	for i, c := range run.Cases {
		metaJSON, err := marshalObject(c.Meta)
		if err != nil {
			return false, fmt.Errorf("write run %s: case %q: %w", run.ID, c.Name, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO case_results
			(run_id, idx, name, passed, status, error, meta, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			run.ID,
			i,
			c.Name,
			boolToInt(c.Passed),
			c.Status,
			c.Error,
			metaJSON,
			c.Duration.Milliseconds(),
		)
		if err != nil {
			return false, fmt.Errorf("write run %s: case %q: %w", run.ID, c.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("write run %s: commit: %w", run.ID, err)
	}
	return true, nil
}

// DeleteRun removes a run and, through the foreign key, its cases.
// Deleting an unknown ID is not an error.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	return nil
}
