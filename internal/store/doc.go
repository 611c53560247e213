// Package store is the SQLite run ledger for scenario evaluations.
//
// Each evaluation is one row in runs, with its cases in case_results keyed
// by (run_id, idx) so the declared case order survives the round trip.
//
// # Ordering
//
// Listings are deterministic: ORDER BY started_at DESC, id COLLATE BINARY ASC.
// Case rows come back in declaration order (idx ASC).
//
// # Idempotency
//
// WriteRun uses ON CONFLICT DO NOTHING; writing the same run ID twice keeps
// the first record.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: case rows are deleted with their run
package store
