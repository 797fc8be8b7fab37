package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hartree-labs/qrep/internal/trace"
)

// WriteRun inserts a run record in StatusRunning state.
// Uses ON CONFLICT(id) DO NOTHING for idempotency.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	streamJSON, err := json.Marshal(run.ResultStream)
	if err != nil {
		return fmt.Errorf("write run: marshal result stream: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, module_path, entry_point, backend, result_stream, status)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.ModulePath,
		run.EntryPoint,
		run.Backend,
		string(streamJSON),
		StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("write run %s: %w", run.ID, err)
	}

	return nil
}

// WriteTrace persists the full gate trace and measurement record of a run
// and marks it completed, all in a single transaction: a crash leaves either
// a complete recorded run or a run still marked running, never a torn trace.
func (s *Store) WriteTrace(ctx context.Context, runID string, events []trace.Event, measurements map[string]bool, fingerprint string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write trace %s: begin: %w", runID, err)
	}
	defer tx.Rollback()

	for _, ev := range events {
		qubitsJSON, err := json.Marshal(ev.Qubits)
		if err != nil {
			return fmt.Errorf("write trace %s: marshal qubits: %w", runID, err)
		}
		var param any
		if ev.HasParam {
			param = ev.Param
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO gate_events (run_id, seq, op, qubits, param, result)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(run_id, seq) DO NOTHING
		`, runID, ev.Seq, ev.Op, string(qubitsJSON), param, ev.Result); err != nil {
			return fmt.Errorf("write trace %s: event %d: %w", runID, ev.Seq, err)
		}
	}

	for result, outcome := range measurements {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO measurements (run_id, result, outcome)
			VALUES (?, ?, ?)
			ON CONFLICT(run_id, result) DO UPDATE SET outcome = excluded.outcome
		`, runID, result, outcome); err != nil {
			return fmt.Errorf("write trace %s: measurement %s: %w", runID, result, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE runs SET status = ?, fingerprint = ? WHERE id = ?
	`, StatusCompleted, fingerprint, runID); err != nil {
		return fmt.Errorf("write trace %s: finish run: %w", runID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write trace %s: commit: %w", runID, err)
	}

	return nil
}

// FailRun marks a run failed with a message. Partial traces are not written
// for failed runs; the ledger records only the failure itself.
func (s *Store) FailRun(ctx context.Context, runID, message string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, error = ? WHERE id = ?
	`, StatusFailed, message, runID)
	if err != nil {
		return fmt.Errorf("fail run %s: %w", runID, err)
	}
	return nil
}
