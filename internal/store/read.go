package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hartree-labs/qrep/internal/trace"
)

// ErrRunNotFound is returned when a run ID has no ledger entry.
var ErrRunNotFound = errors.New("run not found")

// ReadRun returns a run record by ID.
func (s *Store) ReadRun(ctx context.Context, runID string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, module_path, entry_point, backend, result_stream, fingerprint, status, error, created_at
		FROM runs
		WHERE id = ?
	`, runID)

	var run Run
	var streamJSON string
	err := row.Scan(
		&run.ID,
		&run.ModulePath,
		&run.EntryPoint,
		&run.Backend,
		&streamJSON,
		&run.Fingerprint,
		&run.Status,
		&run.Error,
		&run.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", runID, err)
	}

	if err := json.Unmarshal([]byte(streamJSON), &run.ResultStream); err != nil {
		return Run{}, fmt.Errorf("read run %s: unmarshal result stream: %w", runID, err)
	}

	return run, nil
}

// ReadTrace returns the stored gate trace of a run in program order.
// Returns an empty slice (not nil) for a run with no events.
func (s *Store) ReadTrace(ctx context.Context, runID string) ([]trace.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, op, qubits, param, result
		FROM gate_events
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read trace %s: %w", runID, err)
	}
	defer rows.Close()

	events := []trace.Event{}
	for rows.Next() {
		var ev trace.Event
		var qubitsJSON string
		var param sql.NullFloat64
		if err := rows.Scan(&ev.Seq, &ev.Op, &qubitsJSON, &param, &ev.Result); err != nil {
			return nil, fmt.Errorf("read trace %s: scan: %w", runID, err)
		}
		if err := json.Unmarshal([]byte(qubitsJSON), &ev.Qubits); err != nil {
			return nil, fmt.Errorf("read trace %s: unmarshal qubits: %w", runID, err)
		}
		if param.Valid {
			ev.Param = param.Float64
			ev.HasParam = true
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read trace %s: iterate: %w", runID, err)
	}

	return events, nil
}

// ReadMeasurements returns the stored measurement record of a run.
func (s *Store) ReadMeasurements(ctx context.Context, runID string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT result, outcome
		FROM measurements
		WHERE run_id = ?
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read measurements %s: %w", runID, err)
	}
	defer rows.Close()

	measurements := make(map[string]bool)
	for rows.Next() {
		var result string
		var outcome bool
		if err := rows.Scan(&result, &outcome); err != nil {
			return nil, fmt.Errorf("read measurements %s: scan: %w", runID, err)
		}
		measurements[result] = outcome
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read measurements %s: iterate: %w", runID, err)
	}

	return measurements, nil
}

// ListRuns returns runs ordered newest first (UUIDv7 IDs sort by time, but
// created_at is authoritative).
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, module_path, entry_point, backend, result_stream, fingerprint, status, error, created_at
		FROM runs
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var run Run
		var streamJSON string
		if err := rows.Scan(
			&run.ID,
			&run.ModulePath,
			&run.EntryPoint,
			&run.Backend,
			&streamJSON,
			&run.Fingerprint,
			&run.Status,
			&run.Error,
			&run.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("list runs: scan: %w", err)
		}
		if err := json.Unmarshal([]byte(streamJSON), &run.ResultStream); err != nil {
			return nil, fmt.Errorf("list runs: unmarshal result stream: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: iterate: %w", err)
	}

	return runs, nil
}
