package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hartree-labs/qrep/internal/trace"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func sampleRun(id string) Run {
	return Run{
		ID:           id,
		ModulePath:   "bell.ll",
		EntryPoint:   "main",
		Backend:      "logger",
		ResultStream: []bool{true, false},
	}
}

func sampleEvents() []trace.Event {
	return []trace.Event{
		{Seq: 1, Op: "h", Qubits: []string{"q0"}},
		{Seq: 2, Op: "rz", Qubits: []string{"q0"}, Param: 0.5, HasParam: true},
		{Seq: 3, Op: "mz", Qubits: []string{"q0"}, Result: "r0"},
	}
}

func TestOpen_Pragmas(t *testing.T) {
	st := openTestStore(t)

	require.NoError(t, st.verifyPragma("journal_mode", "wal"))
	require.NoError(t, st.verifyPragma("foreign_keys", "1"))
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.WriteRun(context.Background(), sampleRun("run-1")))
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close()

	run, err := second.ReadRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "bell.ll", run.ModulePath)
}

func TestWriteRun_ReadRun(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.WriteRun(ctx, sampleRun("run-1")))

	run, err := st.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, "main", run.EntryPoint)
	assert.Equal(t, "logger", run.Backend)
	assert.Equal(t, []bool{true, false}, run.ResultStream)
	assert.Equal(t, StatusRunning, run.Status)
	assert.NotEmpty(t, run.CreatedAt)
}

func TestWriteRun_Idempotent(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	run := sampleRun("run-1")
	require.NoError(t, st.WriteRun(ctx, run))

	// Second insert with the same ID is a no-op, not an error.
	run.ModulePath = "other.ll"
	require.NoError(t, st.WriteRun(ctx, run))

	stored, err := st.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "bell.ll", stored.ModulePath)
}

func TestReadRun_NotFound(t *testing.T) {
	st := openTestStore(t)

	_, err := st.ReadRun(context.Background(), "missing")
	require.ErrorIs(t, err, ErrRunNotFound)
}

func TestWriteTrace_RoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.WriteRun(ctx, sampleRun("run-1")))
	events := sampleEvents()
	measurements := map[string]bool{"r0": true}
	require.NoError(t, st.WriteTrace(ctx, "run-1", events, measurements, "fp-abc"))

	run, err := st.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, run.Status)
	assert.Equal(t, "fp-abc", run.Fingerprint)

	stored, err := st.ReadTrace(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, events, stored)

	regs, err := st.ReadMeasurements(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, measurements, regs)
}

func TestReadTrace_EmptyIsNotNil(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.WriteRun(ctx, sampleRun("run-1")))

	events, err := st.ReadTrace(ctx, "run-1")
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestFailRun(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.WriteRun(ctx, sampleRun("run-1")))
	require.NoError(t, st.FailRun(ctx, "run-1", "UNSUPPORTED_EXTERNAL_CALL: oops"))

	run, err := st.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, run.Status)
	assert.Contains(t, run.Error, "UNSUPPORTED_EXTERNAL_CALL")
}

func TestListRuns_NewestFirst(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	// UUIDv7-style IDs sort with time; created_at ties are broken by id.
	require.NoError(t, st.WriteRun(ctx, sampleRun("run-a")))
	require.NoError(t, st.WriteRun(ctx, sampleRun("run-b")))
	require.NoError(t, st.WriteRun(ctx, sampleRun("run-c")))

	runs, err := st.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "run-c", runs[0].ID)

	limited, err := st.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}
