package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hartree-labs/qrep/internal/eval"
	"github.com/hartree-labs/qrep/internal/store"
	"github.com/hartree-labs/qrep/internal/testutil"
)

// recordRun executes a run into a fresh ledger and returns the db path.
func recordRun(t *testing.T, runID string) string {
	t.Helper()
	dir := t.TempDir()
	path := testutil.WriteModule(t, dir, "bell.ll", testutil.BellSource)
	db := filepath.Join(dir, "runs.db")

	cmd, _ := testCommand()
	opts := &RunOptions{
		RootOptions:    textOpts(),
		Results:        "11",
		Database:       db,
		TokenGenerator: eval.NewFixedGenerator(runID),
	}
	require.NoError(t, runEval(opts, path, cmd))
	return db
}

func TestReplay_DeterministicRun(t *testing.T) {
	db := recordRun(t, "run-0001")
	cmd, out := testCommand()

	opts := &ReplayOptions{RootOptions: textOpts(), Database: db}
	require.NoError(t, runReplay(opts, "run-0001", cmd))
	assert.Contains(t, out.String(), "deterministic: run-0001")
}

func TestReplay_FingerprintMismatchFails(t *testing.T) {
	db := recordRun(t, "run-0001")

	// Corrupt the stored fingerprint to simulate a drifted module.
	st, err := store.Open(db)
	require.NoError(t, err)
	_, err = st.DB().Exec(`UPDATE runs SET fingerprint = 'bogus' WHERE id = 'run-0001'`)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	cmd, out := testCommand()
	opts := &ReplayOptions{RootOptions: textOpts(), Database: db}
	replayErr := runReplay(opts, "run-0001", cmd)
	require.Error(t, replayErr)
	assert.Equal(t, ExitFailure, GetExitCode(replayErr))
	assert.Contains(t, out.String(), "NON-DETERMINISTIC")
}

func TestReplay_UnknownRun(t *testing.T) {
	db := recordRun(t, "run-0001")
	cmd, _ := testCommand()

	opts := &ReplayOptions{RootOptions: textOpts(), Database: db}
	err := runReplay(opts, "run-9999", cmd)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReplay_FailedRunRejected(t *testing.T) {
	db := recordRun(t, "run-0001")

	st, err := store.Open(db)
	require.NoError(t, err)
	require.NoError(t, st.WriteRun(context.Background(), store.Run{ID: "run-0002", ModulePath: "gone.ll"}))
	require.NoError(t, st.FailRun(context.Background(), "run-0002", "boom"))
	require.NoError(t, st.Close())

	cmd, _ := testCommand()
	opts := &ReplayOptions{RootOptions: textOpts(), Database: db}
	replayErr := runReplay(opts, "run-0002", cmd)
	require.Error(t, replayErr)
	assert.Contains(t, replayErr.Error(), "only completed runs")
}

func TestTrace_PrintsStoredEvents(t *testing.T) {
	db := recordRun(t, "run-0001")
	cmd, out := testCommand()

	opts := &TraceOptions{RootOptions: textOpts(), Database: db}
	require.NoError(t, runTrace(opts, "run-0001", cmd))

	text := out.String()
	assert.Contains(t, text, "run:         run-0001 (completed)")
	assert.Contains(t, text, "h q0")
	assert.Contains(t, text, "cx q0, q1")
	assert.Contains(t, text, "mz q0 => r0")
	assert.Contains(t, text, "registers: r0=1 r1=1")
}

func TestTrace_UnknownRun(t *testing.T) {
	db := recordRun(t, "run-0001")
	cmd, _ := testCommand()

	opts := &TraceOptions{RootOptions: textOpts(), Database: db}
	err := runTrace(opts, "run-9999", cmd)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
