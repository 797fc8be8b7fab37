package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hartree-labs/qrep/internal/eval"
	"github.com/hartree-labs/qrep/internal/gateset"
	"github.com/hartree-labs/qrep/internal/store"
	"github.com/hartree-labs/qrep/internal/trace"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <run-id>",
		Short: "Re-evaluate a recorded run and verify determinism",
		Long: `Re-run a recorded evaluation with its stored module, entry point,
backend, and result stream, then compare the fresh trace fingerprint against
the recorded one. A mismatch means the evaluation is no longer deterministic
(or the module file changed) and exits with code 1.

Example:
  qrep replay 0190a1b2-... --db runs.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run ledger (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

type replayReport struct {
	RunID       string `json:"run_id"`
	Module      string `json:"module"`
	Stored      string `json:"stored_fingerprint"`
	Replayed    string `json:"replayed_fingerprint"`
	Match       bool   `json:"match"`
	EventsMatch bool   `json:"events_match"`
}

func runReplay(opts *ReplayOptions, runID string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	run, err := st.ReadRun(ctx, runID)
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			return WrapExitError(ExitCommandError, "run not found", err)
		}
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	if run.Status != store.StatusCompleted {
		return NewExitError(ExitCommandError, fmt.Sprintf("run %s is %s, only completed runs can be replayed", runID, run.Status))
	}

	storedEvents, err := st.ReadTrace(ctx, runID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read stored trace", err)
	}

	inner, err := gateset.NewRegistry().New(run.Backend)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid backend in ledger", err)
	}
	recorder := trace.NewRecorder(inner)

	formatter.VerboseLog("replaying %s: module=%s backend=%s results=%v", runID, run.ModulePath, run.Backend, run.ResultStream)

	_, evalErr := eval.New().Eval(ctx, run.ModulePath, recorder,
		eval.WithEntryPoint(run.EntryPoint),
		eval.WithResults(run.ResultStream),
	)
	if evalErr != nil {
		_ = formatter.Error(faultCode(evalErr), fmt.Sprintf("replay of %s failed: %v", runID, evalErr), nil)
		return WrapExitError(ExitFailure, "replay evaluation failed", evalErr)
	}

	replayed, err := recorder.Fingerprint()
	if err != nil {
		return WrapExitError(ExitFailure, "failed to fingerprint replayed trace", err)
	}

	report := replayReport{
		RunID:       runID,
		Module:      run.ModulePath,
		Stored:      run.Fingerprint,
		Replayed:    replayed,
		Match:       replayed == run.Fingerprint,
		EventsMatch: sameEvents(storedEvents, recorder.Events()),
	}

	if opts.Format == "json" {
		if err := formatter.Success(report); err != nil {
			return err
		}
	} else if report.Match {
		fmt.Fprintf(cmd.OutOrStdout(), "deterministic: %s (%s)\n", runID, replayed)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "NON-DETERMINISTIC: %s\n  stored:   %s\n  replayed: %s\n", runID, run.Fingerprint, replayed)
	}

	if !report.Match {
		return NewExitError(ExitFailure, "replay fingerprint mismatch")
	}
	return nil
}

// sameEvents compares stored and replayed traces event by event. Fingerprints
// already cover this; the explicit comparison exists for --verbose diagnosis.
func sameEvents(a, b []trace.Event) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Seq != b[i].Seq || a[i].Op != b[i].Op || a[i].Result != b[i].Result {
			return false
		}
		if a[i].HasParam != b[i].HasParam || a[i].Param != b[i].Param {
			return false
		}
		if len(a[i].Qubits) != len(b[i].Qubits) {
			return false
		}
		for j := range a[i].Qubits {
			if a[i].Qubits[j] != b[i].Qubits[j] {
				return false
			}
		}
	}
	return true
}
