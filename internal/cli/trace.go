package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hartree-labs/qrep/internal/store"
	"github.com/hartree-labs/qrep/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace <run-id>",
		Short: "Show the recorded gate trace of a run",
		Long: `Print the gate trace of a recorded run in program order, together
with the run's final classical registers.

Example:
  qrep trace 0190a1b2-... --db runs.db
  qrep trace 0190a1b2-... --db runs.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run ledger (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runTrace(opts *TraceOptions, runID string, cmd *cobra.Command) error {
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

	events, err := st.ReadTrace(ctx, runID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read trace", err)
	}

	measurements, err := st.ReadMeasurements(ctx, runID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read measurements", err)
	}

	if opts.Format == "json" {
		return formatter.Success(map[string]any{
			"run":       run,
			"events":    events,
			"registers": measurements,
		})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "run:         %s (%s)\n", run.ID, run.Status)
	fmt.Fprintf(cmd.OutOrStdout(), "module:      %s\n", run.ModulePath)
	fmt.Fprintf(cmd.OutOrStdout(), "backend:     %s\n", run.Backend)
	if run.Fingerprint != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "fingerprint: %s\n", run.Fingerprint)
	}
	if run.Error != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "error:       %s\n", run.Error)
	}
	fmt.Fprintln(cmd.OutOrStdout())
	for _, ev := range events {
		fmt.Fprintf(cmd.OutOrStdout(), "%4d  %s\n", ev.Seq, formatEvent(ev))
	}
	if len(measurements) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "\nregisters: %s\n", formatRegisters(measurements))
	}
	return nil
}

// formatEvent renders one trace event in gate-log style.
func formatEvent(ev trace.Event) string {
	line := ev.Op
	if ev.HasParam {
		line = fmt.Sprintf("%s(%.6f)", ev.Op, ev.Param)
	}
	for i, q := range ev.Qubits {
		if i == 0 {
			line += " " + q
		} else {
			line += ", " + q
		}
	}
	if ev.Result != "" {
		line += " => " + ev.Result
	}
	return line
}
