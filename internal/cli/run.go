package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hartree-labs/qrep/internal/eval"
	"github.com/hartree-labs/qrep/internal/gateset"
	"github.com/hartree-labs/qrep/internal/jit"
	"github.com/hartree-labs/qrep/internal/qir"
	"github.com/hartree-labs/qrep/internal/store"
	"github.com/hartree-labs/qrep/internal/trace"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	EntryPoint string
	Backend    string
	Results    string
	Database   string
	Manifest   string
	MaxSteps   int64

	// TokenGenerator allows overriding the run token generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	TokenGenerator eval.RunTokenGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run [module]",
		Short: "Evaluate a QIR module against a gate-set backend",
		Long: `Evaluate the classical control flow of a QIR module, dispatching
quantum intrinsics to the selected backend. Measurement outcomes come from
the --results bitstring in order; measurements past its end read as zero.

With --db, the run and its gate trace are recorded in the ledger under a
fresh run ID for later inspection (trace) and determinism checking (replay).

A CUE manifest can supply the module and settings instead of flags:

  qrep run --manifest run.cue

Example:
  qrep run bell.ll --results 11
  qrep run bell.ll --backend sim --db runs.db
  qrep run teleport.ll --entry-point main --results 010 --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			modulePath := ""
			if len(args) == 1 {
				modulePath = args[0]
			}
			return runEval(opts, modulePath, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.EntryPoint, "entry-point", "", "entry point to execute (required when ambiguous)")
	cmd.Flags().StringVar(&opts.Backend, "backend", "", "gate-set backend: logger|sim (default logger)")
	cmd.Flags().StringVar(&opts.Results, "results", "", "measurement outcome bitstring, e.g. 0110")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run ledger (enables recording)")
	cmd.Flags().StringVar(&opts.Manifest, "manifest", "", "CUE run manifest (flags override its values)")
	cmd.Flags().Int64Var(&opts.MaxSteps, "max-steps", 0, "abort after this many instructions (0 = unlimited)")

	return cmd
}

// parseResultBits converts a bitstring like "0110" to outcomes.
func parseResultBits(s string) ([]bool, error) {
	if s == "" {
		return nil, nil
	}
	bits := make([]bool, len(s))
	for i, c := range s {
		switch c {
		case '0':
			bits[i] = false
		case '1':
			bits[i] = true
		default:
			return nil, fmt.Errorf("invalid bit %q at position %d (want 0 or 1)", c, i)
		}
	}
	return bits, nil
}

// resolveRunConfig merges the manifest (if any) with explicit flags; flags win.
func resolveRunConfig(opts *RunOptions, modulePath string) (module, entryPoint, backend, db string, results []bool, err error) {
	if opts.Manifest != "" {
		manifest, loadErr := LoadManifest(opts.Manifest)
		if loadErr != nil {
			return "", "", "", "", nil, loadErr
		}
		module = manifest.Module
		entryPoint = manifest.EntryPoint
		backend = manifest.Backend
		db = manifest.Database
		results = manifest.Results
	}

	if modulePath != "" {
		module = modulePath
	}
	if opts.EntryPoint != "" {
		entryPoint = opts.EntryPoint
	}
	if opts.Backend != "" {
		backend = opts.Backend
	}
	if opts.Database != "" {
		db = opts.Database
	}
	if opts.Results != "" {
		results, err = parseResultBits(opts.Results)
		if err != nil {
			return "", "", "", "", nil, err
		}
	}

	if module == "" {
		return "", "", "", "", nil, fmt.Errorf("no module: pass a module path or --manifest")
	}
	if backend == "" {
		backend = "logger"
	}
	return module, entryPoint, backend, db, results, nil
}

type runReport struct {
	RunID       string          `json:"run_id,omitempty"`
	Module      string          `json:"module"`
	EntryPoint  string          `json:"entry_point"`
	Backend     string          `json:"backend"`
	QubitsUsed  int             `json:"qubits_used"`
	ResultsRead int             `json:"results_read"`
	Registers   map[string]bool `json:"registers"`
	Fingerprint string          `json:"fingerprint"`
	Events      int             `json:"events"`
}

func runEval(opts *RunOptions, modulePath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	module, entryPoint, backendName, db, results, err := resolveRunConfig(opts, modulePath)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid run configuration", err)
	}

	inner, err := gateset.NewRegistry().New(backendName)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid backend", err)
	}
	recorder := trace.NewRecorder(inner)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var st *store.Store
	runID := ""
	if db != "" {
		st, err = store.Open(db)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()

		tokenGen := opts.TokenGenerator
		if tokenGen == nil {
			tokenGen = eval.UUIDv7Generator{}
		}
		runID = tokenGen.Generate()

		if err := st.WriteRun(ctx, store.Run{
			ID:           runID,
			ModulePath:   module,
			EntryPoint:   entryPoint,
			Backend:      backendName,
			ResultStream: results,
		}); err != nil {
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
	}

	evaluator := eval.New(eval.WithEngine(jit.New(jit.WithMaxSteps(opts.MaxSteps))))
	report, evalErr := evaluator.Eval(ctx, module, recorder,
		eval.WithEntryPoint(entryPoint),
		eval.WithResults(results),
	)
	if evalErr != nil {
		if st != nil {
			if failErr := st.FailRun(ctx, runID, evalErr.Error()); failErr != nil {
				slog.Error("failed to record run failure", "run_id", runID, "error", failErr)
			}
		}
		_ = formatter.Error(faultCode(evalErr), evalErr.Error(), nil)
		return WrapExitError(ExitFailure, "evaluation failed", evalErr)
	}

	fingerprint, err := recorder.Fingerprint()
	if err != nil {
		return WrapExitError(ExitFailure, "failed to fingerprint trace", err)
	}

	if st != nil {
		if err := st.WriteTrace(ctx, runID, recorder.Events(), report.ClassicalRegisters, fingerprint); err != nil {
			return WrapExitError(ExitCommandError, "failed to record trace", err)
		}
	}

	out := runReport{
		RunID:       runID,
		Module:      module,
		EntryPoint:  report.EntryPoint,
		Backend:     backendName,
		QubitsUsed:  report.QubitsUsed,
		ResultsRead: report.ResultsRead,
		Registers:   report.ClassicalRegisters,
		Fingerprint: fingerprint,
		Events:      len(recorder.Events()),
	}

	if opts.Format == "json" {
		return formatter.Success(out)
	}
	printRunReport(formatter, out)
	return nil
}

func printRunReport(f *OutputFormatter, r runReport) {
	if r.RunID != "" {
		fmt.Fprintf(f.Writer, "run:         %s\n", r.RunID)
	}
	fmt.Fprintf(f.Writer, "module:      %s\n", r.Module)
	fmt.Fprintf(f.Writer, "entry point: %s\n", r.EntryPoint)
	fmt.Fprintf(f.Writer, "backend:     %s\n", r.Backend)
	fmt.Fprintf(f.Writer, "qubits:      %d\n", r.QubitsUsed)
	fmt.Fprintf(f.Writer, "events:      %d\n", r.Events)
	fmt.Fprintf(f.Writer, "fingerprint: %s\n", r.Fingerprint)
	fmt.Fprintf(f.Writer, "registers:   %s\n", formatRegisters(r.Registers))
}

// formatRegisters renders the classical registers sorted by name.
func formatRegisters(regs map[string]bool) string {
	if len(regs) == 0 {
		return "(none)"
	}
	names := make([]string, 0, len(regs))
	for name := range regs {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		bit := "0"
		if regs[name] {
			bit = "1"
		}
		parts[i] = name + "=" + bit
	}
	return strings.Join(parts, " ")
}

// faultCode extracts a stable code from an evaluation error for output.
func faultCode(err error) string {
	var runtimeErr *jit.RuntimeError
	if errors.As(err, &runtimeErr) {
		return string(runtimeErr.Code)
	}
	if qir.IsLoadError(err) {
		return "LOAD_FAILED"
	}
	return "EVAL_FAILED"
}
