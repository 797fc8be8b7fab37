package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hartree-labs/qrep/internal/qir"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <module...>",
		Short: "Validate QIR modules without executing them",
		Long: `Parse each module and check that an entry point resolves.

Validation fails on parse errors, modules with no entry point, and modules
whose entry point is ambiguous (multiple candidates without an explicit
entry_point attribute to disambiguate).

Example:
  qrep validate bell.ll
  qrep validate modules/*.ll --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

type validateResult struct {
	Module      string   `json:"module"`
	Valid       bool     `json:"valid"`
	EntryPoints []string `json:"entry_points,omitempty"`
	Error       string   `json:"error,omitempty"`
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	results := make([]validateResult, 0, len(paths))
	failed := 0
	for _, path := range paths {
		result := validateModule(path)
		if !result.Valid {
			failed++
		}
		results = append(results, result)
	}

	if opts.Format == "json" {
		if err := formatter.Success(results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if r.Valid {
				fmt.Fprintf(cmd.OutOrStdout(), "ok    %s (entry points: %v)\n", r.Module, r.EntryPoints)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "FAIL  %s: %s\n", r.Module, r.Error)
			}
		}
	}

	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d module(s) failed validation", failed, len(paths)))
	}
	return nil
}

func validateModule(path string) validateResult {
	module, err := qir.Load(path)
	if err != nil {
		return validateResult{Module: path, Error: err.Error()}
	}

	if _, err := module.ResolveEntryPoint(""); err != nil && !qir.IsAmbiguousEntryPoint(err) {
		// Ambiguity is fine for validation as long as candidates exist:
		// the run command can still select one with --entry-point.
		return validateResult{Module: path, Error: err.Error()}
	}

	return validateResult{
		Module:      path,
		Valid:       true,
		EntryPoints: module.EntryPoints(),
	}
}
