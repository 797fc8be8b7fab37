package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hartree-labs/qrep/internal/harness"
)

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test <scenario-dir>",
		Short: "Run conformance scenarios from a directory",
		Long: `Run every YAML scenario in a directory: evaluate its module against
its result stream and check the expected registers and trace assertions.

Exits 1 if any scenario fails, 2 if the directory or a scenario file is
invalid.

Example:
  qrep test ./scenarios
  qrep test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

type scenarioResult struct {
	Name   string `json:"name"`
	File   string `json:"file"`
	Passed bool   `json:"passed"`
	Error  string `json:"error,omitempty"`
}

func runScenarios(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	files, err := harness.DiscoverScenarios(dir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to discover scenarios", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	runner := harness.NewRunner()
	results := make([]scenarioResult, 0, len(files))
	failed := 0

	for _, file := range files {
		scenario, err := harness.LoadScenario(file)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load scenario", err)
		}

		result := scenarioResult{Name: scenario.Name, File: file, Passed: true}
		if verifyErr := runner.Verify(ctx, scenario); verifyErr != nil {
			result.Passed = false
			result.Error = verifyErr.Error()
			failed++
		}
		results = append(results, result)

		if opts.Format != "json" {
			if result.Passed {
				fmt.Fprintf(cmd.OutOrStdout(), "PASS  %s\n", result.Name)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "FAIL  %s\n      %s\n", result.Name, result.Error)
			}
		}
	}

	if opts.Format == "json" {
		if err := formatter.Success(map[string]any{
			"scenarios": results,
			"total":     len(results),
			"failed":    failed,
		}); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d scenario(s), %d failed\n", len(results), failed)
	}

	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", failed))
	}
	return nil
}
