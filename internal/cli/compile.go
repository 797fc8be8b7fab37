package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hartree-labs/qrep/internal/qir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <module.ll>",
		Short: "Compile a textual QIR module to compact binary form",
		Long: `Parse a textual QIR module and write its compact binary encoding.

The binary form loads without reparsing and is accepted anywhere a module
path is, including run, validate, and scenario files.

Example:
  qrep compile bell.ll
  qrep compile bell.ll -o build/bell.qbc`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output path (default: input with .qbc extension)")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	module, err := qir.Load(path)
	if err != nil {
		_ = formatter.Error("PARSE_FAILED", err.Error(), nil)
		return WrapExitError(ExitFailure, "compile failed", err)
	}

	output := opts.Output
	if output == "" {
		output = strings.TrimSuffix(path, filepath.Ext(path)) + ".qbc"
	}

	f, err := os.Create(output)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create output file", err)
	}
	defer f.Close()

	if err := qir.WriteBinary(f, module); err != nil {
		return WrapExitError(ExitCommandError, "failed to write binary module", err)
	}

	formatter.VerboseLog("compiled %d function(s), entry points: %v", len(module.Functions), module.EntryPoints())

	if opts.Format == "json" {
		return formatter.Success(map[string]any{
			"input":        path,
			"output":       output,
			"functions":    len(module.Functions),
			"entry_points": module.EntryPoints(),
		})
	}
	return formatter.Success(fmt.Sprintf("Compiled %s -> %s", path, output))
}
