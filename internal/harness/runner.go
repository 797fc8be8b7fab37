package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hartree-labs/qrep/internal/eval"
	"github.com/hartree-labs/qrep/internal/gateset"
	"github.com/hartree-labs/qrep/internal/trace"
)

// Result captures everything a scenario can assert on: the recorded gate
// trace, the final classical registers, and the evaluator's report.
type Result struct {
	Scenario  *Scenario
	Events    []trace.Event
	Registers map[string]bool
	Report    *eval.Report

	// Err is the evaluation fault, nil on success. When a scenario expects
	// an error, Err is matched instead of Registers and Events.
	Err error
}

// Runner evaluates scenarios against a backend registry.
type Runner struct {
	evaluator *eval.Evaluator
	backends  *gateset.Registry
}

// NewRunner creates a Runner with the bundled backends.
func NewRunner() *Runner {
	return &Runner{
		evaluator: eval.New(),
		backends:  gateset.NewRegistry(),
	}
}

// Run evaluates one scenario and returns its observable outcome. Evaluation
// faults are captured in Result.Err rather than returned: a failing run is a
// legitimate outcome for scenarios that expect an error code. Run itself only
// errors on harness problems such as an unknown backend.
func (r *Runner) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	backendName := scenario.Backend
	if backendName == "" {
		backendName = "logger"
	}
	inner, err := r.backends.New(backendName)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	recorder := trace.NewRecorder(inner)

	slog.Debug("scenario starting",
		"name", scenario.Name,
		"module", scenario.Module,
		"backend", backendName,
	)

	report, evalErr := r.evaluator.Eval(ctx, scenario.Module, recorder,
		eval.WithEntryPoint(scenario.EntryPoint),
		eval.WithResults(scenario.Results),
	)

	result := &Result{
		Scenario: scenario,
		Events:   recorder.Events(),
		Err:      evalErr,
	}
	if report != nil {
		result.Report = report
		result.Registers = report.ClassicalRegisters
	}
	return result, nil
}

// Verify runs the scenario and checks every expectation, returning all
// failures joined rather than stopping at the first.
func (r *Runner) Verify(ctx context.Context, scenario *Scenario) error {
	result, err := r.Run(ctx, scenario)
	if err != nil {
		return err
	}
	return Check(result)
}
