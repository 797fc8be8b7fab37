package eval

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/hartree-labs/qrep/internal/gateset"
	"github.com/hartree-labs/qrep/internal/jit"
	"github.com/hartree-labs/qrep/internal/qir"
)

// Additional metadata keys the evaluator sets alongside
// gateset.ClassicalRegistersKey.
const (
	MetaEntryPoint  = "entry_point"
	MetaNumQubits   = "num_qubits"
	MetaNumResults  = "num_results"
	MetaResultsRead = "results_read"
)

// RunOption configures a single evaluation.
type RunOption func(*runConfig)

type runConfig struct {
	entryPoint string
	results    []bool
}

// WithEntryPoint names the entry point to execute. Required when the module
// has more than one entry-point candidate.
func WithEntryPoint(name string) RunOption {
	return func(c *runConfig) { c.entryPoint = name }
}

// WithResults supplies the pre-determined measurement outcome stream.
// Omitting it means every measurement reads as zero.
func WithResults(values []bool) RunOption {
	return func(c *runConfig) { c.results = values }
}

// Report summarizes a completed run. It mirrors what Finish received; the
// observable contract remains the backend callbacks plus Finish metadata.
type Report struct {
	EntryPoint         string
	QubitsUsed         int
	ResultsRead        int
	ClassicalRegisters map[string]bool
}

// Evaluator drives non-adaptive runs. The evaluator itself is reusable;
// all mutable state (registry, register, stream cursor) is scoped to one
// Eval call and never shared across runs.
type Evaluator struct {
	engine *jit.Engine
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithEngine substitutes a configured executor (step quota, call depth).
func WithEngine(engine *jit.Engine) Option {
	return func(e *Evaluator) { e.engine = engine }
}

// New creates an Evaluator with a default executor.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{engine: jit.New()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Eval loads the module at path, resolves the entry point, executes the
// program, and routes every quantum intrinsic through backend.
//
// Each measurement intrinsic consumes one value from the front of the result
// stream (false past its end). On normal termination, backend.Finish receives
// run metadata whose "classical_registers" entry is the full measurement
// record, and Eval returns a matching Report. On any fault — load error,
// entry-point ambiguity, unsupported external call, backend failure — the
// error is returned, Finish is not called, and no Report is produced.
//
// Eval blocks until the program terminates or faults; ctx cancellation is
// the only external interruption.
func (e *Evaluator) Eval(ctx context.Context, path string, backend gateset.GateSet, opts ...RunOption) (*Report, error) {
	var cfg runConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	module, err := qir.Load(path)
	if err != nil {
		return nil, err
	}

	entry, err := module.ResolveEntryPoint(cfg.entryPoint)
	if err != nil {
		return nil, fmt.Errorf("resolve entry point in %s: %w", path, err)
	}

	r := &runtime{
		backend:  backend,
		registry: NewQubitRegistry(),
		register: NewMeasurementRegister(),
		stream:   NewResultStream(cfg.results),
	}

	slog.Debug("evaluation starting",
		"module", path,
		"entry_point", entry.Name,
		"result_stream_len", r.stream.Len(),
	)

	if err := e.engine.Run(ctx, module, entry, r); err != nil {
		slog.Debug("evaluation failed", "module", path, "error", err)
		return nil, err
	}

	meta := gateset.Metadata{
		gateset.ClassicalRegistersKey: r.register.Snapshot(),
		MetaEntryPoint:                entry.Name,
		MetaNumQubits:                 r.registry.Len(),
		MetaNumResults:                r.register.Len(),
		MetaResultsRead:               r.stream.Consumed(),
	}
	if err := backend.Finish(meta); err != nil {
		return nil, &jit.RuntimeError{
			Code:    jit.ErrCodeBackendFailure,
			Message: fmt.Sprintf("finish failed: %v", err),
			Err:     err,
		}
	}

	slog.Debug("evaluation completed",
		"module", path,
		"qubits", r.registry.Len(),
		"results", r.register.Len(),
	)

	return &Report{
		EntryPoint:         entry.Name,
		QubitsUsed:         r.registry.Len(),
		ResultsRead:        r.stream.Consumed(),
		ClassicalRegisters: meta.ClassicalRegisters(),
	}, nil
}

// runtime is the per-run callback table handed to the executor. It owns the
// registry, register, and stream cursor exclusively for one run.
type runtime struct {
	backend  gateset.GateSet
	registry *QubitRegistry
	register *MeasurementRegister
	stream   *ResultStream
}

// resultName derives the stable classical-register name for a result handle.
func resultName(handle uint64) string {
	return "r" + strconv.FormatUint(handle, 10)
}

// Unitary routes a non-measurement gate, resolving handles to logical names.
func (r *runtime) Unitary(g jit.Gate, theta float64, qubits ...uint64) error {
	names := make([]string, len(qubits))
	for i, h := range qubits {
		names[i] = r.registry.Name(h)
	}

	switch g {
	case jit.GateCX:
		return r.backend.CX(names[0], names[1])
	case jit.GateCZ:
		return r.backend.CZ(names[0], names[1])
	case jit.GateH:
		return r.backend.H(names[0])
	case jit.GateReset:
		return r.backend.Reset(names[0])
	case jit.GateRX:
		return r.backend.RX(theta, names[0])
	case jit.GateRY:
		return r.backend.RY(theta, names[0])
	case jit.GateRZ:
		return r.backend.RZ(theta, names[0])
	case jit.GateS:
		return r.backend.S(names[0])
	case jit.GateSAdj:
		return r.backend.SAdj(names[0])
	case jit.GateT:
		return r.backend.T(names[0])
	case jit.GateTAdj:
		return r.backend.TAdj(names[0])
	case jit.GateX:
		return r.backend.X(names[0])
	case jit.GateY:
		return r.backend.Y(names[0])
	case jit.GateZ:
		return r.backend.Z(names[0])
	default:
		return fmt.Errorf("unroutable gate %s", g)
	}
}

// Measure consumes the next stream value, records it as the authoritative
// outcome for the result register, then notifies the backend.
func (r *runtime) Measure(g jit.Gate, qubit, result uint64) error {
	qubitName := r.registry.Name(qubit)
	name := resultName(result)

	outcome := r.stream.Next()
	r.register.Record(name, outcome)

	if g == jit.GateM {
		return r.backend.M(qubitName, name)
	}
	return r.backend.MZ(qubitName, name)
}

// ReadResult returns the recorded outcome for a result register, false if it
// was never measured.
func (r *runtime) ReadResult(result uint64) bool {
	return r.register.Lookup(resultName(result))
}
