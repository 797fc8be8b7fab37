// Package gateset defines the pluggable quantum-operation capability set
// invoked as callbacks during non-adaptive evaluation, plus the two bundled
// backends: a trace logger and a small statevector simulator.
package gateset

import (
	"fmt"
	"sort"
)

// ClassicalRegistersKey is the well-known RunMetadata key holding the final
// result-name → outcome mapping for the run.
const ClassicalRegistersKey = "classical_registers"

// Metadata is the run metadata passed to Finish at the end of a successful
// evaluation. It always carries ClassicalRegistersKey; evaluators may add
// further keys (entry point, qubit count) without breaking backends.
type Metadata map[string]any

// ClassicalRegisters returns the measurement mapping, or an empty map when
// the run performed no measurements.
func (m Metadata) ClassicalRegisters() map[string]bool {
	regs, ok := m[ClassicalRegistersKey].(map[string]bool)
	if !ok {
		return map[string]bool{}
	}
	return regs
}

// GateSet is the capability contract a backend implements to receive the
// quantum intrinsics of a run. Qubit and result identities arrive as stable
// logical names assigned by the evaluator's registry ("q0", "q1", ... and
// "r0", "r1", ...), never as raw JIT handles.
//
// Calls are synchronous and strictly program-ordered on a single goroutine;
// implementations need no locking. Any returned error aborts the run and
// suppresses Finish.
//
// M and MZ carry only the qubit and result names: the authoritative outcome
// is the evaluator's, sourced from the pre-supplied result stream. Backends
// that maintain quantum state perform their own measurement to keep that
// state consistent and keep whatever internal bookkeeping they need.
//
// Backends that allocate per-qubit resources must do so lazily on first
// reference, assigning physical slots in first-use order.
type GateSet interface {
	CX(control, target string) error
	CZ(control, target string) error
	H(target string) error
	M(qubit, result string) error
	MZ(qubit, result string) error
	Reset(target string) error
	RX(theta float64, target string) error
	RY(theta float64, target string) error
	RZ(theta float64, target string) error
	S(target string) error
	SAdj(target string) error
	T(target string) error
	TAdj(target string) error
	X(target string) error
	Y(target string) error
	Z(target string) error

	// Finish is called exactly once, after the last intrinsic of a successful
	// run. No other method may be called afterwards.
	Finish(meta Metadata) error
}

// Factory constructs a fresh backend instance for one run.
type Factory func() GateSet

// Registry maps backend names to factories. The zero value is unusable; use
// NewRegistry, which pre-registers the bundled backends.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns a registry with the bundled "logger" and "sim"
// backends registered.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register("logger", func() GateSet { return NewGateLogger() })
	r.Register("sim", func() GateSet { return NewSimulator() })
	return r
}

// Register adds or replaces a named backend factory.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// New constructs a fresh backend by name.
func (r *Registry) New(name string) (GateSet, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown backend %q (have %v)", name, r.Names())
	}
	return f(), nil
}

// Names lists registered backends, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
