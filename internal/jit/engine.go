package jit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hartree-labs/qrep/internal/qir"
)

// DefaultMaxDepth bounds local-call recursion.
const DefaultMaxDepth = 256

// Callbacks is the intrinsic callback table the host supplies for one run.
// The engine hands over raw JIT-level handles; identity translation and
// measurement bookkeeping are the host's concern.
type Callbacks interface {
	// Unitary dispatches every non-measurement gate, reset included. theta is
	// meaningful only for the rotation gates.
	Unitary(g Gate, theta float64, qubits ...uint64) error

	// Measure dispatches m/mz for a qubit into a result register.
	Measure(g Gate, qubit, result uint64) error

	// ReadResult returns the recorded outcome for a result register, false if
	// it was never measured.
	ReadResult(result uint64) bool
}

// Engine executes modules. It is stateless across runs; per-run state lives
// on the stack of Run.
//
// Execution is single-threaded and synchronous: Run returns only after the
// program terminates or faults, and callbacks fire in strict program order.
type Engine struct {
	maxSteps int64
	maxDepth int
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxSteps sets an instruction quota for a run. Zero (the default) means
// unlimited: by contract a non-terminating program blocks the caller, and
// bounding it is a supervising caller's choice.
func WithMaxSteps(n int64) Option {
	return func(e *Engine) { e.maxSteps = n }
}

// WithMaxDepth bounds local-call recursion (default DefaultMaxDepth).
func WithMaxDepth(n int) Option {
	return func(e *Engine) { e.maxDepth = n }
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes entry within m, routing intrinsics through cb. It returns a
// *RuntimeError on any fault and the context error on cancellation.
func (e *Engine) Run(ctx context.Context, m *qir.Module, entry *qir.Function, cb Callbacks) error {
	r := &run{engine: e, module: m, callbacks: cb, clock: NewClock()}

	slog.Debug("execution starting", "module", m.Name, "entry", entry.Name)
	if err := r.callFunction(ctx, entry, 0); err != nil {
		return err
	}
	slog.Debug("execution finished", "module", m.Name, "steps", r.clock.Current())
	return nil
}

// run is the per-run execution state.
type run struct {
	engine    *Engine
	module    *qir.Module
	callbacks Callbacks
	clock     *Clock
}

// frame holds one function activation: its i1 locals, keyed by SSA name.
type frame struct {
	fn     *qir.Function
	locals map[string]bool
}

func (r *run) fault(f *frame, instr *qir.Instruction, code RuntimeErrorCode, format string, args ...any) error {
	re := &RuntimeError{Code: code, Message: fmt.Sprintf(format, args...)}
	if f != nil {
		re.Function = f.fn.Name
	}
	if instr != nil {
		re.Line = instr.Line
		re.Callee = instr.Callee
	}
	return re
}

func (r *run) callFunction(ctx context.Context, fn *qir.Function, depth int) error {
	if depth > r.engine.maxDepth {
		return &RuntimeError{
			Code:     ErrCodeCallDepth,
			Message:  fmt.Sprintf("call depth exceeds %d", r.engine.maxDepth),
			Function: fn.Name,
		}
	}
	if len(fn.Blocks) == 0 {
		return nil // empty definition: nothing to execute
	}

	f := &frame{fn: fn, locals: make(map[string]bool)}
	block := &fn.Blocks[0]

	for {
		next, err := r.execBlock(ctx, f, block, depth)
		if err != nil {
			return err
		}
		if next == "" {
			return nil // ret
		}
		block = fn.Block(next)
		if block == nil {
			return r.fault(f, nil, ErrCodeMissingBlock, "branch to undefined label %%%s", next)
		}
	}
}

// execBlock runs one basic block and returns the successor label, or "" on
// return from the function.
func (r *run) execBlock(ctx context.Context, f *frame, block *qir.Block, depth int) (string, error) {
	for i := range block.Instructions {
		instr := &block.Instructions[i]

		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("execution cancelled: %w", err)
		}
		step := r.clock.Next()
		if max := r.engine.maxSteps; max > 0 && step > max {
			return "", r.fault(f, instr, ErrCodeStepsExceeded, "instruction quota %d exhausted", max)
		}

		switch instr.Op {
		case qir.OpRet:
			return "", nil

		case qir.OpBr:
			return instr.Then, nil

		case qir.OpCondBr:
			cond, err := r.boolOperand(f, instr, instr.Cond)
			if err != nil {
				return "", err
			}
			if cond {
				return instr.Then, nil
			}
			return instr.Else, nil

		case qir.OpCall:
			if err := r.execCall(ctx, f, instr, depth); err != nil {
				return "", err
			}

		default:
			return "", r.fault(f, instr, ErrCodeBadOperand, "unknown opcode %d", instr.Op)
		}
	}
	return "", r.fault(f, nil, ErrCodeNoTerminator, "block %%%s falls off its end", block.Label)
}

func (r *run) execCall(ctx context.Context, f *frame, instr *qir.Instruction, depth int) error {
	callee := instr.Callee

	if spec, ok := intrinsicGates[callee]; ok {
		return r.dispatchGate(f, instr, spec)
	}

	if callee == readResultIntrinsic {
		if len(instr.Args) != 1 || instr.Args[0].Kind != qir.OperandResult {
			return r.fault(f, instr, ErrCodeBadOperand, "read_result expects one %%Result* operand")
		}
		outcome := r.callbacks.ReadResult(instr.Args[0].ID)
		if instr.Dest != "" {
			f.locals[instr.Dest] = outcome
		}
		return nil
	}

	if runtimeNoOps[callee] {
		return nil
	}

	if fn := r.module.Function(callee); fn != nil {
		return r.callFunction(ctx, fn, depth+1)
	}

	return r.fault(f, instr, ErrCodeUnsupportedCall,
		"call to %q is neither a supported intrinsic nor defined in the module", callee)
}

func (r *run) dispatchGate(f *frame, instr *qir.Instruction, spec gateSpec) error {
	var err error
	switch spec.shape {
	case shapeTwoQubit:
		var control, target uint64
		if control, err = r.qubitOperand(f, instr, 0); err != nil {
			return err
		}
		if target, err = r.qubitOperand(f, instr, 1); err != nil {
			return err
		}
		err = r.callbacks.Unitary(spec.gate, 0, control, target)

	case shapeOneQubit:
		var target uint64
		if target, err = r.qubitOperand(f, instr, 0); err != nil {
			return err
		}
		err = r.callbacks.Unitary(spec.gate, 0, target)

	case shapeRotation:
		if len(instr.Args) != 2 || instr.Args[0].Kind != qir.OperandDouble {
			return r.fault(f, instr, ErrCodeBadOperand, "%s expects (double, %%Qubit*)", spec.gate)
		}
		var target uint64
		if target, err = r.qubitOperand(f, instr, 1); err != nil {
			return err
		}
		err = r.callbacks.Unitary(spec.gate, instr.Args[0].Double, target)

	case shapeMeasure:
		if len(instr.Args) != 2 ||
			instr.Args[0].Kind != qir.OperandQubit ||
			instr.Args[1].Kind != qir.OperandResult {
			return r.fault(f, instr, ErrCodeBadOperand, "%s expects (%%Qubit*, %%Result*)", spec.gate)
		}
		err = r.callbacks.Measure(spec.gate, instr.Args[0].ID, instr.Args[1].ID)
	}

	if err != nil {
		return &RuntimeError{
			Code:     ErrCodeBackendFailure,
			Message:  fmt.Sprintf("gate %s failed: %v", spec.gate, err),
			Function: f.fn.Name,
			Callee:   instr.Callee,
			Line:     instr.Line,
			Err:      err,
		}
	}
	return nil
}

func (r *run) qubitOperand(f *frame, instr *qir.Instruction, idx int) (uint64, error) {
	if idx >= len(instr.Args) || instr.Args[idx].Kind != qir.OperandQubit {
		return 0, r.fault(f, instr, ErrCodeBadOperand,
			"operand %d of %q must be a %%Qubit*", idx, instr.Callee)
	}
	return instr.Args[idx].ID, nil
}

func (r *run) boolOperand(f *frame, instr *qir.Instruction, op qir.Operand) (bool, error) {
	switch op.Kind {
	case qir.OperandBool:
		return op.Bool, nil
	case qir.OperandLocal:
		v, ok := f.locals[op.Local]
		if !ok {
			return false, r.fault(f, instr, ErrCodeMissingLocal, "use of unassigned local %%%s", op.Local)
		}
		return v, nil
	default:
		return false, r.fault(f, instr, ErrCodeBadOperand, "branch condition must be an i1")
	}
}
