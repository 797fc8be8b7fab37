package qir

import (
	"fmt"
	"sort"
)

// FormatVersion identifies the parsed-module schema. Bumped whenever the
// Instruction or Operand layout changes, so stale compact binaries are
// rejected instead of silently misread.
const FormatVersion = 1

// Opcode identifies the instruction kind within a basic block.
type Opcode int

const (
	// OpCall invokes an intrinsic or a function defined in the module.
	OpCall Opcode = iota
	// OpBr is an unconditional branch to Then.
	OpBr
	// OpCondBr branches to Then or Else depending on Cond.
	OpCondBr
	// OpRet returns from the current function.
	OpRet
)

// OperandKind discriminates Operand payloads.
type OperandKind int

const (
	// OperandQubit is a qubit handle (opaque pointer constant).
	OperandQubit OperandKind = iota
	// OperandResult is a classical result handle.
	OperandResult
	// OperandDouble is a float64 literal (rotation angles).
	OperandDouble
	// OperandInt is an integer literal.
	OperandInt
	// OperandBool is an i1 literal.
	OperandBool
	// OperandLocal references an SSA local by name.
	OperandLocal
)

// Operand is a single call or branch argument. Exactly one payload field is
// meaningful, selected by Kind. Fields are exported for the compact binary
// encoding (encoding/gob).
type Operand struct {
	Kind   OperandKind
	ID     uint64 // qubit/result handle
	Double float64
	Int    int64
	Bool   bool
	Local  string
}

func (o Operand) String() string {
	switch o.Kind {
	case OperandQubit:
		return fmt.Sprintf("qubit(%d)", o.ID)
	case OperandResult:
		return fmt.Sprintf("result(%d)", o.ID)
	case OperandDouble:
		return fmt.Sprintf("double(%g)", o.Double)
	case OperandInt:
		return fmt.Sprintf("i64(%d)", o.Int)
	case OperandBool:
		return fmt.Sprintf("i1(%t)", o.Bool)
	case OperandLocal:
		return "%" + o.Local
	default:
		return fmt.Sprintf("operand(kind=%d)", o.Kind)
	}
}

// Instruction is one executable step. For OpCall, Callee and Args are set and
// Dest names the SSA local receiving a value-producing call's result (empty
// for void calls). For branches, Then/Else hold block labels and Cond the
// i1 operand of a conditional branch.
type Instruction struct {
	Op     Opcode
	Dest   string
	Callee string
	Args   []Operand
	Cond   Operand
	Then   string
	Else   string
	Line   int // source line for diagnostics (0 for binary modules)
}

// Block is a labelled straight-line instruction sequence.
type Block struct {
	Label        string
	Instructions []Instruction
}

// Function is a zero-argument definition. EntryPoint marks definitions whose
// attribute group carries the entry-point marker.
type Function struct {
	Name       string
	EntryPoint bool
	Blocks     []Block
}

// Block returns the block with the given label, or nil.
func (f *Function) Block(label string) *Block {
	for i := range f.Blocks {
		if f.Blocks[i].Label == label {
			return &f.Blocks[i]
		}
	}
	return nil
}

// Module is a parsed QIR program: function definitions in declaration order
// plus the set of declared (external) symbol names.
type Module struct {
	Name      string
	Functions []Function
	Declared  []string
}

// Function returns the definition with the given name, or nil.
func (m *Module) Function(name string) *Function {
	for i := range m.Functions {
		if m.Functions[i].Name == name {
			return &m.Functions[i]
		}
	}
	return nil
}

// IsDeclared reports whether name appears in a declare line.
func (m *Module) IsDeclared(name string) bool {
	for _, d := range m.Declared {
		if d == name {
			return true
		}
	}
	return false
}

// EntryPoints returns the names of all entry-point candidates, sorted.
// Definitions marked with the entry-point attribute win; if none carries the
// marker, every definition is a candidate (single-definition modules then
// resolve without an explicit name).
func (m *Module) EntryPoints() []string {
	var marked []string
	for i := range m.Functions {
		if m.Functions[i].EntryPoint {
			marked = append(marked, m.Functions[i].Name)
		}
	}
	if marked == nil {
		for i := range m.Functions {
			marked = append(marked, m.Functions[i].Name)
		}
	}
	sort.Strings(marked)
	return marked
}

// ResolveEntryPoint selects the function execution starts at.
//
// With an explicit name, the named definition must exist. With an empty name,
// the module must have exactly one entry-point candidate; zero candidates is
// ErrNoEntryPoint and more than one is an AmbiguousEntryPointError.
func (m *Module) ResolveEntryPoint(name string) (*Function, error) {
	if name != "" {
		fn := m.Function(name)
		if fn == nil {
			return nil, fmt.Errorf("%w: %q", ErrEntryPointNotFound, name)
		}
		return fn, nil
	}

	candidates := m.EntryPoints()
	switch len(candidates) {
	case 0:
		return nil, ErrNoEntryPoint
	case 1:
		return m.Function(candidates[0]), nil
	default:
		return nil, &AmbiguousEntryPointError{Candidates: candidates}
	}
}
