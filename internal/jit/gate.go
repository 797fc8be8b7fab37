// Package jit executes a parsed QIR module's classical control flow on the
// calling goroutine, routing every quantum intrinsic through a host-supplied
// callback table. It performs no quantum simulation itself.
package jit

// Gate identifies a quantum intrinsic operation.
type Gate int

const (
	GateCX Gate = iota
	GateCZ
	GateH
	GateM
	GateMZ
	GateReset
	GateRX
	GateRY
	GateRZ
	GateS
	GateSAdj
	GateT
	GateTAdj
	GateX
	GateY
	GateZ
)

var gateNames = map[Gate]string{
	GateCX:    "cx",
	GateCZ:    "cz",
	GateH:     "h",
	GateM:     "m",
	GateMZ:    "mz",
	GateReset: "reset",
	GateRX:    "rx",
	GateRY:    "ry",
	GateRZ:    "rz",
	GateS:     "s",
	GateSAdj:  "s_adj",
	GateT:     "t",
	GateTAdj:  "t_adj",
	GateX:     "x",
	GateY:     "y",
	GateZ:     "z",
}

func (g Gate) String() string {
	if name, ok := gateNames[g]; ok {
		return name
	}
	return "unknown"
}

// gateShape describes the argument pattern of an intrinsic.
type gateShape int

const (
	shapeTwoQubit  gateShape = iota // (%Qubit*, %Qubit*)
	shapeOneQubit                   // (%Qubit*)
	shapeRotation                   // (double, %Qubit*)
	shapeMeasure                    // (%Qubit*, %Result*)
)

type gateSpec struct {
	gate  Gate
	shape gateShape
}

// intrinsicGates maps QIR quantum-instruction-set symbols to dispatchable
// gates. Both the legacy cnot spelling and the cx spelling are accepted.
var intrinsicGates = map[string]gateSpec{
	"__quantum__qis__cnot__body":  {GateCX, shapeTwoQubit},
	"__quantum__qis__cx__body":    {GateCX, shapeTwoQubit},
	"__quantum__qis__cz__body":    {GateCZ, shapeTwoQubit},
	"__quantum__qis__h__body":     {GateH, shapeOneQubit},
	"__quantum__qis__m__body":     {GateM, shapeMeasure},
	"__quantum__qis__mz__body":    {GateMZ, shapeMeasure},
	"__quantum__qis__reset__body": {GateReset, shapeOneQubit},
	"__quantum__qis__rx__body":    {GateRX, shapeRotation},
	"__quantum__qis__ry__body":    {GateRY, shapeRotation},
	"__quantum__qis__rz__body":    {GateRZ, shapeRotation},
	"__quantum__qis__s__body":     {GateS, shapeOneQubit},
	"__quantum__qis__s__adj":      {GateSAdj, shapeOneQubit},
	"__quantum__qis__t__body":     {GateT, shapeOneQubit},
	"__quantum__qis__t__adj":      {GateTAdj, shapeOneQubit},
	"__quantum__qis__x__body":     {GateX, shapeOneQubit},
	"__quantum__qis__y__body":     {GateY, shapeOneQubit},
	"__quantum__qis__z__body":     {GateZ, shapeOneQubit},
}

// readResultIntrinsic yields the recorded outcome of a result as an i1.
const readResultIntrinsic = "__quantum__qis__read_result__body"

// runtimeNoOps are runtime bookkeeping intrinsics with no evaluation
// semantics here: output recording shapes the final printout of a full QIR
// runtime, which this evaluator surfaces through run metadata instead.
var runtimeNoOps = map[string]bool{
	"__quantum__rt__initialize":                true,
	"__quantum__rt__result_record_output":      true,
	"__quantum__rt__bool_record_output":        true,
	"__quantum__rt__array_record_output":       true,
	"__quantum__rt__tuple_record_output":       true,
	"__quantum__rt__array_start_record_output": true,
	"__quantum__rt__array_end_record_output":   true,
	"__quantum__rt__tuple_start_record_output": true,
	"__quantum__rt__tuple_end_record_output":   true,
}
