package jit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hartree-labs/qrep/internal/qir"
)

// fakeCallbacks records dispatches and serves canned read_result outcomes.
type fakeCallbacks struct {
	calls    []string
	outcomes map[uint64]bool
	fail     error // returned from every gate callback when set
}

func (f *fakeCallbacks) Unitary(g Gate, theta float64, qubits ...uint64) error {
	if f.fail != nil {
		return f.fail
	}
	if g == GateRX || g == GateRY || g == GateRZ {
		f.calls = append(f.calls, fmt.Sprintf("%s(%.4f) %v", g, theta, qubits))
	} else {
		f.calls = append(f.calls, fmt.Sprintf("%s %v", g, qubits))
	}
	return nil
}

func (f *fakeCallbacks) Measure(g Gate, qubit, result uint64) error {
	if f.fail != nil {
		return f.fail
	}
	f.calls = append(f.calls, fmt.Sprintf("%s %d -> %d", g, qubit, result))
	return nil
}

func (f *fakeCallbacks) ReadResult(result uint64) bool {
	return f.outcomes[result]
}

func mustParse(t *testing.T, source string) *qir.Module {
	t.Helper()
	m, err := qir.Parse(strings.NewReader(source), "test.ll")
	require.NoError(t, err)
	return m
}

func runModule(t *testing.T, e *Engine, m *qir.Module, cb Callbacks) error {
	t.Helper()
	entry, err := m.ResolveEntryPoint("")
	require.NoError(t, err)
	return e.Run(context.Background(), m, entry, cb)
}

func TestEngine_DispatchesGatesInProgramOrder(t *testing.T) {
	m := mustParse(t, `define void @main() #0 {
entry:
  call void @__quantum__qis__h__body(%Qubit* null)
  call void @__quantum__qis__cnot__body(%Qubit* null, %Qubit* inttoptr (i64 1 to %Qubit*))
  call void @__quantum__qis__rz__body(double 0.5, %Qubit* null)
  call void @__quantum__qis__mz__body(%Qubit* null, %Result* null)
  ret void
}

attributes #0 = { "entry_point" }
`)
	cb := &fakeCallbacks{}
	require.NoError(t, runModule(t, New(), m, cb))

	assert.Equal(t, []string{
		"h [0]",
		"cx [0 1]",
		"rz(0.5000) [0]",
		"mz 0 -> 0",
	}, cb.calls)
}

func TestEngine_CnotAndCxAreTheSameGate(t *testing.T) {
	m := mustParse(t, `define void @main() #0 {
entry:
  call void @__quantum__qis__cnot__body(%Qubit* null, %Qubit* inttoptr (i64 1 to %Qubit*))
  call void @__quantum__qis__cx__body(%Qubit* null, %Qubit* inttoptr (i64 1 to %Qubit*))
  ret void
}

attributes #0 = { "entry_point" }
`)
	cb := &fakeCallbacks{}
	require.NoError(t, runModule(t, New(), m, cb))
	assert.Equal(t, []string{"cx [0 1]", "cx [0 1]"}, cb.calls)
}

func TestEngine_ConditionalBranchFollowsReadResult(t *testing.T) {
	source := `define void @main() #0 {
entry:
  call void @__quantum__qis__mz__body(%Qubit* null, %Result* null)
  %0 = call i1 @__quantum__qis__read_result__body(%Result* null)
  br i1 %0, label %then, label %else

then:
  call void @__quantum__qis__x__body(%Qubit* inttoptr (i64 1 to %Qubit*))
  br label %continue

else:
  call void @__quantum__qis__z__body(%Qubit* inttoptr (i64 1 to %Qubit*))
  br label %continue

continue:
  ret void
}

attributes #0 = { "entry_point" }
`

	m := mustParse(t, source)

	taken := &fakeCallbacks{outcomes: map[uint64]bool{0: true}}
	require.NoError(t, runModule(t, New(), m, taken))
	assert.Equal(t, []string{"mz 0 -> 0", "x [1]"}, taken.calls)

	skipped := &fakeCallbacks{outcomes: map[uint64]bool{}}
	require.NoError(t, runModule(t, New(), m, skipped))
	assert.Equal(t, []string{"mz 0 -> 0", "z [1]"}, skipped.calls)
}

func TestEngine_RuntimeCallsAreNoOps(t *testing.T) {
	m := mustParse(t, `define void @main() #0 {
entry:
  call void @__quantum__rt__initialize(i8* null)
  call void @__quantum__qis__x__body(%Qubit* null)
  call void @__quantum__rt__result_record_output(%Result* null, i8* null)
  call void @__quantum__rt__tuple_record_output(i64 2, i8* null)
  ret void
}

attributes #0 = { "entry_point" }
`)
	cb := &fakeCallbacks{}
	require.NoError(t, runModule(t, New(), m, cb))
	assert.Equal(t, []string{"x [0]"}, cb.calls)
}

func TestEngine_LocalFunctionCalls(t *testing.T) {
	m := mustParse(t, `define void @main() #0 {
entry:
  call void @prepare()
  call void @__quantum__qis__mz__body(%Qubit* null, %Result* null)
  ret void
}

define void @prepare() {
entry:
  call void @__quantum__qis__h__body(%Qubit* null)
  ret void
}

attributes #0 = { "entry_point" }
`)
	cb := &fakeCallbacks{}
	entry, err := m.ResolveEntryPoint("main")
	require.NoError(t, err)
	require.NoError(t, New().Run(context.Background(), m, entry, cb))
	assert.Equal(t, []string{"h [0]", "mz 0 -> 0"}, cb.calls)
}

func TestEngine_UnsupportedExternalCall(t *testing.T) {
	m := mustParse(t, `define void @main() #0 {
entry:
  call void @__quantum__qis__ccx__body(%Qubit* null, %Qubit* inttoptr (i64 1 to %Qubit*), %Qubit* inttoptr (i64 2 to %Qubit*))
  ret void
}

attributes #0 = { "entry_point" }
`)
	err := runModule(t, New(), m, &fakeCallbacks{})
	require.Error(t, err)
	assert.True(t, IsUnsupportedCall(err))

	var re *RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "__quantum__qis__ccx__body", re.Callee)
	assert.Equal(t, "main", re.Function)
	assert.Equal(t, 3, re.Line)
}

func TestEngine_BackendFailureWrapsCause(t *testing.T) {
	m := mustParse(t, `define void @main() #0 {
entry:
  call void @__quantum__qis__h__body(%Qubit* null)
  ret void
}

attributes #0 = { "entry_point" }
`)
	cause := errors.New("device offline")
	err := runModule(t, New(), m, &fakeCallbacks{fail: cause})
	require.Error(t, err)
	assert.True(t, IsBackendFailure(err))
	assert.ErrorIs(t, err, cause)
}

func TestEngine_StepQuota(t *testing.T) {
	m := mustParse(t, `define void @main() #0 {
entry:
  br label %spin

spin:
  call void @__quantum__qis__x__body(%Qubit* null)
  br label %spin
}

attributes #0 = { "entry_point" }
`)
	err := runModule(t, New(WithMaxSteps(10)), m, &fakeCallbacks{})
	require.Error(t, err)
	assert.True(t, IsStepsExceeded(err))
}

func TestEngine_ContextCancellation(t *testing.T) {
	m := mustParse(t, `define void @main() #0 {
entry:
  br label %spin

spin:
  br label %spin
}

attributes #0 = { "entry_point" }
`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	entry, err := m.ResolveEntryPoint("")
	require.NoError(t, err)
	runErr := New().Run(ctx, m, entry, &fakeCallbacks{})
	require.ErrorIs(t, runErr, context.Canceled)
}

func TestEngine_MissingBranchTarget(t *testing.T) {
	m := mustParse(t, `define void @main() #0 {
entry:
  br label %nowhere
}

attributes #0 = { "entry_point" }
`)
	err := runModule(t, New(), m, &fakeCallbacks{})
	require.Error(t, err)

	var re *RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrCodeMissingBlock, re.Code)
}

func TestEngine_BlockWithoutTerminator(t *testing.T) {
	m := mustParse(t, `define void @main() #0 {
entry:
  call void @__quantum__qis__x__body(%Qubit* null)
}

attributes #0 = { "entry_point" }
`)
	err := runModule(t, New(), m, &fakeCallbacks{})
	require.Error(t, err)

	var re *RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrCodeNoTerminator, re.Code)
}

func TestEngine_UnassignedLocal(t *testing.T) {
	m := mustParse(t, `define void @main() #0 {
entry:
  br i1 %0, label %a, label %b

a:
  ret void

b:
  ret void
}

attributes #0 = { "entry_point" }
`)
	err := runModule(t, New(), m, &fakeCallbacks{})
	require.Error(t, err)

	var re *RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrCodeMissingLocal, re.Code)
}

func TestEngine_RecursionDepthBounded(t *testing.T) {
	m := mustParse(t, `define void @main() #0 {
entry:
  call void @main()
  ret void
}

attributes #0 = { "entry_point" }
`)
	err := runModule(t, New(WithMaxDepth(8)), m, &fakeCallbacks{})
	require.Error(t, err)

	var re *RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrCodeCallDepth, re.Code)
}
