package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hartree-labs/qrep/internal/testutil"
	"github.com/hartree-labs/qrep/internal/trace"
)

func TestLoadScenario_BellPair(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "bell-pair.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "bell-pair", s.Name)
	assert.Equal(t, filepath.Join("testdata", "bell.ll"), s.Module)
	assert.Equal(t, []bool{true, true}, s.Results)
	assert.Equal(t, map[string]bool{"r0": true, "r1": true}, s.Expect.Registers)
	require.Len(t, s.Assertions, 3)
	assert.Equal(t, AssertTraceOrder, s.Assertions[0].Type)
}

func TestLoadScenario_RejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteModule(t, dir, "m.ll", testutil.BellSource)
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`name: bad
module: m.ll
rseults: [true]
`), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rseults")
}

func TestLoadScenario_ValidatesAssertions(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteModule(t, dir, "m.ll", testutil.BellSource)
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`name: bad
module: m.ll
assertions:
  - type: trace_contains
`), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "op is required")
}

func TestLoadScenario_MissingModuleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`name: bad
module: nowhere.ll
`), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "module file not found")
}

func TestRunner_VerifyBellPair(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "bell-pair.yaml"))
	require.NoError(t, err)

	require.NoError(t, NewRunner().Verify(context.Background(), s))
}

func TestRunner_RegisterMismatchReported(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "bell-pair.yaml"))
	require.NoError(t, err)
	s.Expect.Registers["r1"] = false

	err = NewRunner().Verify(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "register r1")
}

func TestRunner_ExpectedErrorCode(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteModule(t, dir, "bad.ll", `define void @main() #0 {
entry:
  call void @__quantum__qis__ccx__body(%Qubit* null, %Qubit* inttoptr (i64 1 to %Qubit*), %Qubit* inttoptr (i64 2 to %Qubit*))
  ret void
}

attributes #0 = { "entry_point" }
`)
	s := &Scenario{
		Name:   "unsupported-intrinsic",
		Module: filepath.Join(dir, "bad.ll"),
		Expect: ExpectClause{ErrorCode: "UNSUPPORTED_EXTERNAL_CALL"},
	}

	require.NoError(t, NewRunner().Verify(context.Background(), s))
}

func TestCheck_TraceAssertions(t *testing.T) {
	events := []trace.Event{
		{Seq: 1, Op: "h", Qubits: []string{"q0"}},
		{Seq: 2, Op: "cx", Qubits: []string{"q0", "q1"}},
		{Seq: 3, Op: "mz", Qubits: []string{"q0"}, Result: "r0"},
	}
	base := &Scenario{Name: "t"}

	pass := &Result{Scenario: base, Events: events}
	base.Assertions = []Assertion{
		{Type: AssertTraceContains, Op: "mz", Qubits: []string{"q0"}, Result: "r0"},
		{Type: AssertTraceOrder, Ops: []string{"h", "mz"}},
		{Type: AssertTraceCount, Op: "cx", Count: 1},
	}
	require.NoError(t, Check(pass))

	base.Assertions = []Assertion{
		{Type: AssertTraceOrder, Ops: []string{"mz", "h"}},
		{Type: AssertTraceCount, Op: "h", Count: 2},
	}
	err := Check(pass)
	require.Error(t, err)
	// Both failures surface, not just the first.
	assert.Contains(t, err.Error(), "trace order")
	assert.Contains(t, err.Error(), "1 h events")
}

func TestDiscoverScenarios(t *testing.T) {
	files, err := DiscoverScenarios("testdata")
	require.NoError(t, err)
	assert.NotEmpty(t, files)

	_, err = DiscoverScenarios(t.TempDir())
	require.Error(t, err)
}

func TestSnapshot_GoldenBellPair(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "bell-pair.yaml"))
	require.NoError(t, err)

	result, err := NewRunner().Run(context.Background(), s)
	require.NoError(t, err)
	require.NoError(t, result.Err)

	snapshot, err := Snapshot(result)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir(filepath.Join("testdata", "golden")),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, s.Name, snapshot)
}
