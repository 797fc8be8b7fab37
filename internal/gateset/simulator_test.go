package gateset

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulator_LazySlotAllocationInFirstUseOrder(t *testing.T) {
	s := NewSimulator()

	require.NoError(t, s.X("qb"))
	require.NoError(t, s.X("qa"))
	require.NoError(t, s.X("qb")) // already allocated, no new slot

	assert.Equal(t, 2, s.QubitCount())
	slot, ok := s.Slot("qb")
	require.True(t, ok)
	assert.Equal(t, 0, slot)
	slot, ok = s.Slot("qa")
	require.True(t, ok)
	assert.Equal(t, 1, slot)
}

func TestSimulator_XThenMeasureReadsOne(t *testing.T) {
	s := NewSimulator()

	require.NoError(t, s.X("q0"))
	require.NoError(t, s.MZ("q0", "r0"))

	assert.Equal(t, map[string]bool{"r0": true}, s.Outcomes())
}

func TestSimulator_HadamardTieCollapsesToZero(t *testing.T) {
	s := NewSimulator()

	require.NoError(t, s.H("q0"))
	assert.InDelta(t, 0.5, s.ProbabilityOne("q0"), 1e-12)

	// Equal mass: the deterministic tie-break reads zero and leaves |0>.
	require.NoError(t, s.M("q0", "r0"))
	assert.Equal(t, map[string]bool{"r0": false}, s.Outcomes())
	assert.InDelta(t, 0, s.ProbabilityOne("q0"), 1e-12)
}

func TestSimulator_RoundedTieStillReadsZero(t *testing.T) {
	s := NewSimulator()

	// sin(pi/4)^2 lands a few ulps above one half in float64; rounding must
	// not flip an equal-mass measurement to one.
	require.NoError(t, s.RX(math.Pi/2, "q0"))
	assert.InDelta(t, 0.5, s.ProbabilityOne("q0"), 1e-12)

	require.NoError(t, s.M("q0", "r0"))
	assert.Equal(t, map[string]bool{"r0": false}, s.Outcomes())
	assert.InDelta(t, 0, s.ProbabilityOne("q0"), 1e-12)
}

func TestSimulator_BellPairCorrelation(t *testing.T) {
	s := NewSimulator()

	require.NoError(t, s.H("q0"))
	require.NoError(t, s.CX("q0", "q1"))
	assert.InDelta(t, 0.5, s.ProbabilityOne("q1"), 1e-12)

	// Tie-break collapses q0 to zero; entanglement drags q1 along.
	require.NoError(t, s.MZ("q0", "r0"))
	assert.InDelta(t, 0, s.ProbabilityOne("q1"), 1e-12)
	require.NoError(t, s.MZ("q1", "r1"))
	assert.Equal(t, map[string]bool{"r0": false, "r1": false}, s.Outcomes())
}

func TestSimulator_ResetReturnsQubitToZero(t *testing.T) {
	s := NewSimulator()

	require.NoError(t, s.X("q0"))
	assert.InDelta(t, 1, s.ProbabilityOne("q0"), 1e-12)

	require.NoError(t, s.Reset("q0"))
	assert.InDelta(t, 0, s.ProbabilityOne("q0"), 1e-12)

	// Reset of a fresh qubit is a no-op on |0>.
	require.NoError(t, s.Reset("q1"))
	assert.InDelta(t, 0, s.ProbabilityOne("q1"), 1e-12)
}

func TestSimulator_RotationHalfTurnActsLikeX(t *testing.T) {
	s := NewSimulator()

	require.NoError(t, s.RX(math.Pi, "q0"))
	assert.InDelta(t, 1, s.ProbabilityOne("q0"), 1e-12)

	require.NoError(t, s.RY(math.Pi, "q1"))
	assert.InDelta(t, 1, s.ProbabilityOne("q1"), 1e-12)

	// RZ only shifts phase; probabilities are untouched.
	require.NoError(t, s.RZ(math.Pi, "q0"))
	assert.InDelta(t, 1, s.ProbabilityOne("q0"), 1e-12)
}

func TestSimulator_CapacityExceeded(t *testing.T) {
	s := NewSimulatorWithCapacity(2)

	require.NoError(t, s.X("q0"))
	require.NoError(t, s.X("q1"))
	assert.ErrorIs(t, s.X("q2"), ErrTooManyQubits)

	// Existing qubits keep working at capacity.
	assert.NoError(t, s.X("q0"))
}

func TestSimulator_InvalidOperands(t *testing.T) {
	s := NewSimulator()

	assert.ErrorIs(t, s.H(""), ErrInvalidQubitName)
	assert.ErrorIs(t, s.CX("q0", "q0"), ErrInvalidQubitName)
}

func TestSimulator_FinishIsTerminal(t *testing.T) {
	s := NewSimulator()
	meta := Metadata{ClassicalRegistersKey: map[string]bool{}}

	require.NoError(t, s.Finish(meta))
	assert.Equal(t, meta, s.Metadata())
	assert.ErrorIs(t, s.X("q0"), ErrFinished)
	assert.ErrorIs(t, s.Finish(meta), ErrFinished)
}
