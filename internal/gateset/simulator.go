package gateset

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
)

// DefaultMaxQubits bounds the simulator's statevector (2^n amplitudes).
const DefaultMaxQubits = 20

// tieEpsilon absorbs float64 rounding in the gate matrices: an exact 50/50
// state can accumulate a few ulps above one half, and it must still count as
// a tie.
const tieEpsilon = 1e-9

var (
	// ErrInvalidQubitName is returned for an empty logical qubit name.
	ErrInvalidQubitName = errors.New("invalid qubit name")

	// ErrTooManyQubits is returned when lazy allocation would exceed the
	// configured capacity.
	ErrTooManyQubits = errors.New("qubit capacity exceeded")
)

// Simulator is a dense statevector backend. It exists to keep a concrete
// quantum state alive alongside replayed control flow, not to be a serious
// simulator: amplitudes are complex128, capacity is small, and measurement
// collapses deterministically toward the dominant amplitude (ties read zero)
// so identical programs produce identical states.
//
// Qubit resources are allocated lazily: the first reference to a logical name
// claims the next statevector slot, in first-use order.
type Simulator struct {
	maxQubits int
	slots     map[string]int
	order     []string
	amps      []complex128
	outcomes  map[string]bool
	finished  bool
	meta      Metadata
}

// NewSimulator returns a simulator with the default capacity.
func NewSimulator() *Simulator {
	return NewSimulatorWithCapacity(DefaultMaxQubits)
}

// NewSimulatorWithCapacity returns a simulator bounded to maxQubits.
func NewSimulatorWithCapacity(maxQubits int) *Simulator {
	return &Simulator{
		maxQubits: maxQubits,
		slots:     make(map[string]int),
		amps:      []complex128{1}, // zero qubits: the empty state
		outcomes:  make(map[string]bool),
	}
}

// ensure resolves a logical name to its statevector slot, allocating on
// first use.
func (s *Simulator) ensure(name string) (int, error) {
	if s.finished {
		return 0, ErrFinished
	}
	if name == "" {
		return 0, ErrInvalidQubitName
	}
	if slot, ok := s.slots[name]; ok {
		return slot, nil
	}
	if len(s.order) >= s.maxQubits {
		return 0, fmt.Errorf("%w: %d qubits in use", ErrTooManyQubits, len(s.order))
	}

	slot := len(s.order)
	s.slots[name] = slot
	s.order = append(s.order, name)

	// The new qubit starts in |0>: existing amplitudes keep their indices
	// (new bit clear), the new-bit-set half is zero.
	grown := make([]complex128, len(s.amps)*2)
	copy(grown, s.amps)
	s.amps = grown
	return slot, nil
}

type matrix2 [2][2]complex128

func (s *Simulator) apply1(slot int, u matrix2) {
	bit := 1 << slot
	for i := range s.amps {
		if i&bit != 0 {
			continue
		}
		j := i | bit
		a, b := s.amps[i], s.amps[j]
		s.amps[i] = u[0][0]*a + u[0][1]*b
		s.amps[j] = u[1][0]*a + u[1][1]*b
	}
}

func (s *Simulator) applyControlled(control, target int, u matrix2) {
	cbit := 1 << control
	tbit := 1 << target
	for i := range s.amps {
		if i&cbit == 0 || i&tbit != 0 {
			continue
		}
		j := i | tbit
		a, b := s.amps[i], s.amps[j]
		s.amps[i] = u[0][0]*a + u[0][1]*b
		s.amps[j] = u[1][0]*a + u[1][1]*b
	}
}

// collapse measures a slot: the outcome with the larger probability mass wins
// (ties read zero), the losing amplitudes are zeroed and the rest normalized.
func (s *Simulator) collapse(slot int) bool {
	bit := 1 << slot
	var p1 float64
	for i, a := range s.amps {
		if i&bit != 0 {
			p1 += real(a)*real(a) + imag(a)*imag(a)
		}
	}

	outcome := p1 > 0.5+tieEpsilon
	mass := p1
	if !outcome {
		mass = 1 - p1
	}
	norm := complex(math.Sqrt(mass), 0)

	for i := range s.amps {
		set := i&bit != 0
		if set != outcome {
			s.amps[i] = 0
		} else if norm != 0 {
			s.amps[i] /= norm
		}
	}
	return outcome
}

var (
	matX = matrix2{{0, 1}, {1, 0}}
	matY = matrix2{{0, -1i}, {1i, 0}}
	matZ = matrix2{{1, 0}, {0, -1}}
	matH = matrix2{
		{complex(1/math.Sqrt2, 0), complex(1/math.Sqrt2, 0)},
		{complex(1/math.Sqrt2, 0), complex(-1/math.Sqrt2, 0)},
	}
	matS    = matrix2{{1, 0}, {0, 1i}}
	matSAdj = matrix2{{1, 0}, {0, -1i}}
	matT    = matrix2{{1, 0}, {0, cmplx.Exp(1i * math.Pi / 4)}}
	matTAdj = matrix2{{1, 0}, {0, cmplx.Exp(-1i * math.Pi / 4)}}
)

func rotX(theta float64) matrix2 {
	c := complex(math.Cos(theta/2), 0)
	is := complex(0, -math.Sin(theta/2))
	return matrix2{{c, is}, {is, c}}
}

func rotY(theta float64) matrix2 {
	c := complex(math.Cos(theta/2), 0)
	sn := complex(math.Sin(theta/2), 0)
	return matrix2{{c, -sn}, {sn, c}}
}

func rotZ(theta float64) matrix2 {
	return matrix2{
		{cmplx.Exp(complex(0, -theta/2)), 0},
		{0, cmplx.Exp(complex(0, theta/2))},
	}
}

func (s *Simulator) single(target string, u matrix2) error {
	slot, err := s.ensure(target)
	if err != nil {
		return err
	}
	s.apply1(slot, u)
	return nil
}

func (s *Simulator) controlled(control, target string, u matrix2) error {
	c, err := s.ensure(control)
	if err != nil {
		return err
	}
	t, err := s.ensure(target)
	if err != nil {
		return err
	}
	if c == t {
		return fmt.Errorf("%w: control and target are both %q", ErrInvalidQubitName, target)
	}
	s.applyControlled(c, t, u)
	return nil
}

func (s *Simulator) CX(control, target string) error { return s.controlled(control, target, matX) }
func (s *Simulator) CZ(control, target string) error { return s.controlled(control, target, matZ) }
func (s *Simulator) H(target string) error           { return s.single(target, matH) }

func (s *Simulator) M(qubit, result string) error {
	slot, err := s.ensure(qubit)
	if err != nil {
		return err
	}
	s.outcomes[result] = s.collapse(slot)
	return nil
}

func (s *Simulator) MZ(qubit, result string) error {
	return s.M(qubit, result)
}

// Reset drives a qubit back to |0>: measure, and flip when the outcome was
// one. The measurement is internal and never touches the run's result stream.
func (s *Simulator) Reset(target string) error {
	slot, err := s.ensure(target)
	if err != nil {
		return err
	}
	if s.collapse(slot) {
		s.apply1(slot, matX)
	}
	return nil
}

func (s *Simulator) RX(theta float64, target string) error { return s.single(target, rotX(theta)) }
func (s *Simulator) RY(theta float64, target string) error { return s.single(target, rotY(theta)) }
func (s *Simulator) RZ(theta float64, target string) error { return s.single(target, rotZ(theta)) }
func (s *Simulator) S(target string) error                 { return s.single(target, matS) }
func (s *Simulator) SAdj(target string) error              { return s.single(target, matSAdj) }
func (s *Simulator) T(target string) error                 { return s.single(target, matT) }
func (s *Simulator) TAdj(target string) error              { return s.single(target, matTAdj) }
func (s *Simulator) X(target string) error                 { return s.single(target, matX) }
func (s *Simulator) Y(target string) error                 { return s.single(target, matY) }
func (s *Simulator) Z(target string) error                 { return s.single(target, matZ) }

func (s *Simulator) Finish(meta Metadata) error {
	if s.finished {
		return ErrFinished
	}
	s.finished = true
	s.meta = meta
	return nil
}

// QubitCount returns how many logical qubits have been allocated.
func (s *Simulator) QubitCount() int {
	return len(s.order)
}

// Slot returns the statevector slot for a name and whether it is allocated.
func (s *Simulator) Slot(name string) (int, bool) {
	slot, ok := s.slots[name]
	return slot, ok
}

// Outcomes returns the simulator's own measurement bookkeeping. These are the
// simulator-observed values; the evaluator's classical registers remain the
// authoritative, stream-sourced record.
func (s *Simulator) Outcomes() map[string]bool {
	return s.outcomes
}

// ProbabilityOne returns the probability of measuring one on a qubit, or 0
// for an unallocated name. Exposed for tests.
func (s *Simulator) ProbabilityOne(name string) float64 {
	slot, ok := s.slots[name]
	if !ok {
		return 0
	}
	bit := 1 << slot
	var p1 float64
	for i, a := range s.amps {
		if i&bit != 0 {
			p1 += real(a)*real(a) + imag(a)*imag(a)
		}
	}
	return p1
}

// Metadata returns the metadata received at Finish, or nil before it.
func (s *Simulator) Metadata() Metadata {
	return s.meta
}
