package trace

import "github.com/hartree-labs/qrep/internal/gateset"

// Recorder is a gate-set decorator that records every successfully delegated
// call as an Event while forwarding to an inner backend. The run ledger
// persists Recorder.Events after the run; the scenario harness asserts on
// them directly.
//
// Failed delegate calls are not recorded: the trace holds only operations the
// backend actually performed.
type Recorder struct {
	inner    gateset.GateSet
	seq      int64
	events   []Event
	meta     gateset.Metadata
	finished bool
}

// NewRecorder wraps an inner backend.
func NewRecorder(inner gateset.GateSet) *Recorder {
	return &Recorder{inner: inner}
}

func (r *Recorder) record(op string, qubits []string, result string, param float64, hasParam bool) {
	r.seq++
	r.events = append(r.events, Event{
		Seq:      r.seq,
		Op:       op,
		Qubits:   qubits,
		Param:    param,
		HasParam: hasParam,
		Result:   result,
	})
}

func (r *Recorder) twoQubit(op string, err error, control, target string) error {
	if err != nil {
		return err
	}
	r.record(op, []string{control, target}, "", 0, false)
	return nil
}

func (r *Recorder) oneQubit(op string, err error, target string) error {
	if err != nil {
		return err
	}
	r.record(op, []string{target}, "", 0, false)
	return nil
}

func (r *Recorder) rotation(op string, err error, theta float64, target string) error {
	if err != nil {
		return err
	}
	r.record(op, []string{target}, "", theta, true)
	return nil
}

func (r *Recorder) measure(op string, err error, qubit, result string) error {
	if err != nil {
		return err
	}
	r.record(op, []string{qubit}, result, 0, false)
	return nil
}

func (r *Recorder) CX(control, target string) error {
	return r.twoQubit("cx", r.inner.CX(control, target), control, target)
}

func (r *Recorder) CZ(control, target string) error {
	return r.twoQubit("cz", r.inner.CZ(control, target), control, target)
}

func (r *Recorder) H(target string) error {
	return r.oneQubit("h", r.inner.H(target), target)
}

func (r *Recorder) M(qubit, result string) error {
	return r.measure("m", r.inner.M(qubit, result), qubit, result)
}

func (r *Recorder) MZ(qubit, result string) error {
	return r.measure("mz", r.inner.MZ(qubit, result), qubit, result)
}

func (r *Recorder) Reset(target string) error {
	return r.oneQubit("reset", r.inner.Reset(target), target)
}

func (r *Recorder) RX(theta float64, target string) error {
	return r.rotation("rx", r.inner.RX(theta, target), theta, target)
}

func (r *Recorder) RY(theta float64, target string) error {
	return r.rotation("ry", r.inner.RY(theta, target), theta, target)
}

func (r *Recorder) RZ(theta float64, target string) error {
	return r.rotation("rz", r.inner.RZ(theta, target), theta, target)
}

func (r *Recorder) S(target string) error    { return r.oneQubit("s", r.inner.S(target), target) }
func (r *Recorder) SAdj(target string) error { return r.oneQubit("s_adj", r.inner.SAdj(target), target) }
func (r *Recorder) T(target string) error    { return r.oneQubit("t", r.inner.T(target), target) }
func (r *Recorder) TAdj(target string) error { return r.oneQubit("t_adj", r.inner.TAdj(target), target) }
func (r *Recorder) X(target string) error    { return r.oneQubit("x", r.inner.X(target), target) }
func (r *Recorder) Y(target string) error    { return r.oneQubit("y", r.inner.Y(target), target) }
func (r *Recorder) Z(target string) error    { return r.oneQubit("z", r.inner.Z(target), target) }

func (r *Recorder) Finish(meta gateset.Metadata) error {
	if err := r.inner.Finish(meta); err != nil {
		return err
	}
	r.finished = true
	r.meta = meta
	return nil
}

// Events returns the recorded trace in dispatch order.
func (r *Recorder) Events() []Event {
	return r.events
}

// Fingerprint computes the content-addressed identity of the recorded trace.
func (r *Recorder) Fingerprint() (string, error) {
	return Fingerprint(r.events)
}

// Finished reports whether Finish completed.
func (r *Recorder) Finished() bool {
	return r.finished
}

// Metadata returns the metadata seen at Finish, nil before it.
func (r *Recorder) Metadata() gateset.Metadata {
	return r.meta
}
