package gateset

import (
	"errors"
	"fmt"
	"strings"
)

// ErrFinished is returned when a backend is invoked after Finish.
var ErrFinished = errors.New("gate set already finished")

// GateLogger records every gate call as one canonical text line. It is the
// reference backend: deterministic, stateless with respect to quantum
// semantics, and the basis for golden-trace comparison.
//
// Line format:
//
//	cx q0, q1
//	rz(1.570796) q0
//	m q0 => r0
//	finish
type GateLogger struct {
	lines    []string
	measured map[string]bool // results this run touched, by name
	finished bool
	meta     Metadata
}

// NewGateLogger returns an empty logger.
func NewGateLogger() *GateLogger {
	return &GateLogger{measured: make(map[string]bool)}
}

func (l *GateLogger) log(format string, args ...any) error {
	if l.finished {
		return ErrFinished
	}
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
	return nil
}

func (l *GateLogger) CX(control, target string) error { return l.log("cx %s, %s", control, target) }
func (l *GateLogger) CZ(control, target string) error { return l.log("cz %s, %s", control, target) }
func (l *GateLogger) H(target string) error           { return l.log("h %s", target) }

func (l *GateLogger) M(qubit, result string) error {
	if err := l.log("m %s => %s", qubit, result); err != nil {
		return err
	}
	l.measured[result] = true
	return nil
}

func (l *GateLogger) MZ(qubit, result string) error {
	if err := l.log("mz %s => %s", qubit, result); err != nil {
		return err
	}
	l.measured[result] = true
	return nil
}

func (l *GateLogger) Reset(target string) error { return l.log("reset %s", target) }

func (l *GateLogger) RX(theta float64, target string) error {
	return l.log("rx(%.6f) %s", theta, target)
}

func (l *GateLogger) RY(theta float64, target string) error {
	return l.log("ry(%.6f) %s", theta, target)
}

func (l *GateLogger) RZ(theta float64, target string) error {
	return l.log("rz(%.6f) %s", theta, target)
}

func (l *GateLogger) S(target string) error    { return l.log("s %s", target) }
func (l *GateLogger) SAdj(target string) error { return l.log("s_adj %s", target) }
func (l *GateLogger) T(target string) error    { return l.log("t %s", target) }
func (l *GateLogger) TAdj(target string) error { return l.log("t_adj %s", target) }
func (l *GateLogger) X(target string) error    { return l.log("x %s", target) }
func (l *GateLogger) Y(target string) error    { return l.log("y %s", target) }
func (l *GateLogger) Z(target string) error    { return l.log("z %s", target) }

func (l *GateLogger) Finish(meta Metadata) error {
	if err := l.log("finish"); err != nil {
		return err
	}
	l.finished = true
	l.meta = meta
	return nil
}

// Lines returns the recorded trace in call order.
func (l *GateLogger) Lines() []string {
	return l.lines
}

// String renders the trace one line per call.
func (l *GateLogger) String() string {
	return strings.Join(l.lines, "\n")
}

// Finished reports whether Finish has been called.
func (l *GateLogger) Finished() bool {
	return l.finished
}

// Metadata returns the metadata received at Finish, or nil before it.
func (l *GateLogger) Metadata() Metadata {
	return l.meta
}

// MeasuredResults reports which result names saw a measurement call.
func (l *GateLogger) MeasuredResults() map[string]bool {
	return l.measured
}
