package harness

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/hartree-labs/qrep/internal/trace"
)

// Check validates a Result against its scenario's expectations. All failures
// are collected into a single joined error so a broken scenario reports every
// mismatch at once.
func Check(result *Result) error {
	s := result.Scenario

	if s.Expect.ErrorCode != "" {
		if result.Err == nil {
			return fmt.Errorf("%s: expected error containing %q, run succeeded", s.Name, s.Expect.ErrorCode)
		}
		if !strings.Contains(result.Err.Error(), s.Expect.ErrorCode) {
			return fmt.Errorf("%s: expected error containing %q, got: %v", s.Name, s.Expect.ErrorCode, result.Err)
		}
		return nil
	}

	if result.Err != nil {
		return fmt.Errorf("%s: run failed: %w", s.Name, result.Err)
	}

	var failures []error
	if err := checkRegisters(s, result.Registers); err != nil {
		failures = append(failures, err)
	}
	for i, a := range s.Assertions {
		if err := checkAssertion(a, result.Events); err != nil {
			failures = append(failures, fmt.Errorf("%s: assertions[%d]: %w", s.Name, i, err))
		}
	}

	return errors.Join(failures...)
}

// checkRegisters requires an exact match: every expected register with the
// right outcome, and nothing extra.
func checkRegisters(s *Scenario, got map[string]bool) error {
	want := s.Expect.Registers
	if want == nil {
		return nil
	}
	for name, outcome := range want {
		actual, ok := got[name]
		if !ok {
			return fmt.Errorf("%s: register %s missing (have %v)", s.Name, name, got)
		}
		if actual != outcome {
			return fmt.Errorf("%s: register %s = %v, want %v", s.Name, name, actual, outcome)
		}
	}
	for name := range got {
		if _, ok := want[name]; !ok {
			return fmt.Errorf("%s: unexpected register %s", s.Name, name)
		}
	}
	return nil
}

func checkAssertion(a Assertion, events []trace.Event) error {
	switch a.Type {
	case AssertTraceContains:
		return checkContains(a, events)
	case AssertTraceOrder:
		return checkOrder(a, events)
	case AssertTraceCount:
		return checkCount(a, events)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// checkContains passes when some event matches the op and, when given, the
// qubit operands and result register.
func checkContains(a Assertion, events []trace.Event) error {
	for _, ev := range events {
		if ev.Op != a.Op {
			continue
		}
		if len(a.Qubits) > 0 && !slices.Equal(ev.Qubits, a.Qubits) {
			continue
		}
		if a.Result != "" && ev.Result != a.Result {
			continue
		}
		return nil
	}
	return fmt.Errorf("trace does not contain %s %v %s", a.Op, a.Qubits, a.Result)
}

// checkOrder passes when the assertion ops appear in the trace as a
// subsequence, in order but not necessarily adjacent.
func checkOrder(a Assertion, events []trace.Event) error {
	next := 0
	for _, ev := range events {
		if next < len(a.Ops) && ev.Op == a.Ops[next] {
			next++
		}
	}
	if next < len(a.Ops) {
		return fmt.Errorf("trace order: matched %d of %v, stuck at %q", next, a.Ops, a.Ops[next])
	}
	return nil
}

func checkCount(a Assertion, events []trace.Event) error {
	count := 0
	for _, ev := range events {
		if ev.Op == a.Op {
			count++
		}
	}
	if count != a.Count {
		return fmt.Errorf("trace has %d %s events, want %d", count, a.Op, a.Count)
	}
	return nil
}
