package jit

import (
	"errors"
	"fmt"
)

// RuntimeErrorCode categorizes execution faults.
type RuntimeErrorCode string

const (
	// ErrCodeUnsupportedCall indicates the program called a function that is
	// neither a supported intrinsic nor defined within the module.
	ErrCodeUnsupportedCall RuntimeErrorCode = "UNSUPPORTED_EXTERNAL_CALL"

	// ErrCodeBackendFailure indicates a gate-set callback returned an error.
	ErrCodeBackendFailure RuntimeErrorCode = "BACKEND_FAILURE"

	// ErrCodeBadOperand indicates an intrinsic was called with operands that
	// do not match its shape.
	ErrCodeBadOperand RuntimeErrorCode = "BAD_OPERAND"

	// ErrCodeMissingBlock indicates a branch to a label that does not exist.
	ErrCodeMissingBlock RuntimeErrorCode = "MISSING_BLOCK"

	// ErrCodeMissingLocal indicates a use of an i1 local that was never
	// assigned.
	ErrCodeMissingLocal RuntimeErrorCode = "MISSING_LOCAL"

	// ErrCodeStepsExceeded indicates the optional step quota was hit.
	ErrCodeStepsExceeded RuntimeErrorCode = "STEPS_EXCEEDED"

	// ErrCodeCallDepth indicates local-call recursion exceeded the bound.
	ErrCodeCallDepth RuntimeErrorCode = "CALL_DEPTH_EXCEEDED"

	// ErrCodeNoTerminator indicates a block ended without ret or br.
	ErrCodeNoTerminator RuntimeErrorCode = "NO_TERMINATOR"
)

// RuntimeError is a fault detected while executing a module. Every fault is
// fatal to the run; there are no retries.
type RuntimeError struct {
	Code     RuntimeErrorCode
	Message  string
	Function string
	Callee   string
	Line     int
	Err      error
}

func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Function != "" {
		msg += fmt.Sprintf(" (in %s", e.Function)
		if e.Line > 0 {
			msg += fmt.Sprintf(", line %d", e.Line)
		}
		msg += ")"
	}
	return msg
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsUnsupportedCall reports whether err is an unsupported-external-call
// fault. Uses errors.As to handle wrapped errors.
func IsUnsupportedCall(err error) bool {
	return hasCode(err, ErrCodeUnsupportedCall)
}

// IsBackendFailure reports whether err originated in a gate-set callback.
func IsBackendFailure(err error) bool {
	return hasCode(err, ErrCodeBackendFailure)
}

// IsStepsExceeded reports whether err is a step-quota fault.
func IsStepsExceeded(err error) bool {
	return hasCode(err, ErrCodeStepsExceeded)
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}
