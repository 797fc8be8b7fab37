package qir

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for entry-point resolution.
var (
	// ErrNoEntryPoint indicates the module defines no functions at all.
	ErrNoEntryPoint = errors.New("module defines no entry point")

	// ErrEntryPointNotFound indicates the named entry point does not exist.
	ErrEntryPointNotFound = errors.New("entry point not found")
)

// AmbiguousEntryPointError indicates the module has multiple entry-point
// candidates and no name was supplied. The caller must pick one.
type AmbiguousEntryPointError struct {
	Candidates []string
}

func (e *AmbiguousEntryPointError) Error() string {
	return fmt.Sprintf("module has multiple entry points (%s): specify one explicitly",
		strings.Join(e.Candidates, ", "))
}

// IsAmbiguousEntryPoint reports whether err is an entry-point ambiguity.
// Uses errors.As to handle wrapped errors.
func IsAmbiguousEntryPoint(err error) bool {
	var ae *AmbiguousEntryPointError
	return errors.As(err, &ae)
}

// LoadError reports a module that could not be read or parsed. Line is zero
// when the failure is not tied to a source position (missing file, bad binary
// header).
type LoadError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// IsLoadError reports whether err is a module load failure.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}
