// Package testutil provides shared fixtures for tests: canned QIR programs
// and helpers for materializing them on disk.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// BellSource is a two-qubit Bell pair program with two measurements.
const BellSource = `; bell pair
define void @main() #0 {
entry:
  call void @__quantum__qis__h__body(%Qubit* null)
  call void @__quantum__qis__cnot__body(%Qubit* null, %Qubit* inttoptr (i64 1 to %Qubit*))
  call void @__quantum__qis__mz__body(%Qubit* null, %Result* null)
  call void @__quantum__qis__mz__body(%Qubit* inttoptr (i64 1 to %Qubit*), %Result* inttoptr (i64 1 to %Result*))
  ret void
}

attributes #0 = { "entry_point" }
`

// BranchSource measures one qubit and applies X to a second qubit only when
// the measured outcome reads back true.
const BranchSource = `define void @main() #0 {
entry:
  call void @__quantum__qis__h__body(%Qubit* null)
  call void @__quantum__qis__mz__body(%Qubit* null, %Result* null)
  %0 = call i1 @__quantum__qis__read_result__body(%Result* null)
  br i1 %0, label %then, label %else

then:
  call void @__quantum__qis__x__body(%Qubit* inttoptr (i64 1 to %Qubit*))
  br label %continue

else:
  br label %continue

continue:
  call void @__quantum__qis__mz__body(%Qubit* inttoptr (i64 1 to %Qubit*), %Result* inttoptr (i64 1 to %Result*))
  ret void
}

attributes #0 = { "entry_point" }
`

// RotationSource exercises parameterized rotation intrinsics.
const RotationSource = `define void @main() #0 {
entry:
  call void @__quantum__qis__rx__body(double 1.5707963267948966, %Qubit* null)
  call void @__quantum__qis__rz__body(double 0x3FF921FB54442D18, %Qubit* null)
  call void @__quantum__qis__mz__body(%Qubit* null, %Result* null)
  ret void
}

attributes #0 = { "entry_point" }
`

// LoopSource branches backwards forever; useful for step-quota tests.
const LoopSource = `define void @main() #0 {
entry:
  br label %spin

spin:
  call void @__quantum__qis__x__body(%Qubit* null)
  br label %spin
}

attributes #0 = { "entry_point" }
`

// TwoEntrySource defines two entry-point candidates and no marker attribute,
// so resolution without an explicit name is ambiguous.
const TwoEntrySource = `define void @alpha() {
entry:
  call void @__quantum__qis__x__body(%Qubit* null)
  ret void
}

define void @beta() {
entry:
  call void @__quantum__qis__z__body(%Qubit* null)
  ret void
}
`

// WriteModule writes QIR source to a file under dir and returns its path.
func WriteModule(t *testing.T, dir, name, source string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		t.Fatalf("write module %s: %v", name, err)
	}
	return path
}

// BellModule writes BellSource into a temp dir and returns its path.
func BellModule(t *testing.T) string {
	t.Helper()
	return WriteModule(t, t.TempDir(), "bell.ll", BellSource)
}
