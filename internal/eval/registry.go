// Package eval implements the non-adaptive evaluator: it walks a compiled
// QIR module's classical control flow, translates JIT-level handles into
// stable logical names, threads pre-determined measurement outcomes from a
// result stream into the program, and drives a pluggable gate-set backend.
package eval

import "strconv"

// QubitRegistry maps opaque qubit handles emitted by the executor to dense
// allocation slots, assigned in first-use order starting at 0. The mapping is
// a bijection for the lifetime of one run and slots are never reclaimed,
// matching a backend that only ever grows its qubit count.
//
// Owned by exactly one run on a single goroutine; no locking.
type QubitRegistry struct {
	slots map[uint64]int
	order []uint64
}

// NewQubitRegistry creates an empty registry.
func NewQubitRegistry() *QubitRegistry {
	return &QubitRegistry{slots: make(map[uint64]int)}
}

// Resolve returns the allocation slot for a handle, allocating the next slot
// on first occurrence. Pure bookkeeping: it cannot fail.
func (r *QubitRegistry) Resolve(handle uint64) int {
	if slot, ok := r.slots[handle]; ok {
		return slot
	}
	slot := len(r.order)
	r.slots[handle] = slot
	r.order = append(r.order, handle)
	return slot
}

// Name returns the stable logical name for a handle ("q0", "q1", ...),
// resolving it first.
func (r *QubitRegistry) Name(handle uint64) string {
	return "q" + strconv.Itoa(r.Resolve(handle))
}

// Len returns the number of allocated slots.
func (r *QubitRegistry) Len() int {
	return len(r.order)
}
