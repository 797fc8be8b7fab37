package eval

// MeasurementRegister is the append-only record of named classical results.
// Re-measuring a result overwrites its entry; insertion order is not
// significant (the result stream is the only ordered structure in a run).
//
// Owned by exactly one run on a single goroutine; no locking.
type MeasurementRegister struct {
	outcomes map[string]bool
}

// NewMeasurementRegister creates an empty register.
func NewMeasurementRegister() *MeasurementRegister {
	return &MeasurementRegister{outcomes: make(map[string]bool)}
}

// Record stores an outcome for a result name, overwriting any prior value.
func (m *MeasurementRegister) Record(name string, outcome bool) {
	m.outcomes[name] = outcome
}

// Lookup returns the recorded outcome, false if the name was never measured.
func (m *MeasurementRegister) Lookup(name string) bool {
	return m.outcomes[name]
}

// Len returns the number of distinct recorded results.
func (m *MeasurementRegister) Len() int {
	return len(m.outcomes)
}

// Snapshot returns a copy of the current state. The copy is what run
// metadata carries, so later mutation of the register cannot alias into a
// finished backend.
func (m *MeasurementRegister) Snapshot() map[string]bool {
	snap := make(map[string]bool, len(m.outcomes))
	for name, outcome := range m.outcomes {
		snap[name] = outcome
	}
	return snap
}
