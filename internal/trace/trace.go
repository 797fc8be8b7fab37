// Package trace defines the recorded gate-event form shared by the run
// ledger, the replay checker, and the scenario harness, together with its
// canonical serialization and fingerprint.
package trace

// Event is one recorded backend call. Seq is assigned by the Recorder,
// numbering successful gate calls from 1; ordering by Seq reproduces the
// order the backend saw them in.
type Event struct {
	Seq    int64    `json:"seq"`
	Op     string   `json:"op"`
	Qubits []string `json:"qubits"`
	// Param is the rotation angle for rx/ry/rz; HasParam distinguishes a
	// genuine zero angle from an absent one.
	Param    float64 `json:"param,omitempty"`
	HasParam bool    `json:"has_param,omitempty"`
	// Result is the result-register name for m/mz, empty otherwise.
	Result string `json:"result,omitempty"`
}

// canonicalMap renders an event as the map shape used for canonical JSON.
// Optional fields are omitted entirely so absent and zero values cannot
// produce distinct fingerprints for the same trace.
func (e Event) canonicalMap() map[string]any {
	m := map[string]any{
		"seq":    e.Seq,
		"op":     e.Op,
		"qubits": e.Qubits,
	}
	if e.HasParam {
		m["param"] = e.Param
	}
	if e.Result != "" {
		m["result"] = e.Result
	}
	return m
}
