package harness

import (
	"fmt"

	"github.com/hartree-labs/qrep/internal/trace"
)

// Snapshot serializes a successful run outcome as canonical JSON for golden
// comparison: byte-identical snapshots across runs and platforms, so a golden
// mismatch always means a real behavior change.
func Snapshot(result *Result) ([]byte, error) {
	if result.Err != nil {
		return nil, fmt.Errorf("snapshot of failed run: %w", result.Err)
	}

	fingerprint, err := trace.Fingerprint(result.Events)
	if err != nil {
		return nil, fmt.Errorf("snapshot fingerprint: %w", err)
	}

	registers := make(map[string]any, len(result.Registers))
	for name, outcome := range result.Registers {
		registers[name] = outcome
	}

	doc := map[string]any{
		"scenario":    result.Scenario.Name,
		"entry_point": result.Report.EntryPoint,
		"qubits_used": result.Report.QubitsUsed,
		"registers":   registers,
		"events":      result.Events,
		"fingerprint": fingerprint,
	}

	data, err := trace.MarshalCanonical(doc)
	if err != nil {
		return nil, fmt.Errorf("snapshot marshal: %w", err)
	}
	return append(data, '\n'), nil
}
