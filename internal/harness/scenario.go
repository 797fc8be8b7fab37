package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines one conformance case: evaluate a module against a fixed
// result stream and assert on the trace and final registers.
type Scenario struct {
	// Name uniquely identifies this scenario; it is also the golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Module is the path to the QIR module (textual or compact binary),
	// relative to the scenario file.
	Module string `yaml:"module"`

	// EntryPoint names the entry point; empty means the module must resolve
	// one unambiguously.
	EntryPoint string `yaml:"entry_point,omitempty"`

	// Results is the pre-determined measurement outcome stream.
	Results []bool `yaml:"results,omitempty"`

	// Backend selects the gate set ("logger" by default, or "sim").
	Backend string `yaml:"backend,omitempty"`

	// Expect holds the expected outcome of the run.
	Expect ExpectClause `yaml:"expect"`

	// Assertions validate the recorded gate trace.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// ExpectClause specifies the expected run outcome.
type ExpectClause struct {
	// Registers is the expected classical-register mapping. Exact match:
	// a run must produce these entries and no others.
	Registers map[string]bool `yaml:"registers,omitempty"`

	// ErrorCode, when set, means the run must fail with a fault whose text
	// contains this code; registers and assertions are then ignored.
	ErrorCode string `yaml:"error_code,omitempty"`
}

// Assertion validates the recorded trace.
type Assertion struct {
	// Type is one of trace_contains, trace_order, trace_count.
	Type string `yaml:"type"`

	// Op is the gate name (trace_contains, trace_count).
	Op string `yaml:"op,omitempty"`

	// Qubits are the expected logical operand names (trace_contains).
	Qubits []string `yaml:"qubits,omitempty"`

	// Result is the expected result-register name (trace_contains).
	Result string `yaml:"result,omitempty"`

	// Ops is the expected op order, as a subsequence (trace_order).
	Ops []string `yaml:"ops,omitempty"`

	// Count is the expected number of occurrences (trace_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
)

// LoadScenario reads and parses a scenario YAML file, resolving the module
// path relative to the scenario file. Unknown fields are rejected so typos
// fail loudly instead of silently weakening a scenario.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Module != "" && !filepath.IsAbs(scenario.Module) {
		scenario.Module = filepath.Join(filepath.Dir(path), scenario.Module)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}

	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Module == "" {
		return fmt.Errorf("module is required")
	}
	if _, err := os.Stat(s.Module); os.IsNotExist(err) {
		return fmt.Errorf("module file not found: %s", s.Module)
	}
	for i, a := range s.Assertions {
		switch a.Type {
		case AssertTraceContains:
			if a.Op == "" {
				return fmt.Errorf("assertions[%d]: op is required for %s", i, a.Type)
			}
		case AssertTraceOrder:
			if len(a.Ops) == 0 {
				return fmt.Errorf("assertions[%d]: ops is required for %s", i, a.Type)
			}
		case AssertTraceCount:
			if a.Op == "" {
				return fmt.Errorf("assertions[%d]: op is required for %s", i, a.Type)
			}
		default:
			return fmt.Errorf("assertions[%d]: unknown type %q", i, a.Type)
		}
	}
	return nil
}

// DiscoverScenarios lists *.yaml scenario files under dir, sorted.
func DiscoverScenarios(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("discover scenarios: %w", err)
	}
	if yml, err := filepath.Glob(filepath.Join(dir, "*.yml")); err == nil {
		matches = append(matches, yml...)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no scenario files found in %s", dir)
	}
	return matches, nil
}
