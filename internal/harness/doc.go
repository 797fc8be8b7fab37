// Package harness runs conformance scenarios: YAML files that name a QIR
// module, a result stream, and expectations over the resulting gate trace
// and classical registers. Scenarios back the test command and the golden
// trace tests.
package harness
