// Package harness runs conformance scenarios against the reconstruction
// algorithm. A scenario is a YAML file holding a flat list of records plus
// expectations; the harness feeds the records to a Parser in many
// permutations, checks that every permutation produces an identical result
// (the order-independence property), and renders the reconstructed forest
// for golden-file comparison.
package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines one conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario; it doubles as the golden
	// file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Records is the flat record stream, in producer emission order. The
	// harness feeds it in this order, in reverse, and in sampled or
	// exhaustive permutations.
	Records []map[string]any `yaml:"records"`

	// Expect holds the scenario's expectations.
	Expect Expect `yaml:"expect"`
}

// Expect specifies the expected outcome, identical across permutations.
type Expect struct {
	// Complete, when set, asserts whether every task in the stream ends
	// structurally complete.
	Complete *bool `yaml:"complete,omitempty"`

	// Error, when non-empty, asserts that every permutation fails with a
	// validation error of this code (e.g. "DUPLICATE_CHILD"). Scenarios
	// with an expected error produce no rendering.
	Error string `yaml:"error,omitempty"`

	// Tasks, when non-zero, asserts the number of distinct tasks in the
	// stream.
	Tasks int `yaml:"tasks,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file, rejecting unknown
// fields so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("scenario %s: missing name", path)
	}
	if len(s.Records) == 0 {
		return nil, fmt.Errorf("scenario %s: no records", path)
	}
	return &s, nil
}
