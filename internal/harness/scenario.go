package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sbomgraph/internal/classify"
	"github.com/roach88/sbomgraph/internal/cycle"
)

// Scenario defines a merge scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Scope selects the validation scope; empty means global.
	Scope string `yaml:"scope,omitempty"`

	// RoleSet selects the role set; empty means full.
	RoleSet string `yaml:"role_set,omitempty"`

	// Steps run in order against one engine.
	Steps []Step `yaml:"steps"`

	// Assertions validate the state after the last step.
	Assertions []Assertion `yaml:"assertions"`

	// Dir resolves relative merge paths. LoadScenario sets it to the
	// scenario file's directory.
	Dir string `yaml:"-"`
}

// Step is exactly one of merge, document or clear.
type Step struct {
	// Merge is a document path, relative to the scenario file.
	Merge string `yaml:"merge,omitempty"`

	// Document is an inline SBOM document.
	Document map[string]any `yaml:"document,omitempty"`

	// Source names an inline document; defaults to "step-N".
	Source string `yaml:"source,omitempty"`

	// Clear discards the whole graph.
	Clear bool `yaml:"clear,omitempty"`

	// Expect validates the step. If nil, any outcome is accepted.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes the expected outcome of a merge step.
type Expect struct {
	// Outcome is one of ok, circular_dependency, load_error.
	Outcome string `yaml:"outcome"`

	// Cycle is the exact rejected path (circular_dependency only).
	Cycle []string `yaml:"cycle,omitempty"`

	// Roles is a subset match on the roles after the step.
	Roles map[string]string `yaml:"roles,omitempty"`

	// NodesAdded is the number of new components (ok only).
	NodesAdded *int `yaml:"nodes_added,omitempty"`
}

// Expected step outcomes.
const (
	ExpectOK       = "ok"
	ExpectCircular = "circular_dependency"
	ExpectLoad     = "load_error"
)

// Assertion validates the final state.
type Assertion struct {
	// Type is one of final_roles, final_edges, node_count, journal_count,
	// acyclic.
	Type string `yaml:"type"`

	// Roles is a subset match (final_roles).
	Roles map[string]string `yaml:"roles,omitempty"`

	// Edges is the exact [source, target] list (final_edges).
	Edges [][]string `yaml:"edges,omitempty"`

	// Count is the expected number (node_count, journal_count).
	Count int `yaml:"count,omitempty"`

	// Outcome filters journal attempts (journal_count); empty counts all.
	Outcome string `yaml:"outcome,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalRoles   = "final_roles"
	AssertFinalEdges   = "final_edges"
	AssertNodeCount    = "node_count"
	AssertJournalCount = "journal_count"
	AssertAcyclic      = "acyclic"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	scenario.Dir = filepath.Dir(path)

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if _, err := cycle.ParseScope(s.Scope); err != nil {
		return err
	}
	if _, err := classify.ParseRoleSet(s.RoleSet); err != nil {
		return err
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, step *Step) error {
	kinds := 0
	if step.Merge != "" {
		kinds++
	}
	if step.Document != nil {
		kinds++
	}
	if step.Clear {
		kinds++
	}
	if kinds != 1 {
		return fmt.Errorf("steps[%d]: exactly one of merge, document, clear is required", index)
	}

	if step.Clear && step.Expect != nil {
		return fmt.Errorf("steps[%d]: clear takes no expect clause", index)
	}
	if step.Source != "" && step.Document == nil {
		return fmt.Errorf("steps[%d]: source applies to inline documents only", index)
	}

	if step.Expect == nil {
		return nil
	}
	switch step.Expect.Outcome {
	case ExpectOK, ExpectLoad:
		if len(step.Expect.Cycle) > 0 {
			return fmt.Errorf("steps[%d].expect: cycle requires outcome %s", index, ExpectCircular)
		}
	case ExpectCircular:
	case "":
		return fmt.Errorf("steps[%d].expect: outcome is required", index)
	default:
		return fmt.Errorf("steps[%d].expect: unknown outcome %q", index, step.Expect.Outcome)
	}
	if step.Expect.NodesAdded != nil && step.Expect.Outcome != ExpectOK {
		return fmt.Errorf("steps[%d].expect: nodes_added requires outcome %s", index, ExpectOK)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFinalRoles:
		if len(a.Roles) == 0 {
			return fmt.Errorf("assertions[%d]: roles is required for final_roles", index)
		}
	case AssertFinalEdges:
		for j, e := range a.Edges {
			if len(e) != 2 {
				return fmt.Errorf("assertions[%d]: edges[%d] must be [source, target]", index, j)
			}
		}
	case AssertNodeCount, AssertJournalCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertAcyclic:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
