package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/citesync/internal/formatter"
)

// Scenario defines one citation editing script.
// Scenarios exercise the full pipeline: edits flow through the session
// to the embedded engine and back into the document.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario exercises.
	Description string `yaml:"description"`

	// Style selects the citation style; empty means the store default.
	Style string `yaml:"style,omitempty"`

	// Locale selects the locale; empty means the store default.
	Locale string `yaml:"locale,omitempty"`

	// Library is the engine's reference library, keyed by item ID.
	Library map[string]formatter.Reference `yaml:"library,omitempty"`

	// Steps are the edits, applied in order. Each step settles fully
	// before the next begins.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final document and ledger.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one edit in the script.
type Step struct {
	// Op is the edit kind: "insert", "edit", or "delete".
	Op string `yaml:"op"`

	// Position is the 0-based marker position the edit addresses. For
	// insert it is where the new marker goes.
	Position int `yaml:"position"`

	// Items is the requested reference-item set. Required for insert
	// and edit; must be absent for delete.
	Items []string `yaml:"items,omitempty"`
}

// Step operation constants.
const (
	OpInsert = "insert"
	OpEdit   = "edit"
	OpDelete = "delete"
)

// Assertion validates the final state after all steps settle.
type Assertion struct {
	// Type selects the check: render_contains, marker_text,
	// citation_count, note_sequence, unique_ids.
	Type string `yaml:"type"`

	// Text is the expected content (render_contains, marker_text).
	Text string `yaml:"text,omitempty"`

	// Position addresses a marker (marker_text).
	Position int `yaml:"position,omitempty"`

	// Count is the expected record count (citation_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertRenderContains = "render_contains"
	AssertMarkerText     = "marker_text"
	AssertCitationCount  = "citation_count"
	AssertNoteSequence   = "note_sequence"
	AssertUniqueIDs      = "unique_ids"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks required fields and step shapes.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		switch step.Op {
		case OpInsert, OpEdit:
			if len(step.Items) == 0 {
				return fmt.Errorf("steps[%d]: %s requires items", i, step.Op)
			}
		case OpDelete:
			if len(step.Items) != 0 {
				return fmt.Errorf("steps[%d]: delete takes no items", i)
			}
		default:
			return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
		}
		if step.Position < 0 {
			return fmt.Errorf("steps[%d]: position must be non-negative", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion against its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertRenderContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for render_contains", index)
		}
	case AssertMarkerText:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for marker_text", index)
		}
		if a.Position < 0 {
			return fmt.Errorf("assertions[%d]: position must be non-negative", index)
		}
	case AssertCitationCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertNoteSequence, AssertUniqueIDs:
		// No parameters.
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
