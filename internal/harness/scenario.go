package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/cui/internal/engine"
	"github.com/roach88/cui/internal/resolve"
)

// Scenario defines a conformance test scenario: a rule tree, a sequence
// of dispatched events, and assertions on the resulting document.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are named after it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Source is a rule file (.yaml, .yml or .cue) relative to the scenario
	// file. Exactly one of Source and Rules is set.
	Source string `yaml:"source,omitempty"`

	// Rules is an inline rule tree in the YAML rule format.
	Rules yaml.Node `yaml:"rules,omitempty"`

	// Events extends the built-in event set.
	Events []string `yaml:"events,omitempty"`

	// Session is an optional fixed session ID.
	// If empty, defaults to "test-session-default" for golden comparison.
	Session string `yaml:"session,omitempty"`

	// BuildError names the expected build error kind (e.g.
	// "ConflictingStructure"). A scenario that expects a build error has no
	// steps.
	BuildError string `yaml:"build_error,omitempty"`

	// Steps are dispatched one at a time, each against the document left
	// by the previous one.
	Steps []Step `yaml:"steps,omitempty"`

	// Assertions validate the final document.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// path is the file the scenario was loaded from; empty for scenarios
	// built in code.
	path string
}

// Step dispatches one event.
type Step struct {
	// Dispatch is the target element path ("root/a[1]"), or "#N" for a raw
	// element ID, which may address a destroyed element.
	Dispatch string `yaml:"dispatch"`

	// Event is the event name.
	Event string `yaml:"event"`

	// Expect is the expected outcome. If empty, "committed" is assumed.
	Expect string `yaml:"expect,omitempty"`
}

// Assertion validates the final document.
type Assertion struct {
	// Type specifies the assertion type:
	// - "property": element has Key resolved to Value
	// - "no_property": element has no Key
	// - "structure": element's children have exactly Classes, in order
	// - "binding": element has a listener for Event
	// - "no_binding": element has no listener for Event
	// - "absent": Element does not resolve to a live element
	// - "epoch": document epoch equals Epoch
	Type string `yaml:"type"`

	Element string   `yaml:"element,omitempty"`
	Key     string   `yaml:"key,omitempty"`
	Value   *string  `yaml:"value,omitempty"`
	Classes []string `yaml:"classes,omitempty"`
	Event   string   `yaml:"event,omitempty"`
	Epoch   *int64   `yaml:"epoch,omitempty"`
}

// Assertion type constants.
const (
	AssertProperty   = "property"
	AssertNoProperty = "no_property"
	AssertStructure  = "structure"
	AssertBinding    = "binding"
	AssertNoBinding  = "no_binding"
	AssertAbsent     = "absent"
	AssertEpoch      = "epoch"
)

var stepOutcomes = []engine.Outcome{
	engine.OutcomeCommitted,
	engine.OutcomeNoop,
	engine.OutcomeRejected,
	engine.OutcomeUnknownElement,
}

var buildErrorKinds = []resolve.ErrorKind{
	resolve.ConflictingStructure,
	resolve.UndefinedVariable,
	resolve.UnknownEventName,
	resolve.CyclicVariableDependency,
	resolve.InvalidRule,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative Source is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	scenario.path = path
	if scenario.Source != "" && !filepath.IsAbs(scenario.Source) {
		scenario.Source = filepath.Join(filepath.Dir(path), scenario.Source)
	}
	if scenario.Source != "" {
		if _, err := os.Stat(scenario.Source); err != nil {
			return nil, fmt.Errorf("invalid scenario: rule source not found: %s", scenario.Source)
		}
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML that is not backed by a file.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// hasRules reports whether the scenario carries an inline rule tree.
func (s *Scenario) hasRules() bool {
	return s.Rules.Kind != 0
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Source == "" && !s.hasRules():
		return fmt.Errorf("one of source or rules is required")
	case s.Source != "" && s.hasRules():
		return fmt.Errorf("source and rules are mutually exclusive")
	}

	if s.BuildError != "" {
		if !slices.Contains(buildErrorKinds, resolve.ErrorKind(s.BuildError)) {
			return fmt.Errorf("build_error: unknown kind %q", s.BuildError)
		}
		if len(s.Steps) > 0 || len(s.Assertions) > 0 {
			return fmt.Errorf("a scenario expecting build_error cannot have steps or assertions")
		}
		return nil
	}

	if len(s.Steps) == 0 && len(s.Assertions) == 0 {
		return fmt.Errorf("steps or assertions are required")
	}

	for i, step := range s.Steps {
		if step.Dispatch == "" {
			return fmt.Errorf("steps[%d]: dispatch is required", i)
		}
		if step.Event == "" {
			return fmt.Errorf("steps[%d]: event is required", i)
		}
		if step.Expect != "" && !slices.Contains(stepOutcomes, engine.Outcome(step.Expect)) {
			return fmt.Errorf("steps[%d]: unknown expect %q (want committed, noop, rejected or unknown_element)", i, step.Expect)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertProperty:
		if a.Key == "" {
			return fmt.Errorf("assertions[%d]: property requires 'key'", index)
		}
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: property requires 'value'", index)
		}
	case AssertNoProperty:
		if a.Key == "" {
			return fmt.Errorf("assertions[%d]: no_property requires 'key'", index)
		}
	case AssertStructure:
		if a.Classes == nil {
			return fmt.Errorf("assertions[%d]: structure requires 'classes' (use [] for none)", index)
		}
	case AssertBinding, AssertNoBinding:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: %s requires 'event'", index, a.Type)
		}
	case AssertAbsent:
		if a.Element == "" {
			return fmt.Errorf("assertions[%d]: absent requires 'element'", index)
		}
	case AssertEpoch:
		if a.Epoch == nil {
			return fmt.Errorf("assertions[%d]: epoch requires 'epoch'", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown type %q", index, a.Type)
	}
	return nil
}
