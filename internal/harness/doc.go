// Package harness provides conformance testing for CUI rule trees.
//
// The harness compiles a rule tree, dispatches a scripted sequence of
// events through a journaled engine, and validates the resulting document.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	rules:                      # or source: rules.cue
//	  - $color: red
//	  - .a:
//	      - color: $color
//	      - "?click":
//	          - $color: green
//	  - a: []
//	steps:
//	  - dispatch: root/a[0]
//	    event: click
//	    expect: committed
//	assertions:
//	  - type: property
//	    element: root/a[0]
//	    key: color
//	    value: green
//
// A scenario whose rules must not compile sets build_error to the expected
// kind (ConflictingStructure, UndefinedVariable, UnknownEventName,
// CyclicVariableDependency or InvalidRule) and has no steps.
//
// # Assertion Types
//
//   - property / no_property: a resolved property of an element
//   - structure: the classes of an element's children, in order
//   - binding / no_binding: a listener binding on an element
//   - absent: a path that no longer resolves
//   - epoch: the document epoch
//
// # Deterministic Testing
//
// Every run uses a fixed session ID (scenario.session, or
// "test-session-default"), a fresh logical clock and an in-memory SQLite
// journal. After the steps settle the journal is replayed against the same
// rules; any divergence fails the scenario. Golden files hold the canonical
// JSON of the trace and final document.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/counter.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        fmt.Println(e)
//	    }
//	}
package harness
