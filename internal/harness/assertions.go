package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/cui/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes the element tree to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Element  string // Element path the assertion addressed
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Tree     string // Rendered element tree
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s", e.Type)
	if e.Element != "" {
		fmt.Fprintf(&buf, " on %s", e.Element)
	}
	buf.WriteByte('\n')

	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Tree != "" {
		fmt.Fprintf(&buf, "\nElement tree:\n%s", e.Tree)
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against doc and returns the
// failure messages, in assertion order.
func EvaluateAssertions(doc *ir.Document, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(doc, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluateAssertion(doc *ir.Document, a Assertion) error {
	fail := func(expected, actual string) error {
		return &AssertionError{
			Type:     a.Type,
			Element:  a.Element,
			Expected: expected,
			Actual:   actual,
			Tree:     ir.RenderTree(doc),
		}
	}

	if a.Type == AssertEpoch {
		if doc.Epoch != *a.Epoch {
			return fail(fmt.Sprintf("epoch %d", *a.Epoch), fmt.Sprintf("epoch %d", doc.Epoch))
		}
		return nil
	}

	id, err := doc.Find(a.Element)
	if a.Type == AssertAbsent {
		if err == nil {
			return fail("no live element", fmt.Sprintf("element #%d", id))
		}
		return nil
	}
	if err != nil {
		return fail("a live element", err.Error())
	}

	switch a.Type {
	case AssertProperty:
		got, ok := doc.Property(id, a.Key)
		if !ok {
			return fail(fmt.Sprintf("%s = %q", a.Key, *a.Value), fmt.Sprintf("no %s property", a.Key))
		}
		if got != *a.Value {
			return fail(fmt.Sprintf("%s = %q", a.Key, *a.Value), fmt.Sprintf("%s = %q", a.Key, got))
		}

	case AssertNoProperty:
		if got, ok := doc.Property(id, a.Key); ok {
			return fail(fmt.Sprintf("no %s property", a.Key), fmt.Sprintf("%s = %q", a.Key, got))
		}

	case AssertStructure:
		got := childClasses(doc, id)
		if !slices.Equal(got, a.Classes) {
			return fail(fmt.Sprintf("children %v", a.Classes), fmt.Sprintf("children %v", got))
		}

	case AssertBinding:
		if _, ok := doc.Binding(id, a.Event); !ok {
			return fail(fmt.Sprintf("listener for %q", a.Event), "no listener")
		}

	case AssertNoBinding:
		if p, ok := doc.Binding(id, a.Event); ok {
			return fail(fmt.Sprintf("no listener for %q", a.Event), fmt.Sprintf("listener with %d rule(s)", len(p.Rules)))
		}

	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

func childClasses(doc *ir.Document, id ir.ElementID) []string {
	st, _ := doc.Element(id)
	classes := make([]string, 0, len(st.Structure))
	for _, c := range st.Structure {
		classes = append(classes, doc.Elements[c].Class)
	}
	return classes
}
