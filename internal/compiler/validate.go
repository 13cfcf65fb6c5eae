package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/cui/internal/ir"
	"github.com/roach88/cui/internal/resolve"
)

// Validation error codes (E300-E399)
const (
	ErrUnknownEvent     = "E301" // listener names an event outside the recognized set
	ErrEmptyName        = "E302" // empty class, element or event name
	ErrEmptyPropertyKey = "E303" // property with an empty key
	ErrRootNotElement   = "E304" // root rule is not an element
	ErrEmptyVariable    = "E305" // "$" with no variable name
	ErrReservedChar     = "E306" // name contains a character reserved by element paths
)

// reservedChars cannot appear in class, element or event names because
// element paths ("root/a[1]/b") are built from them.
const reservedChars = "/[]$.?"

// ValidationError represents a static rule-tree error.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Code    string      `json:"code"`
	Line    int         `json:"line,omitempty"`
	Loc     ir.Location `json:"-"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// BuildError converts the finding into the fatal build error it implies.
// The element path is the nesting path of the offending rule.
func (e ValidationError) BuildError() *resolve.BuildError {
	kind := resolve.InvalidRule
	if e.Code == ErrUnknownEvent {
		kind = resolve.UnknownEventName
	}
	path := e.Loc.Path
	if path == "" {
		path = e.Field
	}
	return resolve.NewBuildError(kind, path, e.Message, e.Loc)
}

// Validate checks a rule tree before resolution: names, property keys and
// listener event names, including rules nested inside listener effects.
// Returns all errors found (does not fail-fast).
func Validate(root *ir.RuleNode, events EventSet) []ValidationError {
	var errs []ValidationError
	if root == nil {
		return []ValidationError{{Field: "root", Message: "rule tree is empty", Code: ErrRootNotElement}}
	}

	// E304: the implicit root is an element
	if _, ok := root.IsElement(); !ok {
		errs = append(errs, validationError(root, ErrRootNotElement,
			fmt.Sprintf("root must be an element rule, got %s", root.Kind.Label())))
	}

	ir.Walk(root, func(n *ir.RuleNode) bool {
		errs = append(errs, validateNode(n, events)...)
		return true
	})
	return errs
}

func validateNode(n *ir.RuleNode, events EventSet) []ValidationError {
	var errs []ValidationError

	var name, what string
	switch k := n.Kind.(type) {
	case ir.Class:
		name, what = k.Name, "class selector"
	case ir.Element:
		name, what = k.Name, "element name"
	case ir.Listener:
		name, what = k.Event, "event name"
	}

	switch {
	// E302: empty name
	case strings.TrimSpace(name) == "":
		errs = append(errs, validationError(n, ErrEmptyName, what+" is empty"))
	// E306: reserved characters
	case strings.ContainsAny(name, reservedChars):
		errs = append(errs, validationError(n, ErrReservedChar,
			fmt.Sprintf("%s %q contains one of %q", what, name, reservedChars)))
	}

	// E301: unknown event
	if ev, ok := n.IsListener(); ok && ev != "" && !events.Contains(ev) {
		errs = append(errs, validationError(n, ErrUnknownEvent,
			fmt.Sprintf("unknown event %q (known: %s)", ev, strings.Join(events.Names(), ", "))))
	}

	for _, p := range n.Properties {
		switch {
		// E303: empty key
		case strings.TrimSpace(p.Key) == "":
			errs = append(errs, propertyError(n, p, ErrEmptyPropertyKey, "property key is empty"))
		// E305: "$" alone
		case p.IsVariable() && p.VarName() == "":
			errs = append(errs, propertyError(n, p, ErrEmptyVariable, "variable name is empty"))
		}
		if ref, ok := p.Value.(ir.VarRef); ok && string(ref) == "" {
			errs = append(errs, propertyError(n, p, ErrEmptyVariable, "variable reference has no name"))
		}
	}
	return errs
}

func validationError(n *ir.RuleNode, code, msg string) ValidationError {
	return ValidationError{Field: n.Loc.Path, Message: msg, Code: code, Line: n.Loc.Line, Loc: n.Loc}
}

func propertyError(n *ir.RuleNode, p ir.Property, code, msg string) ValidationError {
	loc := n.Loc
	if p.Line > 0 {
		loc.Line = p.Line
	}
	return ValidationError{
		Field:   n.Loc.Path + "/" + p.Key,
		Message: msg,
		Code:    code,
		Line:    loc.Line,
		Loc:     loc,
	}
}
