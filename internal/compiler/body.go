package compiler

import (
	"strings"

	"github.com/roach88/cui/internal/ir"
)

// Interchange format shared by the YAML and CUE loaders.
//
// A rule body is an ordered list of single-key entries:
//
//	- .name: [...]     class rule
//	- ?event: [...]    listener rule
//	- $name: value     variable declaration (or write, inside a listener)
//	- name: [...]      element rule
//	- name: value      property
//
// A scalar starting with "$" is a variable reference. The top-level list is
// the body of the implicit root element.

const (
	classPrefix    = "."
	listenerPrefix = "?"
)

// isRuleKey reports whether key can only name a rule, never a property.
func isRuleKey(key string) bool {
	return strings.HasPrefix(key, classPrefix) || strings.HasPrefix(key, listenerPrefix)
}

// newRule creates the rule node named by key. Keys that are not class or
// listener selectors name elements.
func newRule(key string, loc ir.Location) *ir.RuleNode {
	var kind ir.Kind
	switch {
	case strings.HasPrefix(key, classPrefix):
		kind = ir.Class{Name: strings.TrimPrefix(key, classPrefix)}
	case strings.HasPrefix(key, listenerPrefix):
		kind = ir.Listener{Event: strings.TrimPrefix(key, listenerPrefix)}
	default:
		kind = ir.Element{Name: key}
	}
	return &ir.RuleNode{Kind: kind, Loc: loc}
}

func newProperty(key, value string, line int) ir.Property {
	return ir.Property{Key: key, Value: ir.ParseValue(value), Line: line}
}

func newRoot(file string) *ir.RuleNode {
	return &ir.RuleNode{Kind: ir.Element{Name: ir.RootClass}, Loc: ir.Location{File: file, Line: 1}}
}
