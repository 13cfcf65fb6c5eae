package ir

import (
	"fmt"
	"strings"
)

// Kind is a sealed interface over the three rule kinds.
// Only Class, Element, and Listener implement it.
type Kind interface {
	ruleKind() // Sealed - only these types implement it

	// Label renders the kind the way it is written in source: ".name", "name", "?event".
	Label() string
}

// Class selects all current and future descendant elements with a class name.
type Class struct {
	Name string
}

func (Class) ruleKind() {}

// Label implements Kind.
func (k Class) Label() string { return "." + k.Name }

// Element instantiates a concrete element and applies properties to it.
type Element struct {
	Name string
}

func (Element) ruleKind() {}

// Label implements Kind.
func (k Element) Label() string { return k.Name }

// Listener binds an effect to a named event on the element it is declared on
// or matched against.
type Listener struct {
	Event string
}

func (Listener) ruleKind() {}

// Label implements Kind.
func (k Listener) Label() string { return "?" + k.Event }

// ValueExpr is a sealed interface for property values.
// Only Literal and VarRef implement it.
type ValueExpr interface {
	valueExpr()
	String() string
}

// Literal is a constant property value.
type Literal string

func (Literal) valueExpr() {}

func (l Literal) String() string { return fmt.Sprintf("%q", string(l)) }

// VarRef references a variable by name (without the leading "$").
type VarRef string

func (VarRef) valueExpr() {}

func (v VarRef) String() string { return "$" + string(v) }

// VariablePrefix marks a property key as a variable declaration or write.
const VariablePrefix = "$"

// Location identifies where a rule was declared.
// Path is the nesting path assigned by Index, e.g. "root/.a[0]/b[1]".
type Location struct {
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`
	Path string `json:"path"`
}

func (l Location) String() string {
	if l.File != "" && l.Line > 0 {
		return fmt.Sprintf("%s (%s:%d)", l.Path, l.File, l.Line)
	}
	if l.Line > 0 {
		return fmt.Sprintf("%s (line %d)", l.Path, l.Line)
	}
	return l.Path
}

// Property is one ordered key/value assignment in a rule body.
// Keys starting with "$" declare (or, inside listener effects, write) a variable.
type Property struct {
	Key   string
	Value ValueExpr
	Line  int
}

// IsVariable reports whether the property declares or writes a variable.
func (p Property) IsVariable() bool {
	return strings.HasPrefix(p.Key, VariablePrefix)
}

// VarName returns the variable name for a variable property.
func (p Property) VarName() string {
	return strings.TrimPrefix(p.Key, VariablePrefix)
}

// RuleNode is one node of the canonical rule tree.
//
// RuleNodes are produced by a loader (see internal/compiler) or by the
// constructors below and must not be mutated after Index has run.
type RuleNode struct {
	Kind       Kind
	Properties []Property
	Children   []*RuleNode

	// ID is the preorder declaration index assigned by Index. Root is 0.
	// It doubles as the source declaration order used for cascade tie-breaks.
	ID  int
	Loc Location
}

// IsClass reports whether the node is a Class rule, returning its selector name.
func (n *RuleNode) IsClass() (string, bool) {
	k, ok := n.Kind.(Class)
	return k.Name, ok
}

// IsElement reports whether the node is an Element rule, returning its class name.
func (n *RuleNode) IsElement() (string, bool) {
	k, ok := n.Kind.(Element)
	return k.Name, ok
}

// IsListener reports whether the node is a Listener rule, returning its event name.
func (n *RuleNode) IsListener() (string, bool) {
	k, ok := n.Kind.(Listener)
	return k.Event, ok
}

// ElementChildren returns the Element-kind children in declaration order.
// A non-empty result makes the node a structure contribution.
func (n *RuleNode) ElementChildren() []*RuleNode {
	var out []*RuleNode
	for _, c := range n.Children {
		if _, ok := c.Kind.(Element); ok {
			out = append(out, c)
		}
	}
	return out
}

// HasStructure reports whether the node contributes a structure.
func (n *RuleNode) HasStructure() bool {
	for _, c := range n.Children {
		if _, ok := c.Kind.(Element); ok {
			return true
		}
	}
	return false
}

// RootClass is the class name of the implicit document root.
const RootClass = "root"

// Index assigns preorder IDs and nesting paths to every node under root.
// It is deterministic and idempotent, so running it twice is harmless.
func Index(root *RuleNode) {
	next := 0
	var walk func(n *RuleNode, path string)
	walk = func(n *RuleNode, path string) {
		n.ID = next
		next++
		n.Loc.Path = path
		for i, c := range n.Children {
			walk(c, fmt.Sprintf("%s/%s[%d]", path, c.Kind.Label(), i))
		}
	}
	walk(root, root.Kind.Label())
}

// Walk visits n and all of its descendants in preorder.
// Returning false from fn skips the node's children.
func Walk(n *RuleNode, fn func(*RuleNode) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, fn)
	}
}

// Part is either a Property or a *RuleNode; used by the constructors.
type Part interface {
	part()
}

func (Property) part()  {}
func (*RuleNode) part() {}

// P builds a property with a literal value, or a variable reference when the
// value starts with "$".
func P(key, value string) Property {
	return Property{Key: key, Value: ParseValue(value)}
}

// ParseValue turns a scalar into a value expression: "$name" is a VarRef,
// anything else a Literal.
func ParseValue(s string) ValueExpr {
	if strings.HasPrefix(s, VariablePrefix) && len(s) > 1 {
		return VarRef(strings.TrimPrefix(s, VariablePrefix))
	}
	return Literal(s)
}

func build(kind Kind, parts []Part) *RuleNode {
	n := &RuleNode{Kind: kind}
	for _, p := range parts {
		switch v := p.(type) {
		case Property:
			n.Properties = append(n.Properties, v)
		case *RuleNode:
			n.Children = append(n.Children, v)
		}
	}
	return n
}

// NewRoot builds the implicit root Element and indexes the tree.
func NewRoot(parts ...Part) *RuleNode {
	root := build(Element{Name: RootClass}, parts)
	Index(root)
	return root
}

// NewClass builds a Class rule.
func NewClass(name string, parts ...Part) *RuleNode {
	return build(Class{Name: name}, parts)
}

// NewElement builds an Element rule.
func NewElement(name string, parts ...Part) *RuleNode {
	return build(Element{Name: name}, parts)
}

// NewListener builds a Listener rule.
func NewListener(event string, parts ...Part) *RuleNode {
	return build(Listener{Event: event}, parts)
}
