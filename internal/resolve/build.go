package resolve

import (
	"fmt"

	"github.com/roach88/cui/internal/ir"
)

// Build resolves the initial document of a rule tree at epoch 0.
//
// The root must be an Element rule. The tree is indexed if it has not been.
// Any failure aborts the build; no partial state is returned.
func Build(root *ir.RuleNode) (*State, error) {
	if root == nil {
		return nil, NewBuildError(InvalidRule, "", "rule tree is empty")
	}
	if _, ok := root.IsElement(); !ok {
		return nil, NewBuildError(InvalidRule, "",
			fmt.Sprintf("root must be an element rule, got %s", root.Kind.Label()), root.Loc)
	}
	if root.Loc.Path == "" {
		ir.Index(root)
	}

	s := newState()
	id, err := s.Instantiate(root, ir.NoElement, 0)
	if err != nil {
		return nil, err
	}
	s.root = id
	if err := s.ValidateStructure(); err != nil {
		return nil, err
	}
	return s, nil
}

// Instantiate creates the element for rule under parent, with its whole
// structure, at the given epoch. Every element created is matched, declared,
// resolved and subscribed before Instantiate returns.
func (s *State) Instantiate(rule *ir.RuleNode, parent ir.ElementID, epoch int64) (ir.ElementID, error) {
	elemMark, varMark := len(s.elements), s.vars.Len()

	id, err := s.create(rule, parent, epoch)
	if err != nil {
		return ir.NoElement, err
	}
	if err := s.settle(elemMark, varMark); err != nil {
		return ir.NoElement, err
	}
	return id, nil
}

// settle binds and evaluates the variables declared since varMark, then
// resolves every element created since elemMark.
func (s *State) settle(elemMark, varMark int) error {
	if err := s.settleVariables(varMark); err != nil {
		return err
	}
	for i := elemMark; i < len(s.elements); i++ {
		if !s.elements[i].Alive {
			continue
		}
		if err := s.Resolve(ir.ElementID(i)); err != nil {
			return err
		}
	}
	return nil
}

// create instantiates one element and, recursively, its structure.
// Properties are not resolved here; see settle.
func (s *State) create(rule *ir.RuleNode, parent ir.ElementID, epoch int64) (ir.ElementID, error) {
	class, ok := rule.IsElement()
	if !ok {
		return ir.NoElement, NewBuildError(InvalidRule, s.Path(parent),
			fmt.Sprintf("cannot instantiate %s as an element", rule.Kind.Label()), rule.Loc)
	}

	depth := 0
	if parent != ir.NoElement {
		depth = s.elements[parent].Depth + 1
	}
	if depth > MaxDepth {
		return ir.NoElement, NewBuildError(InvalidRule, s.Path(parent),
			fmt.Sprintf("structure nesting exceeds %d levels", MaxDepth), rule.Loc)
	}

	id := ir.ElementID(len(s.elements))
	e := &Element{
		ID:         id,
		Class:      class,
		Parent:     parent,
		Depth:      depth,
		Alive:      true,
		Rule:       rule,
		Frame:      make(map[string]VarID),
		Overrides:  make(map[string]Override),
		Properties: make(map[string]string),
		Bindings:   make(map[string][]*ir.RuleNode),
		reads:      make(map[string]VarID),
	}
	if parent != ir.NoElement {
		e.Matched = s.Match(parent, class)
		p := s.elements[parent]
		p.Structure = append(p.Structure, id)
	}
	s.elements = append(s.elements, e)

	layers := e.layers()
	s.declare(e, layers)
	for _, layer := range layers {
		for _, child := range layer.Children {
			switch k := child.Kind.(type) {
			case ir.Class:
				e.declareClass(child)
			case ir.Listener:
				e.bind(k.Event, child)
			case ir.Element:
				// structure, below
			}
		}
	}

	source, err := s.assignAll(id, layers, epoch)
	if err != nil {
		return ir.NoElement, err
	}
	if source != nil {
		for _, child := range source.ElementChildren() {
			if _, err := s.create(child, id, epoch); err != nil {
				return ir.NoElement, err
			}
		}
	}
	return id, nil
}

// declare creates the variables declared by the layers of e. A later layer
// redeclaring a name replaces the earlier declaration.
func (s *State) declare(e *Element, layers []*ir.RuleNode) {
	type decl struct {
		expr ir.ValueExpr
		loc  ir.Location
	}
	var order []string
	decls := make(map[string]decl)
	for _, layer := range layers {
		for _, p := range layer.Properties {
			if !p.IsVariable() {
				continue
			}
			name := p.VarName()
			if _, seen := decls[name]; !seen {
				order = append(order, name)
			}
			decls[name] = decl{expr: p.Value, loc: propertyLoc(layer, p)}
		}
	}
	for _, name := range order {
		d := decls[name]
		e.Frame[name] = s.vars.Declare(e.ID, name, d.expr, d.loc)
	}
}

// bind adds a listener rule to the binding for event. Binding the same rule
// twice is a no-op.
func (e *Element) bind(event string, rule *ir.RuleNode) {
	for _, r := range e.Bindings[event] {
		if r.ID == rule.ID {
			return
		}
	}
	e.Bindings[event] = append(e.Bindings[event], rule)
}
