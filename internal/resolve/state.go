package resolve

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/cui/internal/ir"
)

// Element is one instantiated element in the arena.
//
// Parent is an arena index, never a pointer. An element stays in the arena
// after it is destroyed (Alive == false) so IDs are never reused.
type Element struct {
	ID     ir.ElementID
	Class  string
	Parent ir.ElementID
	Depth  int
	Alive  bool

	// Rule is the element block that instantiated this element.
	Rule *ir.RuleNode

	// Matched holds the class contributions fixed at creation, in cascade order.
	Matched []Contribution

	// Classes are the class rules declared in this element's scope.
	// They match descendants created after they were declared.
	Classes []ClassRule

	// Frame maps variable names declared on this element to store IDs.
	Frame map[string]VarID

	// Overrides are listener-effect property assignments, highest precedence.
	Overrides map[string]Override

	Properties map[string]string
	Structure  []ir.ElementID
	Assignment StructureAssignment
	Assigned   bool

	// Bindings maps event names to listener rules in cascade order.
	Bindings map[string][]*ir.RuleNode

	// reads records which variable each resolved property key reads.
	reads map[string]VarID
}

// ClassRule is a class rule declared in the scope of an element.
type ClassRule struct {
	Rule  *ir.RuleNode
	Depth int // depth of the declaring scope element
}

// Contribution is a matched class rule together with its scope depth.
type Contribution struct {
	Rule  *ir.RuleNode
	Depth int
}

// Override is a property written by a listener effect.
type Override struct {
	Value ir.ValueExpr
	Loc   ir.Location
}

// State is the element/variable graph of one compiled document.
type State struct {
	elements []*Element
	vars     *Store
	root     ir.ElementID
	epoch    int64
	phases   map[ir.ListenerKey]string
}

func newState() *State {
	return &State{
		vars:   newStore(),
		root:   ir.NoElement,
		phases: make(map[ir.ListenerKey]string),
	}
}

// Clone returns a deep copy of the state. Rule nodes are shared, not copied.
func (s *State) Clone() *State {
	c := &State{
		elements: make([]*Element, len(s.elements)),
		vars:     s.vars.clone(),
		root:     s.root,
		epoch:    s.epoch,
		phases:   maps.Clone(s.phases),
	}
	for i, e := range s.elements {
		c.elements[i] = e.clone()
	}
	return c
}

func (e *Element) clone() *Element {
	c := *e
	c.Matched = slices.Clone(e.Matched)
	c.Classes = slices.Clone(e.Classes)
	c.Frame = maps.Clone(e.Frame)
	c.Overrides = maps.Clone(e.Overrides)
	c.Properties = maps.Clone(e.Properties)
	c.Structure = slices.Clone(e.Structure)
	c.reads = maps.Clone(e.reads)
	c.Bindings = make(map[string][]*ir.RuleNode, len(e.Bindings))
	for ev, rules := range e.Bindings {
		c.Bindings[ev] = slices.Clone(rules)
	}
	return &c
}

// Root returns the root element ID.
func (s *State) Root() ir.ElementID { return s.root }

// Epoch returns the logical time of the last committed change. The initial build is epoch 0.
func (s *State) Epoch() int64 { return s.epoch }

// Element returns a live element.
func (s *State) Element(id ir.ElementID) (*Element, bool) {
	if id < 0 || int(id) >= len(s.elements) {
		return nil, false
	}
	e := s.elements[id]
	return e, e.Alive
}

// Len returns the number of elements ever created, live or destroyed.
func (s *State) Len() int { return len(s.elements) }

// Variables returns the variable store.
func (s *State) Variables() *Store { return s.vars }

// Path renders the element path of id, e.g. "root/a[0]/b[1]".
func (s *State) Path(id ir.ElementID) string {
	if id == ir.NoElement {
		return ""
	}
	if id < 0 || int(id) >= len(s.elements) {
		return "#" + strconv.Itoa(int(id))
	}
	var segs []string
	for cur := id; cur != ir.NoElement; {
		e := s.elements[cur]
		if e.Parent == ir.NoElement {
			segs = append(segs, e.Class)
			break
		}
		n := 0
		for _, sib := range s.elements[e.Parent].Structure {
			if sib == cur {
				break
			}
			if s.elements[sib].Class == e.Class {
				n++
			}
		}
		segs = append(segs, e.Class+"["+strconv.Itoa(n)+"]")
		cur = e.Parent
	}
	slices.Reverse(segs)
	return strings.Join(segs, "/")
}

// Phase returns the state-machine phase of a binding. Unknown bindings are idle.
func (s *State) Phase(key ir.ListenerKey) string {
	if p, ok := s.phases[key]; ok {
		return p
	}
	return ir.PhaseIdle
}

// SetPhase records the phase of a binding.
func (s *State) SetPhase(key ir.ListenerKey, phase string) {
	s.phases[key] = phase
}

// ListenerKeys returns every live binding ordered by element then event.
func (s *State) ListenerKeys() []ir.ListenerKey {
	var keys []ir.ListenerKey
	for _, e := range s.elements {
		if !e.Alive {
			continue
		}
		events := slices.Sorted(maps.Keys(e.Bindings))
		for _, ev := range events {
			if len(e.Bindings[ev]) > 0 {
				keys = append(keys, ir.ListenerKey{Element: e.ID, Event: ev})
			}
		}
	}
	return keys
}

// Program returns the listener rules bound to key in cascade order.
func (s *State) Program(key ir.ListenerKey) []*ir.RuleNode {
	e, ok := s.Element(key.Element)
	if !ok {
		return nil
	}
	return e.Bindings[key.Event]
}

// Digest identifies the state up to element IDs, variable IDs and epochs.
// Elements are named by their position in the structure tree, so two states
// with equal digests stage every listener effect identically.
func (s *State) Digest() string {
	pos := make(map[ir.ElementID]string)
	var order []ir.ElementID
	var walk func(id ir.ElementID, p string)
	walk = func(id ir.ElementID, p string) {
		pos[id] = p
		order = append(order, id)
		for i, c := range s.elements[id].Structure {
			walk(c, p+"."+strconv.Itoa(i))
		}
	}
	if s.root != ir.NoElement {
		walk(s.root, "0")
	}

	h := sha256.New()
	for _, id := range order {
		e := s.elements[id]
		fmt.Fprintf(h, "%s %s rule=%d\n", pos[id], e.Class, ruleID(e.Rule))
		for _, c := range e.Matched {
			fmt.Fprintf(h, " match %d@%d\n", c.Rule.ID, c.Depth)
		}
		for _, c := range e.Classes {
			fmt.Fprintf(h, " class %d@%d\n", c.Rule.ID, c.Depth)
		}
		for _, name := range slices.Sorted(maps.Keys(e.Frame)) {
			v := s.vars.Get(e.Frame[name])
			fmt.Fprintf(h, " var $%s=%q", name, v.Value)
			if v.Dep != noVar {
				d := s.vars.Get(v.Dep)
				fmt.Fprintf(h, " <- %s$%s", pos[d.Owner], d.Name)
			}
			fmt.Fprintln(h)
		}
		for _, key := range slices.Sorted(maps.Keys(e.Overrides)) {
			fmt.Fprintf(h, " override %s=%s\n", key, exprString(e.Overrides[key].Value))
		}
		for _, ev := range slices.Sorted(maps.Keys(e.Bindings)) {
			fmt.Fprintf(h, " on %s", ev)
			for _, r := range e.Bindings[ev] {
				fmt.Fprintf(h, " %d", r.ID)
			}
			fmt.Fprintln(h)
		}
		for _, key := range slices.Sorted(maps.Keys(e.Properties)) {
			fmt.Fprintf(h, " prop %s=%q\n", key, e.Properties[key])
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func ruleID(r *ir.RuleNode) int {
	if r == nil {
		return -1
	}
	return r.ID
}

func exprString(v ir.ValueExpr) string {
	switch x := v.(type) {
	case ir.VarRef:
		return "$" + string(x)
	case ir.Literal:
		return strconv.Quote(string(x))
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Snapshot converts the live state into a resolved document.
func (s *State) Snapshot() *ir.Document {
	doc := &ir.Document{
		Root:      s.root,
		Epoch:     s.epoch,
		Elements:  make(map[ir.ElementID]ir.ElementState),
		Listeners: make(map[ir.ListenerKey]ir.EffectProgram),
	}
	for _, e := range s.elements {
		if !e.Alive {
			continue
		}
		doc.Elements[e.ID] = ir.ElementState{
			Class:      e.Class,
			Parent:     e.Parent,
			Properties: maps.Clone(e.Properties),
			Structure:  slices.Clone(e.Structure),
		}
		for ev, rules := range e.Bindings {
			if len(rules) == 0 {
				continue
			}
			key := ir.ListenerKey{Element: e.ID, Event: ev}
			locs := make([]ir.Location, len(rules))
			for i, r := range rules {
				locs[i] = r.Loc
			}
			doc.Listeners[key] = ir.EffectProgram{
				Element: e.ID,
				Event:   ev,
				Rules:   locs,
				Phase:   s.Phase(key),
			}
		}
	}
	return doc
}
