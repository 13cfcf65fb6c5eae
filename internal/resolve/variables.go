package resolve

import (
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/cui/internal/ir"
)

// VarID is an index into the variable store.
type VarID int

const noVar VarID = -1

// Variable is one declared variable.
//
// A declaration keeps its expression live: a variable declared as "$b: $a"
// follows $a until something writes $b directly. A write replaces the
// expression with the written literal.
type Variable struct {
	ID    VarID
	Name  string
	Owner ir.ElementID
	Loc   ir.Location
	Expr  ir.ValueExpr
	Dep   VarID
	Value string
	Alive bool
}

// Subscriber is an (element, property key) pair whose resolved value reads a variable.
type Subscriber struct {
	Element ir.ElementID
	Key     string
}

// Store holds variable values, the derived-value dependency edges and the
// subscriber sets. It belongs to exactly one State.
type Store struct {
	vars        []*Variable
	dependents  map[VarID][]VarID
	subscribers map[VarID]map[Subscriber]struct{}
}

func newStore() *Store {
	return &Store{
		dependents:  make(map[VarID][]VarID),
		subscribers: make(map[VarID]map[Subscriber]struct{}),
	}
}

func (s *Store) clone() *Store {
	c := &Store{
		vars:        make([]*Variable, len(s.vars)),
		dependents:  make(map[VarID][]VarID, len(s.dependents)),
		subscribers: make(map[VarID]map[Subscriber]struct{}, len(s.subscribers)),
	}
	for i, v := range s.vars {
		cp := *v
		c.vars[i] = &cp
	}
	for id, deps := range s.dependents {
		c.dependents[id] = slices.Clone(deps)
	}
	for id, subs := range s.subscribers {
		c.subscribers[id] = maps.Clone(subs)
	}
	return c
}

// Len returns the number of variables ever declared.
func (s *Store) Len() int { return len(s.vars) }

// Get returns a variable by ID.
func (s *Store) Get(id VarID) *Variable { return s.vars[id] }

// Declare creates a variable owned by an element. Its dependency is bound
// later, once every declaration it could see exists.
func (s *Store) Declare(owner ir.ElementID, name string, expr ir.ValueExpr, loc ir.Location) VarID {
	id := VarID(len(s.vars))
	v := &Variable{ID: id, Name: name, Owner: owner, Loc: loc, Expr: expr, Dep: noVar, Alive: true}
	if lit, ok := expr.(ir.Literal); ok {
		v.Value = string(lit)
	}
	s.vars = append(s.vars, v)
	return id
}

// Read returns the current value of a variable.
func (s *Store) Read(id VarID) string { return s.vars[id].Value }

func (s *Store) bindDep(id, dep VarID) {
	s.vars[id].Dep = dep
	s.dependents[dep] = append(s.dependents[dep], id)
}

func (s *Store) unbindDep(id VarID) {
	v := s.vars[id]
	if v.Dep == noVar {
		return
	}
	s.dependents[v.Dep] = slices.DeleteFunc(s.dependents[v.Dep], func(d VarID) bool { return d == id })
	v.Dep = noVar
}

// Write snapshots value into the variable and pushes it through every
// derived variable. Returns the IDs whose value was set, in propagation order.
func (s *Store) Write(id VarID, value string) []VarID {
	s.unbindDep(id)
	v := s.vars[id]
	v.Expr = ir.Literal(value)
	v.Value = value

	changed := []VarID{id}
	queue := slices.Clone(s.dependents[id])
	for len(queue) > 0 {
		d := queue[0]
		queue = queue[1:]
		dv := s.vars[d]
		if !dv.Alive {
			continue
		}
		dv.Value = s.vars[dv.Dep].Value
		changed = append(changed, d)
		queue = append(queue, s.dependents[d]...)
	}
	return changed
}

// Subscribe records that sub reads variable id.
func (s *Store) Subscribe(id VarID, sub Subscriber) {
	set, ok := s.subscribers[id]
	if !ok {
		set = make(map[Subscriber]struct{})
		s.subscribers[id] = set
	}
	set[sub] = struct{}{}
}

// Unsubscribe removes sub from the subscriber set of id.
func (s *Store) Unsubscribe(id VarID, sub Subscriber) {
	delete(s.subscribers[id], sub)
}

// Subscribers returns the subscribers of the given variables ordered by element then key.
func (s *Store) Subscribers(ids []VarID) []Subscriber {
	seen := make(map[Subscriber]struct{})
	for _, id := range ids {
		for sub := range s.subscribers[id] {
			seen[sub] = struct{}{}
		}
	}
	out := slices.Collect(maps.Keys(seen))
	slices.SortFunc(out, func(a, b Subscriber) int {
		if a.Element != b.Element {
			return int(a.Element - b.Element)
		}
		if a.Key < b.Key {
			return -1
		}
		if a.Key > b.Key {
			return 1
		}
		return 0
	})
	return out
}

func (s *Store) release(id VarID) {
	s.unbindDep(id)
	s.vars[id].Alive = false
	delete(s.dependents, id)
	delete(s.subscribers, id)
}

// Lookup finds the nearest variable called name visible from scope,
// searching the element's own frame and then each ancestor's.
func (s *State) Lookup(scope ir.ElementID, name string) (VarID, bool) {
	for cur := scope; cur != ir.NoElement; cur = s.elements[cur].Parent {
		if id, ok := s.elements[cur].Frame[name]; ok {
			return id, true
		}
	}
	return noVar, false
}

// Read returns the value of name as seen from scope.
func (s *State) Read(scope ir.ElementID, name string) (string, bool) {
	id, ok := s.Lookup(scope, name)
	if !ok {
		return "", false
	}
	return s.vars.Read(id), true
}

// eval resolves a value expression in scope. It returns the variable read, if any.
func (s *State) eval(scope ir.ElementID, expr ir.ValueExpr) (string, VarID, error) {
	switch v := expr.(type) {
	case ir.Literal:
		return string(v), noVar, nil
	case ir.VarRef:
		id, ok := s.Lookup(scope, string(v))
		if !ok {
			return "", noVar, fmt.Errorf("variable $%s is not visible", string(v))
		}
		return s.vars.Read(id), id, nil
	default:
		return "", noVar, fmt.Errorf("unsupported value expression %T", expr)
	}
}

// Write assigns value to the nearest visible name from scope, or declares it
// on scope when none is visible. Every subscriber of the changed variables is
// re-resolved before Write returns.
func (s *State) Write(scope ir.ElementID, name, value string, loc ir.Location) error {
	id, ok := s.Lookup(scope, name)
	if !ok {
		id = s.vars.Declare(scope, name, ir.Literal(value), loc)
		s.elements[scope].Frame[name] = id
		return nil
	}
	changed := s.vars.Write(id, value)
	for _, el := range subscriberElements(s.vars.Subscribers(changed)) {
		if e := s.elements[el]; !e.Alive {
			continue
		}
		if err := s.Resolve(el); err != nil {
			return err
		}
	}
	return nil
}

func subscriberElements(subs []Subscriber) []ir.ElementID {
	var out []ir.ElementID
	for _, sub := range subs {
		if n := len(out); n == 0 || out[n-1] != sub.Element {
			out = append(out, sub.Element)
		}
	}
	return out
}

// settleVariables binds, checks and evaluates the variables declared since mark.
func (s *State) settleVariables(mark int) error {
	fresh := make([]VarID, 0, s.vars.Len()-mark)
	for i := mark; i < s.vars.Len(); i++ {
		fresh = append(fresh, VarID(i))
	}

	for _, id := range fresh {
		v := s.vars.Get(id)
		ref, ok := v.Expr.(ir.VarRef)
		if !ok {
			continue
		}
		dep, found := s.Lookup(v.Owner, string(ref))
		if !found {
			return NewBuildError(UndefinedVariable, s.Path(v.Owner),
				fmt.Sprintf("$%s references undeclared variable $%s", v.Name, string(ref)), v.Loc)
		}
		s.vars.bindDep(id, dep)
	}

	order, err := s.dependencyOrder(fresh)
	if err != nil {
		return err
	}
	for _, id := range order {
		v := s.vars.Get(id)
		if v.Dep != noVar {
			v.Value = s.vars.Read(v.Dep)
		}
	}
	return nil
}
