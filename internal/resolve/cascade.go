package resolve

import (
	"maps"
	"slices"

	"github.com/roach88/cui/internal/ir"
)

// Resolve recomputes the property mapping of one element.
//
// Composition order, lowest to highest precedence:
//  1. matched class rules, by scope depth then source order
//  2. the element's own block
//  3. listener-effect overrides
//
// Every expression is evaluated, including ones later overridden, so an
// undefined variable is reported even when it would lose the cascade. Only
// the winning expression for each key subscribes to its variable.
func (s *State) Resolve(id ir.ElementID) error {
	e := s.elements[id]

	props := make(map[string]string)
	reads := make(map[string]VarID)
	apply := func(key string, expr ir.ValueExpr, loc ir.Location) error {
		val, v, err := s.eval(id, expr)
		if err != nil {
			return NewBuildError(UndefinedVariable, s.Path(id), err.Error(), loc)
		}
		props[key] = val
		if v != noVar {
			reads[key] = v
		} else {
			delete(reads, key)
		}
		return nil
	}

	for _, rule := range e.layers() {
		for _, p := range rule.Properties {
			if p.IsVariable() {
				continue
			}
			if err := apply(p.Key, p.Value, propertyLoc(rule, p)); err != nil {
				return err
			}
		}
	}
	for _, key := range slices.Sorted(maps.Keys(e.Overrides)) {
		o := e.Overrides[key]
		if err := apply(key, o.Value, o.Loc); err != nil {
			return err
		}
	}

	for key, v := range e.reads {
		s.vars.Unsubscribe(v, Subscriber{Element: id, Key: key})
	}
	for key, v := range reads {
		s.vars.Subscribe(v, Subscriber{Element: id, Key: key})
	}
	e.Properties = props
	e.reads = reads
	return nil
}

func propertyLoc(rule *ir.RuleNode, p ir.Property) ir.Location {
	loc := rule.Loc
	if p.Line > 0 {
		loc.Line = p.Line
	}
	return loc
}
