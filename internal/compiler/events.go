package compiler

import (
	"maps"
	"slices"
)

// builtinEvents is the recognized event vocabulary.
var builtinEvents = []string{
	"blur", "change", "click", "dblclick", "focus", "input",
	"keydown", "keypress", "keyup", "load",
	"mousedown", "mouseenter", "mouseleave", "mouseout", "mouseover", "mouseup",
	"resize", "scroll", "submit",
}

// EventSet is a set of event names that listener rules may bind.
type EventSet map[string]struct{}

// BuiltinEvents returns a fresh copy of the built-in event set.
func BuiltinEvents() EventSet {
	return NewEventSet(builtinEvents...)
}

// NewEventSet builds an event set from names.
func NewEventSet(names ...string) EventSet {
	s := make(EventSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Contains reports whether name is in the set.
func (s EventSet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// With returns a copy of the set extended with names.
func (s EventSet) With(names ...string) EventSet {
	c := maps.Clone(s)
	if c == nil {
		c = make(EventSet, len(names))
	}
	for _, n := range names {
		c[n] = struct{}{}
	}
	return c
}

// Names returns the sorted event names.
func (s EventSet) Names() []string {
	return slices.Sorted(maps.Keys(s))
}
