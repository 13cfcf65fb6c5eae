package resolve

import (
	"fmt"

	"github.com/roach88/cui/internal/ir"
)

// MaxDepth bounds element nesting. A class rule whose structure instantiates
// its own class would otherwise recurse forever.
const MaxDepth = 64

// StructureAssignment records which rule wrote an element's structure and when.
type StructureAssignment struct {
	Element ir.ElementID `json:"element"`
	Rule    ir.Location  `json:"rule"`
	Epoch   int64        `json:"epoch"`
}

// assign records rule as the structure source of id at epoch.
// A second assignment in the same epoch is a ConflictingStructure naming both rules.
func (s *State) assign(id ir.ElementID, rule *ir.RuleNode, epoch int64) error {
	e := s.elements[id]
	if e.Assigned && e.Assignment.Epoch == epoch {
		return NewBuildError(ConflictingStructure, s.Path(id),
			fmt.Sprintf("%s already has a structure from another rule in epoch %d", e.Class, epoch),
			e.Assignment.Rule, rule.Loc)
	}
	e.Assignment = StructureAssignment{Element: id, Rule: rule.Loc, Epoch: epoch}
	e.Assigned = true
	return nil
}

// assignAll assigns structure from every source that has element children
// and returns the single winning source, or nil.
func (s *State) assignAll(id ir.ElementID, sources []*ir.RuleNode, epoch int64) (*ir.RuleNode, error) {
	var winner *ir.RuleNode
	for _, src := range sources {
		if !src.HasStructure() {
			continue
		}
		if err := s.assign(id, src, epoch); err != nil {
			return nil, err
		}
		winner = src
	}
	return winner, nil
}

// destroy releases every element in the structure of id, recursively, along
// with their variables, subscriptions and bindings. The structure of id is
// left empty.
func (s *State) destroy(id ir.ElementID) {
	e := s.elements[id]
	for _, child := range e.Structure {
		s.release(child)
	}
	e.Structure = nil
}

func (s *State) release(id ir.ElementID) {
	e := s.elements[id]
	for _, child := range e.Structure {
		s.release(child)
	}
	for key, v := range e.reads {
		s.vars.Unsubscribe(v, Subscriber{Element: id, Key: key})
	}
	for _, v := range e.Frame {
		s.vars.release(v)
	}
	for ev := range e.Bindings {
		delete(s.phases, ir.ListenerKey{Element: id, Event: ev})
	}
	e.Alive = false
	e.reads = nil
	e.Bindings = nil
}

// ValidateStructure checks that no live element holds more than one structure
// assignment per epoch and that every structure child points back to its parent.
func (s *State) ValidateStructure() error {
	for _, e := range s.elements {
		if !e.Alive {
			continue
		}
		if e.Assigned && e.Assignment.Element != e.ID {
			return NewBuildError(ConflictingStructure, s.Path(e.ID),
				fmt.Sprintf("structure assignment recorded for element %d", e.Assignment.Element), e.Assignment.Rule)
		}
		for _, c := range e.Structure {
			child := s.elements[c]
			if !child.Alive || child.Parent != e.ID {
				return NewBuildError(InvalidRule, s.Path(e.ID),
					fmt.Sprintf("structure child %d is not owned by %s", c, e.Class))
			}
		}
	}
	return nil
}
