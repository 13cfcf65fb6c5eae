package resolve

import (
	"github.com/roach88/cui/internal/ir"
)

// EffectResult summarises one staged listener firing.
type EffectResult struct {
	Target     ir.ElementID
	Event      string
	Epoch      int64
	Writes     []string       // variable names written, in order
	Overrides  []string       // property keys overridden, in order
	Created    []ir.ElementID // elements instantiated by a structure replacement
	Destroyed  int            // elements released by a structure replacement
	Installed  []string       // listener events installed on the target
	Structured bool
}

// ApplyEffect stages the effect bound to (target, event) directly on s at epoch.
//
// It returns false with no error when there is no such binding. On error the
// state is partially modified and must be discarded; callers stage on a Clone
// and only keep it when ApplyEffect succeeds.
//
// Within one effect, rules apply in cascade order. Each rule's properties run
// in source order: "$x" entries write variables (sequentially, so later
// entries see earlier writes) and the rest become overrides. Class rules are
// declared on the target before any new structure is instantiated, so they
// match it. Nested listeners are installed last.
func (s *State) ApplyEffect(target ir.ElementID, event string, epoch int64) (*EffectResult, bool, error) {
	e, ok := s.Element(target)
	if !ok {
		return nil, false, nil
	}
	program := e.Bindings[event]
	if len(program) == 0 {
		return nil, false, nil
	}
	// program may be extended by nested listener installs below
	program = append([]*ir.RuleNode(nil), program...)

	res := &EffectResult{Target: target, Event: event, Epoch: epoch}
	elemMark, varMark := len(s.elements), s.vars.Len()

	for _, rule := range program {
		for _, p := range rule.Properties {
			loc := propertyLoc(rule, p)
			if !p.IsVariable() {
				e.Overrides[p.Key] = Override{Value: p.Value, Loc: loc}
				res.Overrides = append(res.Overrides, p.Key)
				continue
			}
			val, _, err := s.eval(target, p.Value)
			if err != nil {
				return nil, false, NewBuildError(UndefinedVariable, s.Path(target), err.Error(), loc)
			}
			if err := s.Write(target, p.VarName(), val, loc); err != nil {
				return nil, false, err
			}
			res.Writes = append(res.Writes, p.VarName())
		}
		for _, child := range rule.Children {
			if _, ok := child.IsClass(); ok {
				e.declareClass(child)
			}
		}
	}

	source, err := s.assignAll(target, program, epoch)
	if err != nil {
		return nil, false, err
	}
	if source != nil {
		before := s.liveCount()
		s.destroy(target)
		res.Destroyed = before - s.liveCount()
		res.Structured = true
		for _, child := range source.ElementChildren() {
			id, err := s.create(child, target, epoch)
			if err != nil {
				return nil, false, err
			}
			res.Created = append(res.Created, id)
		}
	}

	for _, rule := range program {
		for _, child := range rule.Children {
			if ev, ok := child.IsListener(); ok {
				e.bind(ev, child)
				res.Installed = append(res.Installed, ev)
			}
		}
	}

	if err := s.settle(elemMark, varMark); err != nil {
		return nil, false, err
	}
	if err := s.Resolve(target); err != nil {
		return nil, false, err
	}
	s.epoch = epoch
	return res, true, nil
}

func (s *State) liveCount() int {
	n := 0
	for _, e := range s.elements {
		if e.Alive {
			n++
		}
	}
	return n
}

// StageEffect stages the effect on (target, event) at the next epoch on a
// clone of s and returns the clone. s is not modified. A missing binding
// stages as an unchanged clone.
func (s *State) StageEffect(target ir.ElementID, event string) (*State, error) {
	staged := s.Clone()
	if _, _, err := staged.ApplyEffect(target, event, s.epoch+1); err != nil {
		return nil, err
	}
	return staged, nil
}
