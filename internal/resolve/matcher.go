package resolve

import (
	"cmp"
	"slices"

	"github.com/roach88/cui/internal/ir"
)

// Match returns the class contributions for a new element of the given class
// created under parent, in ascending precedence.
//
// Only the class rules declared along the parent's ancestor chain are
// consulted; the rest of the tree is never scanned. A class rule reachable
// through several scopes contributes once, at its deepest scope.
// Match does not mutate the state.
func (s *State) Match(parent ir.ElementID, class string) []Contribution {
	byRule := make(map[int]Contribution)
	for cur := parent; cur != ir.NoElement; cur = s.elements[cur].Parent {
		for _, cr := range s.elements[cur].Classes {
			name, _ := cr.Rule.IsClass()
			if name != class {
				continue
			}
			if prev, ok := byRule[cr.Rule.ID]; ok && prev.Depth >= cr.Depth {
				continue
			}
			byRule[cr.Rule.ID] = Contribution{Rule: cr.Rule, Depth: cr.Depth}
		}
	}

	out := make([]Contribution, 0, len(byRule))
	for _, c := range byRule {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b Contribution) int {
		if a.Depth != b.Depth {
			return cmp.Compare(a.Depth, b.Depth)
		}
		return cmp.Compare(a.Rule.ID, b.Rule.ID)
	})
	return out
}

// declareClass adds a class rule to the scope of e. Re-declaring the same
// rule is a no-op.
func (e *Element) declareClass(rule *ir.RuleNode) {
	for _, cr := range e.Classes {
		if cr.Rule.ID == rule.ID {
			return
		}
	}
	e.Classes = append(e.Classes, ClassRule{Rule: rule, Depth: e.Depth})
}

// layers returns the rule bodies applied to e in ascending precedence:
// matched class rules, then the element block.
func (e *Element) layers() []*ir.RuleNode {
	out := make([]*ir.RuleNode, 0, len(e.Matched)+1)
	for _, c := range e.Matched {
		out = append(out, c.Rule)
	}
	if e.Rule != nil {
		out = append(out, e.Rule)
	}
	return out
}
