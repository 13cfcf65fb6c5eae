package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/cui/internal/ir"
)

// LoadCUE compiles CUE source into a rule tree. Uses the CUE SDK's Go API
// directly (not a CLI subprocess).
//
// The source either evaluates to the root body list or has a top-level
// "rules" field holding it. Selectors that are not CUE identifiers are quoted:
//
//	rules: [
//		{"$color": "red"},
//		{".a": [{color: "$color"}]},
//		{a: []},
//	]
func LoadCUE(filename string, src []byte) (*ir.RuleNode, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return LoadCUEValue(filename, v)
}

// LoadCUEValue builds a rule tree from an evaluated CUE value.
func LoadCUEValue(filename string, v cue.Value) (*ir.RuleNode, error) {
	body := v
	if v.IncompleteKind() != cue.ListKind {
		body = v.LookupPath(cue.ParsePath("rules"))
		if !body.Exists() {
			return nil, compileErrorAt(v.Pos(), "rules", "expected a list or a struct with a rules field")
		}
	}

	root := newRoot(filename)
	if err := cueBody(filename, root, body); err != nil {
		return nil, err
	}
	ir.Index(root)
	return root, nil
}

func cueBody(filename string, n *ir.RuleNode, body cue.Value) error {
	if body.IncompleteKind() == cue.NullKind {
		return nil
	}
	items, err := body.List()
	if err != nil {
		return compileErrorAt(body.Pos(), n.Kind.Label(), "rule body must be a list of single-field structs")
	}

	for items.Next() {
		entry := items.Value()
		fields, err := entry.Fields()
		if err != nil {
			return compileErrorAt(entry.Pos(), n.Kind.Label(), "each entry must be a struct with exactly one field")
		}
		count := 0
		for fields.Next() {
			count++
			if count > 1 {
				return compileErrorAt(entry.Pos(), n.Kind.Label(), "each entry must be a struct with exactly one field")
			}
			if err := cueEntry(filename, n, fields.Label(), fields.Value()); err != nil {
				return err
			}
		}
		if count == 0 {
			return compileErrorAt(entry.Pos(), n.Kind.Label(), "empty entry")
		}
	}
	return nil
}

func cueEntry(filename string, n *ir.RuleNode, key string, val cue.Value) error {
	line := val.Pos().Line()

	switch val.IncompleteKind() {
	case cue.ListKind, cue.NullKind:
		if len(key) > 1 && key[0] == '$' {
			return compileErrorAt(val.Pos(), key, "variable must have a scalar value")
		}
		child := newRule(key, ir.Location{File: filename, Line: line})
		if err := cueBody(filename, child, val); err != nil {
			return err
		}
		n.Children = append(n.Children, child)
		return nil

	case cue.StringKind:
		if isRuleKey(key) {
			return compileErrorAt(val.Pos(), key, "rule body must be a list, got a scalar")
		}
		s, err := val.String()
		if err != nil {
			return formatCUEError(err)
		}
		n.Properties = append(n.Properties, newProperty(key, s, line))
		return nil

	case cue.IntKind, cue.FloatKind, cue.NumberKind, cue.BoolKind:
		if isRuleKey(key) {
			return compileErrorAt(val.Pos(), key, "rule body must be a list, got a scalar")
		}
		if err := val.Validate(cue.Concrete(true)); err != nil {
			return formatCUEError(err)
		}
		n.Properties = append(n.Properties, newProperty(key, fmt.Sprint(val), line))
		return nil

	default:
		return compileErrorAt(val.Pos(), key, fmt.Sprintf("value must be a scalar or a list, got %s", val.IncompleteKind()))
	}
}
