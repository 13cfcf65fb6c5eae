package compiler

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/cui/internal/ir"
)

// LoadYAML parses a YAML rule tree. The document is either the root body
// list itself or a mapping with a "rules" key holding it. The returned tree
// is indexed.
func LoadYAML(filename string, src []byte) (*ir.RuleNode, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return nil, &CompileError{File: filename, Field: "yaml", Message: err.Error()}
	}
	if len(doc.Content) == 0 {
		return nil, &CompileError{File: filename, Field: "yaml", Message: "empty document"}
	}
	return LoadYAMLNode(filename, doc.Content[0])
}

// LoadYAMLNode builds a rule tree from an already decoded YAML node.
// Used by the scenario harness for inline rules.
func LoadYAMLNode(filename string, top *yaml.Node) (*ir.RuleNode, error) {
	body := top
	if top.Kind == yaml.MappingNode {
		body = nil
		for i := 0; i+1 < len(top.Content); i += 2 {
			if top.Content[i].Value == "rules" {
				body = top.Content[i+1]
			}
		}
		if body == nil {
			return nil, yamlError(filename, top, "rules", "expected a list or a mapping with a rules key")
		}
	}

	root := newRoot(filename)
	if err := yamlBody(filename, root, body); err != nil {
		return nil, err
	}
	ir.Index(root)
	return root, nil
}

func yamlBody(filename string, n *ir.RuleNode, body *yaml.Node) error {
	if isNull(body) {
		return nil
	}
	if body.Kind != yaml.SequenceNode {
		return yamlError(filename, body, n.Kind.Label(), "rule body must be a list of single-key entries")
	}

	for _, entry := range body.Content {
		if entry.Kind != yaml.MappingNode || len(entry.Content) != 2 {
			return yamlError(filename, entry, n.Kind.Label(), "each entry must have exactly one key")
		}
		key, val := entry.Content[0], entry.Content[1]

		switch {
		case val.Kind == yaml.ScalarNode && !isNull(val):
			if isRuleKey(key.Value) {
				return yamlError(filename, val, key.Value, "rule body must be a list, got a scalar")
			}
			n.Properties = append(n.Properties, newProperty(key.Value, val.Value, key.Line))

		case val.Kind == yaml.SequenceNode || isNull(val):
			if len(key.Value) > 1 && key.Value[0] == '$' {
				return yamlError(filename, val, key.Value, "variable must have a scalar value")
			}
			child := newRule(key.Value, ir.Location{File: filename, Line: key.Line})
			if err := yamlBody(filename, child, val); err != nil {
				return err
			}
			n.Children = append(n.Children, child)

		default:
			return yamlError(filename, val, key.Value, "value must be a scalar or a list")
		}
	}
	return nil
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}

func yamlError(filename string, n *yaml.Node, field, msg string) *CompileError {
	return &CompileError{
		File:    filename,
		Line:    n.Line,
		Column:  n.Column,
		Field:   field,
		Message: fmt.Sprintf("%s (yaml %s)", msg, kindName(n.Kind)),
	}
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}
