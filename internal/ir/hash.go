package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainDocument = "cui/document/v1"
	DomainRuleTree = "cui/ruletree/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00}) // Null separator - CRITICAL for security
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DocumentHash computes the content-addressed identity of a resolved document.
// Two documents with identical elements, properties, structure, bindings and
// epoch hash identically; this is what determinism checks compare.
func DocumentHash(d *Document) (string, error) {
	canonical, err := MarshalCanonicalDocument(d)
	if err != nil {
		return "", fmt.Errorf("DocumentHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainDocument, canonical), nil
}

// RuleTreeHash computes the identity of a rule tree.
// Used by the journal to check that a replay runs against the same rules.
func RuleTreeHash(root *RuleNode) (string, error) {
	canonical, err := MarshalCanonical(ruleCanonical(root))
	if err != nil {
		return "", fmt.Errorf("RuleTreeHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRuleTree, canonical), nil
}

func ruleCanonical(n *RuleNode) map[string]any {
	props := make([]any, len(n.Properties))
	for i, p := range n.Properties {
		kind := "literal"
		if _, ok := p.Value.(VarRef); ok {
			kind = "var"
		}
		props[i] = map[string]any{
			"key":   p.Key,
			"kind":  kind,
			"value": valueText(p.Value),
		}
	}
	children := make([]any, len(n.Children))
	for i, c := range n.Children {
		children[i] = ruleCanonical(c)
	}
	return map[string]any{
		"kind":       n.Kind.Label(),
		"properties": props,
		"children":   children,
	}
}

func valueText(v ValueExpr) string {
	switch val := v.(type) {
	case Literal:
		return string(val)
	case VarRef:
		return string(val)
	default:
		return ""
	}
}

// MustDocumentHash is like DocumentHash but panics on error.
// Use only in tests or when the document is known to be valid.
func MustDocumentHash(d *Document) string {
	h, err := DocumentHash(d)
	if err != nil {
		panic(err)
	}
	return h
}
