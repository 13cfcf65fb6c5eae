package ir

import (
	"fmt"
	"slices"
	"strconv"
)

// ElementID is an arena index into the element table.
// IDs are assigned in creation order and never reused.
type ElementID int

// NoElement marks the absent parent of the root element.
const NoElement ElementID = -1

// Document is the resolved document: the state consumed by emitters and observers.
// It is a snapshot; mutating it does not affect the runtime that produced it.
type Document struct {
	Root      ElementID                     `json:"root"`
	Epoch     int64                         `json:"epoch"`
	Elements  map[ElementID]ElementState    `json:"elements"`
	Listeners map[ListenerKey]EffectProgram `json:"-"`
}

// ElementState is the resolved state of one live element.
type ElementState struct {
	Class      string            `json:"class"`
	Parent     ElementID         `json:"parent"`
	Properties map[string]string `json:"properties"`
	Structure  []ElementID       `json:"structure"`
}

// ListenerKey addresses one listener binding.
type ListenerKey struct {
	Element ElementID
	Event   string
}

func (k ListenerKey) String() string {
	return fmt.Sprintf("%d:%s", k.Element, k.Event)
}

// Binding phases of the per-(element, event) state machine.
const (
	PhaseIdle      = "idle"
	PhaseStaged    = "staged"
	PhaseCommitted = "committed"
	PhaseRejected  = "rejected"
)

// EffectProgram is the ordered list of listener rules fired for one binding.
// Rules apply in cascade order as one atomic effect.
type EffectProgram struct {
	Element ElementID  `json:"element"`
	Event   string     `json:"event"`
	Rules   []Location `json:"rules"`
	Phase   string     `json:"phase"`
}

// Element returns the state of a live element.
func (d *Document) Element(id ElementID) (ElementState, bool) {
	st, ok := d.Elements[id]
	return st, ok
}

// Property returns a resolved property of a live element.
func (d *Document) Property(id ElementID, key string) (string, bool) {
	st, ok := d.Elements[id]
	if !ok {
		return "", false
	}
	v, ok := st.Properties[key]
	return v, ok
}

// Binding returns the effect program for (id, event).
func (d *Document) Binding(id ElementID, event string) (EffectProgram, bool) {
	p, ok := d.Listeners[ListenerKey{Element: id, Event: event}]
	return p, ok
}

// IDs returns live element IDs in ascending order.
func (d *Document) IDs() []ElementID {
	ids := make([]ElementID, 0, len(d.Elements))
	for id := range d.Elements {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// ListenerKeys returns binding keys ordered by element then event.
func (d *Document) ListenerKeys() []ListenerKey {
	keys := make([]ListenerKey, 0, len(d.Listeners))
	for k := range d.Listeners {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b ListenerKey) int {
		if a.Element != b.Element {
			return int(a.Element - b.Element)
		}
		return compareKeysRFC8785(a.Event, b.Event)
	})
	return keys
}

// Canonical converts the document to plain maps and slices for canonical JSON.
// Map keys are stringified element IDs so ordering is defined by RFC 8785.
func (d *Document) Canonical() map[string]any {
	elements := make(map[string]any, len(d.Elements))
	for id, st := range d.Elements {
		props := make(map[string]any, len(st.Properties))
		for k, v := range st.Properties {
			props[k] = v
		}
		structure := make([]any, len(st.Structure))
		for i, c := range st.Structure {
			structure[i] = int64(c)
		}
		elements[strconv.Itoa(int(id))] = map[string]any{
			"class":      st.Class,
			"parent":     int64(st.Parent),
			"properties": props,
			"structure":  structure,
		}
	}

	listeners := make(map[string]any, len(d.Listeners))
	for k, p := range d.Listeners {
		rules := make([]any, len(p.Rules))
		for i, r := range p.Rules {
			rules[i] = r.Path
		}
		listeners[k.String()] = map[string]any{
			"element": int64(p.Element),
			"event":   p.Event,
			"rules":   rules,
		}
	}

	return map[string]any{
		"root":      int64(d.Root),
		"epoch":     d.Epoch,
		"elements":  elements,
		"listeners": listeners,
	}
}

// MarshalCanonicalDocument renders the document as canonical JSON.
func MarshalCanonicalDocument(d *Document) ([]byte, error) {
	return MarshalCanonical(d.Canonical())
}
