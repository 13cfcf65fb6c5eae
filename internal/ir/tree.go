package ir

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/xlab/treeprint"
)

// RenderTree draws the live element tree, one line per element:
//
//	root#0 ?click
//	├── a#1 {color=red}
//	└── a#2 {color=red size=2}
func RenderTree(d *Document) string {
	root, ok := d.Elements[d.Root]
	if !ok {
		return "(empty document)\n"
	}
	t := treeprint.NewWithRoot(d.label(d.Root, root))
	d.addChildren(t, root)
	return t.String()
}

func (d *Document) addChildren(t treeprint.Tree, st ElementState) {
	for _, c := range st.Structure {
		child, ok := d.Elements[c]
		if !ok {
			continue
		}
		if len(child.Structure) == 0 {
			t.AddNode(d.label(c, child))
			continue
		}
		d.addChildren(t.AddBranch(d.label(c, child)), child)
	}
}

func (d *Document) label(id ElementID, st ElementState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s#%d", st.Class, id)
	if len(st.Properties) > 0 {
		keys := slices.Sorted(maps.Keys(st.Properties))
		pairs := make([]string, len(keys))
		for i, k := range keys {
			pairs[i] = k + "=" + st.Properties[k]
		}
		fmt.Fprintf(&b, " {%s}", strings.Join(pairs, " "))
	}
	var events []string
	for k := range d.Listeners {
		if k.Element == id {
			events = append(events, "?"+k.Event)
		}
	}
	slices.Sort(events)
	if len(events) > 0 {
		b.WriteString(" " + strings.Join(events, " "))
	}
	return b.String()
}
