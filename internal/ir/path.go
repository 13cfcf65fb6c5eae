package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// ElementPath renders the path from the root to id as "root/a[0]/b[1]".
// The index counts same-class siblings only.
func (d *Document) ElementPath(id ElementID) string {
	var segs []string
	for cur := id; cur != NoElement; {
		st, ok := d.Elements[cur]
		if !ok {
			segs = append(segs, fmt.Sprintf("#%d", cur))
			break
		}
		if st.Parent == NoElement {
			segs = append(segs, st.Class)
			break
		}
		segs = append(segs, fmt.Sprintf("%s[%d]", st.Class, d.siblingIndex(st.Parent, cur)))
		cur = st.Parent
	}
	for i, j := 0, len(segs)-1; i < j; i, j = i+1, j-1 {
		segs[i], segs[j] = segs[j], segs[i]
	}
	return strings.Join(segs, "/")
}

func (d *Document) siblingIndex(parent, id ElementID) int {
	p := d.Elements[parent]
	class := d.Elements[id].Class
	n := 0
	for _, c := range p.Structure {
		if c == id {
			return n
		}
		if d.Elements[c].Class == class {
			n++
		}
	}
	return n
}

// Find resolves an element path relative to the root.
// "" and the root's class name address the root; "a[1]/c" addresses the
// first c child of the second a child. A missing index means [0].
func (d *Document) Find(path string) (ElementID, error) {
	path = strings.Trim(strings.TrimSpace(path), "/")
	root, ok := d.Elements[d.Root]
	if !ok {
		return NoElement, fmt.Errorf("document has no root element")
	}
	if path == "" {
		return d.Root, nil
	}

	segs := strings.Split(path, "/")
	if segs[0] == root.Class {
		segs = segs[1:]
	}

	cur := d.Root
	for _, seg := range segs {
		class, idx, err := parseSegment(seg)
		if err != nil {
			return NoElement, fmt.Errorf("path %q: %w", path, err)
		}
		next, found := NoElement, false
		n := 0
		for _, c := range d.Elements[cur].Structure {
			if d.Elements[c].Class != class {
				continue
			}
			if n == idx {
				next, found = c, true
				break
			}
			n++
		}
		if !found {
			return NoElement, fmt.Errorf("path %q: no element %s[%d] under %s", path, class, idx, d.ElementPath(cur))
		}
		cur = next
	}
	return cur, nil
}

func parseSegment(seg string) (string, int, error) {
	open := strings.IndexByte(seg, '[')
	if open < 0 {
		if seg == "" {
			return "", 0, fmt.Errorf("empty path segment")
		}
		return seg, 0, nil
	}
	if !strings.HasSuffix(seg, "]") || open == 0 {
		return "", 0, fmt.Errorf("malformed segment %q", seg)
	}
	idx, err := strconv.Atoi(seg[open+1 : len(seg)-1])
	if err != nil || idx < 0 {
		return "", 0, fmt.Errorf("malformed index in segment %q", seg)
	}
	return seg[:open], idx, nil
}
