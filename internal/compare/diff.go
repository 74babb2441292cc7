package compare

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/apidiff/internal/tree"
)

// DiffKind classifies one node of the difference tree.
type DiffKind string

const (
	DiffAdded     DiffKind = "added"
	DiffRemoved   DiffKind = "removed"
	DiffChanged   DiffKind = "changed"
	DiffUnchanged DiffKind = "unchanged"
)

// DiffNode is one node of the structural difference tree. Unchanged
// subtrees are omitted from the emitted tree to keep reports compact;
// the equality verdict is computed over the complete walk regardless.
type DiffNode struct {
	Path     []string   `json:"path"`
	Kind     DiffKind   `json:"kind"`
	Left     string     `json:"left,omitempty"`
	Right    string     `json:"right,omitempty"`
	Children []DiffNode `json:"children,omitempty"`
}

// PathString renders the node path as "a.b[2].c".
func (n DiffNode) PathString() string {
	var b strings.Builder
	for i, seg := range n.Path {
		if i > 0 && !strings.HasPrefix(seg, "[") {
			b.WriteByte('.')
		}
		b.WriteString(seg)
	}
	return b.String()
}

// DiffOptions tunes diffing behavior.
type DiffOptions struct {
	// ArrayOrderInsensitive matches array elements as a multiset instead
	// of positionally. Off by default: positional comparison mirrors the
	// source behavior, at the cost of flagging reordered-but-identical
	// arrays.
	ArrayOrderInsensitive bool
}

// Diff compares two canonical forms and returns the difference tree
// plus the equivalence verdict. The root node is DiffUnchanged with no
// children when the forms are equal.
func Diff(left, right CanonicalForm, opts DiffOptions) (DiffNode, bool) {
	// Format disagreement (or a malformed side) is a single changed root
	// over the display forms, not a structural walk.
	if left.Kind != right.Kind || left.Malformed || right.Malformed {
		if textEqual(left, right) {
			return DiffNode{Kind: DiffUnchanged}, true
		}
		return DiffNode{
			Kind:  DiffChanged,
			Left:  left.Display,
			Right: right.Display,
		}, false
	}

	switch left.Kind {
	case FormJSON:
		children, equal := diffValue(nil, left.JSON, right.JSON, opts)
		return rootNode(children), equal
	case FormXML:
		children, equal := diffXML(nil, left.XML, right.XML)
		return rootNode(children), equal
	default:
		if left.Text == right.Text {
			return DiffNode{Kind: DiffUnchanged}, true
		}
		return DiffNode{
			Kind:  DiffChanged,
			Left:  left.Display,
			Right: right.Display,
		}, false
	}
}

func rootNode(children []DiffNode) DiffNode {
	if len(children) == 0 {
		return DiffNode{Kind: DiffUnchanged}
	}
	return DiffNode{Kind: DiffChanged, Children: children}
}

// textEqual compares two forms on their collapsed text, used when a
// structural comparison is off the table.
func textEqual(left, right CanonicalForm) bool {
	return collapseRuns(left.Display) == collapseRuns(right.Display)
}

// diffValue walks two JSON values and returns the differing child nodes.
// equal reflects the complete subtree, including unchanged nodes that
// are never emitted.
func diffValue(path []string, left, right tree.Value, opts DiffOptions) ([]DiffNode, bool) {
	lo, lObj := left.(tree.Object)
	ro, rObj := right.(tree.Object)
	if lObj && rObj {
		return diffObjects(path, lo, ro, opts)
	}

	la, lArr := left.(tree.Array)
	ra, rArr := right.(tree.Array)
	if lArr && rArr {
		if opts.ArrayOrderInsensitive {
			return diffArraysUnordered(path, la, ra, opts)
		}
		return diffArrays(path, la, ra, opts)
	}

	// Scalar vs scalar, or a container type mismatch: one Changed node
	// for the whole subtree rather than recursing through incompatible
	// structures.
	if tree.Equal(left, right) {
		return nil, true
	}
	return []DiffNode{{
		Path:  path,
		Kind:  DiffChanged,
		Left:  tree.Render(left),
		Right: tree.Render(right),
	}}, false
}

func diffObjects(path []string, left, right tree.Object, opts DiffOptions) ([]DiffNode, bool) {
	keys := unionKeys(left, right)
	var nodes []DiffNode
	equal := true

	for _, k := range keys {
		childPath := append(append([]string(nil), path...), k)
		lv, inLeft := left[k]
		rv, inRight := right[k]
		switch {
		case !inRight:
			nodes = append(nodes, DiffNode{Path: childPath, Kind: DiffRemoved, Left: tree.Render(lv)})
			equal = false
		case !inLeft:
			nodes = append(nodes, DiffNode{Path: childPath, Kind: DiffAdded, Right: tree.Render(rv)})
			equal = false
		default:
			children, childEqual := diffValue(childPath, lv, rv, opts)
			nodes = append(nodes, children...)
			equal = equal && childEqual
		}
	}
	return nodes, equal
}

// diffArrays compares positionally index-by-index up to the shorter
// length, with trailing extras emitted as added/removed at their index.
func diffArrays(path []string, left, right tree.Array, opts DiffOptions) ([]DiffNode, bool) {
	var nodes []DiffNode
	equal := len(left) == len(right)

	shorter := len(left)
	if len(right) < shorter {
		shorter = len(right)
	}
	for i := 0; i < shorter; i++ {
		childPath := append(append([]string(nil), path...), fmt.Sprintf("[%d]", i))
		children, childEqual := diffValue(childPath, left[i], right[i], opts)
		nodes = append(nodes, children...)
		equal = equal && childEqual
	}
	for i := shorter; i < len(left); i++ {
		childPath := append(append([]string(nil), path...), fmt.Sprintf("[%d]", i))
		nodes = append(nodes, DiffNode{Path: childPath, Kind: DiffRemoved, Left: tree.Render(left[i])})
	}
	for i := shorter; i < len(right); i++ {
		childPath := append(append([]string(nil), path...), fmt.Sprintf("[%d]", i))
		nodes = append(nodes, DiffNode{Path: childPath, Kind: DiffAdded, Right: tree.Render(right[i])})
	}
	return nodes, equal
}

// diffArraysUnordered matches elements as a multiset: each left element
// consumes the first structurally equal unused right element; leftovers
// on either side surface as removed/added at their original index.
func diffArraysUnordered(path []string, left, right tree.Array, opts DiffOptions) ([]DiffNode, bool) {
	used := make([]bool, len(right))
	var nodes []DiffNode
	equal := true

	for i, lv := range left {
		matched := false
		for j, rv := range right {
			if used[j] || !tree.Equal(lv, rv) {
				continue
			}
			used[j] = true
			matched = true
			break
		}
		if !matched {
			childPath := append(append([]string(nil), path...), fmt.Sprintf("[%d]", i))
			nodes = append(nodes, DiffNode{Path: childPath, Kind: DiffRemoved, Left: tree.Render(lv)})
			equal = false
		}
	}
	for j, rv := range right {
		if used[j] {
			continue
		}
		childPath := append(append([]string(nil), path...), fmt.Sprintf("[%d]", j))
		nodes = append(nodes, DiffNode{Path: childPath, Kind: DiffAdded, Right: tree.Render(rv)})
		equal = false
	}
	return nodes, equal
}

// diffXML walks two normalized XML trees. Children are compared
// positionally; attribute sets compare as mappings.
func diffXML(path []string, left, right *XMLElement) ([]DiffNode, bool) {
	if left.Name != right.Name {
		return []DiffNode{{
			Path:  append(append([]string(nil), path...), left.Name),
			Kind:  DiffChanged,
			Left:  "<" + left.Name + ">",
			Right: "<" + right.Name + ">",
		}}, false
	}

	elPath := append(append([]string(nil), path...), left.Name)
	var nodes []DiffNode
	equal := true

	attrNodes, attrsEqual := diffAttrs(elPath, left.Attrs, right.Attrs)
	nodes = append(nodes, attrNodes...)
	equal = equal && attrsEqual

	if left.Text != right.Text {
		nodes = append(nodes, DiffNode{Path: elPath, Kind: DiffChanged, Left: left.Text, Right: right.Text})
		equal = false
	}

	shorter := len(left.Children)
	if len(right.Children) < shorter {
		shorter = len(right.Children)
	}
	for i := 0; i < shorter; i++ {
		children, childEqual := diffXML(elPath, left.Children[i], right.Children[i])
		nodes = append(nodes, children...)
		equal = equal && childEqual
	}
	for _, child := range left.Children[shorter:] {
		nodes = append(nodes, DiffNode{
			Path: append(append([]string(nil), elPath...), child.Name),
			Kind: DiffRemoved,
			Left: strings.TrimRight(renderXML(child), "\n"),
		})
		equal = false
	}
	for _, child := range right.Children[shorter:] {
		nodes = append(nodes, DiffNode{
			Path:  append(append([]string(nil), elPath...), child.Name),
			Kind:  DiffAdded,
			Right: strings.TrimRight(renderXML(child), "\n"),
		})
		equal = false
	}
	return nodes, equal
}

func diffAttrs(path []string, left, right []XMLAttr) ([]DiffNode, bool) {
	lm := make(map[string]string, len(left))
	for _, a := range left {
		lm[a.Name] = a.Value
	}
	rm := make(map[string]string, len(right))
	for _, a := range right {
		rm[a.Name] = a.Value
	}

	names := make(map[string]struct{}, len(lm)+len(rm))
	for n := range lm {
		names[n] = struct{}{}
	}
	for n := range rm {
		names[n] = struct{}{}
	}
	sorted := make([]string, 0, len(names))
	for n := range names {
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)

	var nodes []DiffNode
	equal := true
	for _, n := range sorted {
		lv, inLeft := lm[n]
		rv, inRight := rm[n]
		attrPath := append(append([]string(nil), path...), "@"+n)
		switch {
		case !inRight:
			nodes = append(nodes, DiffNode{Path: attrPath, Kind: DiffRemoved, Left: lv})
			equal = false
		case !inLeft:
			nodes = append(nodes, DiffNode{Path: attrPath, Kind: DiffAdded, Right: rv})
			equal = false
		case lv != rv:
			nodes = append(nodes, DiffNode{Path: attrPath, Kind: DiffChanged, Left: lv, Right: rv})
			equal = false
		}
	}
	return nodes, equal
}

// DiffHeaders compares two header maps after canonicalization. Names in
// the ignore set never appear in the output even when their values
// differ between sides.
func DiffHeaders(left, right map[string]string, ignore []string) []DiffNode {
	l := CanonicalizeHeaders(left, ignore)
	r := CanonicalizeHeaders(right, ignore)

	var nodes []DiffNode
	for _, name := range unionKeyStrings(l, r) {
		lv, inLeft := l[name]
		rv, inRight := r[name]
		switch {
		case !inRight:
			nodes = append(nodes, DiffNode{Path: []string{name}, Kind: DiffRemoved, Left: lv})
		case !inLeft:
			nodes = append(nodes, DiffNode{Path: []string{name}, Kind: DiffAdded, Right: rv})
		case lv != rv:
			nodes = append(nodes, DiffNode{Path: []string{name}, Kind: DiffChanged, Left: lv, Right: rv})
		}
	}
	return nodes
}

func unionKeys(left, right tree.Object) []string {
	seen := make(map[string]struct{}, len(left)+len(right))
	for k := range left {
		seen[k] = struct{}{}
	}
	for k := range right {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func unionKeyStrings(left, right map[string]string) []string {
	seen := make(map[string]struct{}, len(left)+len(right))
	for k := range left {
		seen[k] = struct{}{}
	}
	for k := range right {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
