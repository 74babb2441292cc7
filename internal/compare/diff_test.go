package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonForms(t *testing.T, left, right string) (CanonicalForm, CanonicalForm) {
	t.Helper()
	l := Canonicalize(left, "application/json", nil)
	r := Canonicalize(right, "application/json", nil)
	require.Equal(t, FormJSON, l.Kind)
	require.Equal(t, FormJSON, r.Kind)
	return l, r
}

func kindsByPath(nodes []DiffNode) map[string]DiffKind {
	out := make(map[string]DiffKind, len(nodes))
	for _, n := range nodes {
		out[n.PathString()] = n.Kind
	}
	return out
}

func TestDiffEqualJSON(t *testing.T) {
	l, r := jsonForms(t, `{"a":1,"b":[1,2]}`, `{"b":[1,2],"a":1}`)

	node, equal := Diff(l, r, DiffOptions{})
	assert.True(t, equal)
	assert.Equal(t, DiffUnchanged, node.Kind)
	assert.Empty(t, node.Children)
}

func TestDiffObjectChanges(t *testing.T) {
	l, r := jsonForms(t,
		`{"same":1,"changed":"old","removed":true}`,
		`{"same":1,"changed":"new","added":false}`)

	node, equal := Diff(l, r, DiffOptions{})
	require.False(t, equal)
	require.Equal(t, DiffChanged, node.Kind)

	kinds := kindsByPath(node.Children)
	assert.Equal(t, DiffAdded, kinds["added"])
	assert.Equal(t, DiffRemoved, kinds["removed"])
	assert.Equal(t, DiffChanged, kinds["changed"])
	_, hasSame := kinds["same"]
	assert.False(t, hasSame, "unchanged keys are not emitted")
}

func TestDiffNestedPath(t *testing.T) {
	l, r := jsonForms(t, `{"a":{"b":[{"c":1}]}}`, `{"a":{"b":[{"c":2}]}}`)

	node, equal := Diff(l, r, DiffOptions{})
	require.False(t, equal)
	require.Len(t, node.Children, 1)
	leaf := node.Children[0]
	assert.Equal(t, "a.b[0].c", leaf.PathString())
	assert.Equal(t, "1", leaf.Left)
	assert.Equal(t, "2", leaf.Right)
}

func TestDiffTypeMismatchSingleNode(t *testing.T) {
	l, r := jsonForms(t, `{"v":{"k":1}}`, `{"v":[1]}`)

	node, equal := Diff(l, r, DiffOptions{})
	require.False(t, equal)
	require.Len(t, node.Children, 1, "container type mismatch is one node, not a recursive walk")
	assert.Equal(t, "v", node.Children[0].PathString())
}

func TestDiffArrays(t *testing.T) {
	t.Run("positional by default", func(t *testing.T) {
		l, r := jsonForms(t, `[1,2]`, `[2,1]`)
		_, equal := Diff(l, r, DiffOptions{})
		assert.False(t, equal)
	})

	t.Run("trailing extras", func(t *testing.T) {
		l, r := jsonForms(t, `[1,2,3]`, `[1]`)
		node, equal := Diff(l, r, DiffOptions{})
		require.False(t, equal)
		kinds := kindsByPath(node.Children)
		assert.Equal(t, DiffRemoved, kinds["[1]"])
		assert.Equal(t, DiffRemoved, kinds["[2]"])
	})

	t.Run("unordered option treats reorder as equal", func(t *testing.T) {
		l, r := jsonForms(t, `[{"id":1},{"id":2}]`, `[{"id":2},{"id":1}]`)
		_, equal := Diff(l, r, DiffOptions{ArrayOrderInsensitive: true})
		assert.True(t, equal)
	})

	t.Run("unordered reports leftovers", func(t *testing.T) {
		l, r := jsonForms(t, `[1,2]`, `[2,3]`)
		node, equal := Diff(l, r, DiffOptions{ArrayOrderInsensitive: true})
		require.False(t, equal)
		kinds := kindsByPath(node.Children)
		assert.Equal(t, DiffRemoved, kinds["[0]"])
		assert.Equal(t, DiffAdded, kinds["[1]"])
	})
}

func TestDiffKindMismatchFallsBackToText(t *testing.T) {
	l := Canonicalize(`{"a":1}`, "application/json", nil)
	r := Canonicalize(`<a>1</a>`, "text/xml", nil)

	node, equal := Diff(l, r, DiffOptions{})
	assert.False(t, equal)
	assert.Equal(t, DiffChanged, node.Kind)
	assert.Empty(t, node.Children, "no structural walk across formats")
}

func TestDiffMalformedComparedAsText(t *testing.T) {
	l := Canonicalize(`{"broken":`, "application/json", nil)
	r := Canonicalize(`{"broken":`, "application/json", nil)
	require.True(t, l.Malformed)

	_, equal := Diff(l, r, DiffOptions{})
	assert.True(t, equal, "identical malformed bodies compare equal as text")
}

func TestDiffXMLBodies(t *testing.T) {
	t.Run("equivalent documents", func(t *testing.T) {
		l := Canonicalize(`<a x="1" y="2"><b>v</b></a>`, "text/xml", nil)
		r := Canonicalize("<a y=\"2\" x=\"1\">\n  <b>v</b>\n</a>", "text/xml", nil)
		node, equal := Diff(l, r, DiffOptions{})
		assert.True(t, equal)
		assert.Equal(t, DiffUnchanged, node.Kind)
	})

	t.Run("attribute change", func(t *testing.T) {
		l := Canonicalize(`<a id="1"/>`, "text/xml", nil)
		r := Canonicalize(`<a id="2"/>`, "text/xml", nil)
		node, equal := Diff(l, r, DiffOptions{})
		require.False(t, equal)
		require.Len(t, node.Children, 1)
		assert.Equal(t, "a.@id", node.Children[0].PathString())
	})

	t.Run("text change", func(t *testing.T) {
		l := Canonicalize(`<a><b>old</b></a>`, "text/xml", nil)
		r := Canonicalize(`<a><b>new</b></a>`, "text/xml", nil)
		node, equal := Diff(l, r, DiffOptions{})
		require.False(t, equal)
		require.Len(t, node.Children, 1)
		assert.Equal(t, "a.b", node.Children[0].PathString())
		assert.Equal(t, "old", node.Children[0].Left)
	})

	t.Run("extra child", func(t *testing.T) {
		l := Canonicalize(`<a><b/></a>`, "text/xml", nil)
		r := Canonicalize(`<a><b/><c/></a>`, "text/xml", nil)
		node, equal := Diff(l, r, DiffOptions{})
		require.False(t, equal)
		kinds := kindsByPath(node.Children)
		assert.Equal(t, DiffAdded, kinds["a.c"])
	})
}

func TestDiffHeaders(t *testing.T) {
	left := map[string]string{
		"Content-Type": "application/json",
		"X-Request-Id": "left-id",
		"X-Only-Left":  "1",
	}
	right := map[string]string{
		"content-type": "application/json",
		"X-Request-Id": "right-id",
		"X-Only-Right": "1",
	}

	t.Run("without ignores", func(t *testing.T) {
		nodes := DiffHeaders(left, right, nil)
		kinds := kindsByPath(nodes)
		assert.Equal(t, DiffChanged, kinds["x-request-id"])
		assert.Equal(t, DiffRemoved, kinds["x-only-left"])
		assert.Equal(t, DiffAdded, kinds["x-only-right"])
		_, hasCT := kinds["content-type"]
		assert.False(t, hasCT, "matching headers are not emitted")
	})

	t.Run("ignored names never surface", func(t *testing.T) {
		nodes := DiffHeaders(left, right, []string{"X-Request-Id", "x-only-left", "x-only-right"})
		assert.Empty(t, nodes)
	})
}

func TestPathString(t *testing.T) {
	n := DiffNode{Path: []string{"a", "b", "[2]", "c"}}
	assert.Equal(t, "a.b[2].c", n.PathString())

	assert.Equal(t, "", DiffNode{}.PathString())
	assert.Equal(t, "[0]", DiffNode{Path: []string{"[0]"}}.PathString())
}
