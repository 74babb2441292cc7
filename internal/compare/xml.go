package compare

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"
)

// XMLAttr is one attribute of an element.
type XMLAttr struct {
	Name  string
	Value string
}

// XMLElement is one node of the normalized XML tree. Attributes are kept
// sorted by name; interleaved whitespace-only text is stripped at parse
// time, so equality over this tree ignores cosmetic formatting.
type XMLElement struct {
	Name     string
	Attrs    []XMLAttr
	Text     string // trimmed significant character data
	Children []*XMLElement
}

// parseXML builds the normalized element tree from a document.
func parseXML(body string) (*XMLElement, error) {
	dec := xml.NewDecoder(strings.NewReader(body))
	var root *XMLElement
	var stack []*XMLElement

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			el := &XMLElement{Name: t.Name.Local}
			for _, a := range t.Attr {
				el.Attrs = append(el.Attrs, XMLAttr{Name: a.Name.Local, Value: a.Value})
			}
			sort.Slice(el.Attrs, func(i, j int) bool { return el.Attrs[i].Name < el.Attrs[j].Name })
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("multiple root elements")
				}
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
			}
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("unbalanced end element %q", t.Name.Local)
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			text := strings.TrimSpace(string(t))
			if text == "" {
				continue
			}
			el := stack[len(stack)-1]
			if el.Text == "" {
				el.Text = text
			} else {
				el.Text += " " + text
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("no root element")
	}
	if len(stack) != 0 {
		return nil, fmt.Errorf("unclosed element %q", stack[len(stack)-1].Name)
	}
	return root, nil
}

// xmlEqual reports structural equality: tag name, sorted attributes,
// significant text, and ordered children.
func xmlEqual(a, b *XMLElement) bool {
	if a.Name != b.Name || a.Text != b.Text {
		return false
	}
	if len(a.Attrs) != len(b.Attrs) || len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Attrs {
		if a.Attrs[i] != b.Attrs[i] {
			return false
		}
	}
	for i := range a.Children {
		if !xmlEqual(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

// renderXML re-serializes the normalized tree with deterministic 2-space
// indentation for report display.
func renderXML(el *XMLElement) string {
	var buf bytes.Buffer
	writeXML(&buf, el, 0)
	return buf.String()
}

func writeXML(buf *bytes.Buffer, el *XMLElement, depth int) {
	indent := strings.Repeat("  ", depth)
	buf.WriteString(indent)
	buf.WriteByte('<')
	buf.WriteString(el.Name)
	for _, a := range el.Attrs {
		fmt.Fprintf(buf, " %s=%q", a.Name, a.Value)
	}

	if len(el.Children) == 0 && el.Text == "" {
		buf.WriteString("/>\n")
		return
	}
	buf.WriteByte('>')

	if len(el.Children) == 0 {
		xml.EscapeText(buf, []byte(el.Text))
		fmt.Fprintf(buf, "</%s>\n", el.Name)
		return
	}

	buf.WriteByte('\n')
	if el.Text != "" {
		buf.WriteString(strings.Repeat("  ", depth+1))
		xml.EscapeText(buf, []byte(el.Text))
		buf.WriteByte('\n')
	}
	for _, child := range el.Children {
		writeXML(buf, child, depth+1)
	}
	buf.WriteString(indent)
	fmt.Fprintf(buf, "</%s>\n", el.Name)
}

// pruneXML removes elements and attributes matched by the ignore paths.
// Segments address children of the current element; an "@name" final
// segment removes an attribute from the matched element.
func pruneXML(el *XMLElement, paths []IgnorePath) *XMLElement {
	if len(paths) == 0 {
		return el
	}
	out := cloneXML(el)
	for _, p := range paths {
		pruneXMLOne(out, p.segments)
	}
	return out
}

func pruneXMLOne(el *XMLElement, segs []segment) {
	if len(segs) == 0 {
		return
	}
	seg := segs[0]
	rest := segs[1:]

	if seg.attr {
		attrs := el.Attrs[:0]
		for _, a := range el.Attrs {
			if a.Name != seg.name {
				attrs = append(attrs, a)
			}
		}
		el.Attrs = attrs
		return
	}

	if seg.index >= 0 {
		if seg.index >= len(el.Children) {
			return
		}
		if len(rest) == 0 {
			el.Children = append(el.Children[:seg.index:seg.index], el.Children[seg.index+1:]...)
			return
		}
		pruneXMLOne(el.Children[seg.index], rest)
		return
	}

	if len(rest) == 0 {
		kept := el.Children[:0]
		for _, child := range el.Children {
			if !seg.wildcard && child.Name != seg.name {
				kept = append(kept, child)
			}
		}
		el.Children = kept
		return
	}
	for _, child := range el.Children {
		if seg.wildcard || child.Name == seg.name {
			pruneXMLOne(child, rest)
		}
	}
}

func cloneXML(el *XMLElement) *XMLElement {
	out := &XMLElement{
		Name: el.Name,
		Text: el.Text,
	}
	out.Attrs = append([]XMLAttr(nil), el.Attrs...)
	out.Children = make([]*XMLElement, len(el.Children))
	for i, child := range el.Children {
		out.Children[i] = cloneXML(child)
	}
	return out
}
