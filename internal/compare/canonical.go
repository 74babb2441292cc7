package compare

import (
	"strings"

	"github.com/roach88/apidiff/internal/tree"
)

// FormKind tags the canonical representation of a body.
type FormKind string

const (
	FormJSON   FormKind = "json"
	FormXML    FormKind = "xml"
	FormText   FormKind = "text"
	FormOpaque FormKind = "opaque"
)

// CanonicalForm is the normalized, comparison-ready representation of a
// body. It carries the canonical value (for equality) and a
// pretty-printed rendering (for display).
//
// Malformed marks content that claimed to be JSON/XML but failed to
// parse; such bodies fall back to text comparison so the run proceeds,
// and the flag lets reports surface the parse failure distinctly from a
// genuine mismatch.
type CanonicalForm struct {
	Kind      FormKind
	Malformed bool

	JSON tree.Value  // set when Kind == FormJSON
	XML  *XMLElement // set when Kind == FormXML
	Text string      // set for FormText and FormOpaque; trimmed, runs collapsed

	Display string
}

// Canonicalize normalizes a body plus mime type into a canonical form,
// pruning the configured ignore paths.
//
// Format detection prefers the declared mime type, then content
// sniffing: a body starting with "<" is tried as XML, and anything that
// parses as a JSON document is treated as JSON. Everything else is
// compared as whitespace-collapsed text; mime types that are neither
// textual nor structured yield an opaque form.
func Canonicalize(body, mimeType string, ignorePaths []IgnorePath) CanonicalForm {
	trimmed := strings.TrimSpace(body)
	mime := strings.ToLower(mimeType)

	// HTML is textual, not claimed XML; don't route it through the XML
	// parser just because it starts with "<".
	looksXML := !strings.Contains(mime, "html") &&
		(strings.Contains(mime, "xml") || strings.HasPrefix(trimmed, "<"))
	looksJSON := strings.Contains(mime, "json")

	if looksXML {
		root, err := parseXML(trimmed)
		if err == nil {
			root = pruneXML(root, ignorePaths)
			return CanonicalForm{
				Kind:    FormXML,
				XML:     root,
				Display: renderXML(root),
			}
		}
		return malformedText(body, trimmed)
	}

	if looksJSON {
		v, err := tree.Decode([]byte(trimmed))
		if err != nil {
			return malformedText(body, trimmed)
		}
		return jsonForm(v, ignorePaths)
	}
	if trimmed != "" {
		if v, err := tree.Decode([]byte(trimmed)); err == nil {
			return jsonForm(v, ignorePaths)
		}
	}

	if isOpaqueMime(mime) {
		return CanonicalForm{
			Kind:    FormOpaque,
			Text:    collapseRuns(trimmed),
			Display: body,
		}
	}
	return CanonicalForm{
		Kind:    FormText,
		Text:    collapseRuns(trimmed),
		Display: body,
	}
}

func jsonForm(v tree.Value, ignorePaths []IgnorePath) CanonicalForm {
	pruned := Prune(v, ignorePaths)
	return CanonicalForm{
		Kind:    FormJSON,
		JSON:    pruned,
		Display: tree.Pretty(pruned),
	}
}

func malformedText(body, trimmed string) CanonicalForm {
	return CanonicalForm{
		Kind:      FormText,
		Malformed: true,
		Text:      collapseRuns(trimmed),
		Display:   body,
	}
}

// isOpaqueMime reports mime types compared as raw byte sequences.
func isOpaqueMime(mime string) bool {
	if mime == "" {
		return false
	}
	for _, textual := range []string{"text/", "json", "xml", "html", "javascript", "urlencoded", "csv", "yaml"} {
		if strings.Contains(mime, textual) {
			return false
		}
	}
	return true
}

// collapseRuns trims and collapses internal whitespace runs to single
// spaces.
func collapseRuns(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// CanonicalizeHeaders lowercases names and removes ignored headers.
// Used independently of body canonicalization.
func CanonicalizeHeaders(headers map[string]string, ignore []string) map[string]string {
	drop := make(map[string]struct{}, len(ignore))
	for _, name := range ignore {
		drop[strings.ToLower(name)] = struct{}{}
	}
	out := make(map[string]string, len(headers))
	for name, value := range headers {
		lower := strings.ToLower(name)
		if _, skip := drop[lower]; skip {
			continue
		}
		out[lower] = value
	}
	return out
}
