package report

import (
	"html"
	"html/template"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// RenderTextDiff produces a compact inline diff of two text bodies for
// terminal output: insertions wrapped in {+ +}, deletions in {- -}.
func RenderTextDiff(left, right string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(left, right, false))

	var b strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			b.WriteString("{+")
			b.WriteString(d.Text)
			b.WriteString("+}")
		case diffmatchpatch.DiffDelete:
			b.WriteString("{-")
			b.WriteString(d.Text)
			b.WriteString("-}")
		default:
			b.WriteString(d.Text)
		}
	}
	return b.String()
}

// RenderTextDiffHTML produces the same inline diff with <ins>/<del>
// markup for the HTML report. Text segments are escaped.
func RenderTextDiffHTML(left, right string) template.HTML {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(left, right, false))

	var b strings.Builder
	for _, d := range diffs {
		escaped := html.EscapeString(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			b.WriteString("<ins>" + escaped + "</ins>")
		case diffmatchpatch.DiffDelete:
			b.WriteString("<del>" + escaped + "</del>")
		default:
			b.WriteString(escaped)
		}
	}
	return template.HTML(b.String())
}
