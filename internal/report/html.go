package report

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"

	"github.com/roach88/apidiff/internal/compare"
)

//go:embed report.html.tmpl
var htmlTemplate string

var reportTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"pathString": func(n compare.DiffNode) string { return n.PathString() },
	"verdict": func(e Entry) string {
		switch {
		case e.Result.Kind == compare.ResultIncomplete:
			return "incomplete"
		case e.Result.OverallEqual:
			return "equal"
		default:
			return "different"
		}
	},
	"textDiff": func(e Entry) template.HTML {
		if e.Result.OverallEqual || e.Result.Kind == compare.ResultIncomplete {
			return ""
		}
		return RenderTextDiffHTML(e.Result.LeftDisplay, e.Result.RightDisplay)
	},
}).Parse(htmlTemplate))

// RenderHTML renders the report document.
func RenderHTML(w io.Writer, run *Run) error {
	return reportTmpl.Execute(w, run)
}

// WriteHTML renders the report to a file, creating parent directories.
func WriteHTML(path string, run *Run) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create artifacts dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	defer f.Close()
	return RenderHTML(f, run)
}
