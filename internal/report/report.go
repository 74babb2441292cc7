// Package report renders run results for humans and machines: a JSON
// artifact, an HTML report, an XLSX export, and a terminal summary.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/roach88/apidiff/internal/compare"
	"github.com/roach88/apidiff/internal/testcase"
)

// TargetInfo labels one endpoint in the report.
type TargetInfo struct {
	Name    string `json:"name"`
	BaseURL string `json:"base_url"`
}

// Entry pairs a subcase with its comparison result.
type Entry struct {
	SubCase testcase.SubCase         `json:"subcase"`
	Result  compare.ComparisonResult `json:"result"`
}

// Summary aggregates verdicts across a run.
type Summary struct {
	Total      int `json:"total"`
	Passed     int `json:"passed"`
	Failed     int `json:"failed"`
	Incomplete int `json:"incomplete"`
}

// Run is one complete replay run, the unit all renderers consume.
type Run struct {
	ID        string     `json:"id"`
	StartedAt time.Time  `json:"started_at"`
	Left      TargetInfo `json:"left"`
	Right     TargetInfo `json:"right"`
	Summary   Summary    `json:"summary"`
	Entries   []Entry    `json:"results"`
}

// NewRun assembles a run from subcases and their results. The two
// slices are index-aligned, the way the replay layer emits them.
func NewRun(left, right TargetInfo, subs []testcase.SubCase, results []compare.ComparisonResult) *Run {
	run := &Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Left:      left,
		Right:     right,
	}
	for i, res := range results {
		var sub testcase.SubCase
		if i < len(subs) {
			sub = subs[i]
		}
		run.Entries = append(run.Entries, Entry{SubCase: sub, Result: res})
	}
	run.Summary = Summarize(results)
	return run
}

// Summarize tallies verdicts.
func Summarize(results []compare.ComparisonResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch {
		case r.Kind == compare.ResultIncomplete:
			s.Incomplete++
			s.Failed++
		case r.OverallEqual:
			s.Passed++
		default:
			s.Failed++
		}
	}
	return s
}

// WriteJSON writes the machine-readable results artifact.
func WriteJSON(path string, run *Run) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create artifacts dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(run)
}

// PrintSummary writes the colorized terminal summary.
func PrintSummary(w io.Writer, run *Run) {
	pass := color.New(color.FgGreen).SprintFunc()
	fail := color.New(color.FgRed).SprintFunc()
	warn := color.New(color.FgYellow).SprintFunc()

	fmt.Fprintf(w, "Run %s: %s vs %s\n", run.ID, run.Left.BaseURL, run.Right.BaseURL)
	for _, e := range run.Entries {
		switch {
		case e.Result.Kind == compare.ResultIncomplete:
			fmt.Fprintf(w, "  %s %s %s %s\n", warn("INCOMPLETE"), e.SubCase.ID, e.SubCase.Method, e.SubCase.Case.Path)
		case e.Result.OverallEqual:
			fmt.Fprintf(w, "  %s %s %s %s\n", pass("EQUAL"), e.SubCase.ID, e.SubCase.Method, e.SubCase.Case.Path)
		default:
			fmt.Fprintf(w, "  %s %s %s %s\n", fail("DIFFERENT"), e.SubCase.ID, e.SubCase.Method, e.SubCase.Case.Path)
		}
	}
	fmt.Fprintf(w, "Passed: %d / %d", run.Summary.Passed, run.Summary.Total)
	if run.Summary.Incomplete > 0 {
		fmt.Fprintf(w, " (%d incomplete)", run.Summary.Incomplete)
	}
	fmt.Fprintln(w)
}
