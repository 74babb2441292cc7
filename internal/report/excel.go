package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/roach88/apidiff/internal/compare"
)

const resultsSheet = "Results"

// WriteXLSX exports the run as a spreadsheet, one row per subcase.
func WriteXLSX(path string, run *Run) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create artifacts dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(resultsSheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	header := []any{"ID", "Method", "Path", "Verdict", "Status Left", "Status Right", "Header Diffs", "Body Diffs"}
	if err := f.SetSheetRow(resultsSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, e := range run.Entries {
		verdict := string(e.Result.Kind)
		bodyDiffs := len(e.Result.BodyDiff.Children)
		if e.Result.BodyDiff.Kind == compare.DiffChanged && bodyDiffs == 0 {
			bodyDiffs = 1 // whole-body change with no structural children
		}
		row := []any{
			e.SubCase.ID,
			e.SubCase.Method,
			e.SubCase.Case.Path,
			verdict,
			e.Result.LeftStatus,
			e.Result.RightStatus,
			len(e.Result.HeadersDiff),
			bodyDiffs,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(resultsSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	summaryRow := []any{
		"", "", "", fmt.Sprintf("passed %d / %d", run.Summary.Passed, run.Summary.Total),
	}
	cell := fmt.Sprintf("A%d", len(run.Entries)+3)
	if err := f.SetSheetRow(resultsSheet, cell, &summaryRow); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	return f.SaveAs(path)
}
