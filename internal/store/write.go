package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/apidiff/internal/report"
)

// SaveRun records a run and its per-subcase verdicts.
// Duplicate run IDs are silently ignored (idempotent re-save).
func (s *Store) SaveRun(ctx context.Context, run *report.Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, started_at, left_name, left_url, right_name, right_url, total, passed, failed, incomplete)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.StartedAt.Format(time.RFC3339),
		run.Left.Name,
		run.Left.BaseURL,
		run.Right.Name,
		run.Right.BaseURL,
		run.Summary.Total,
		run.Summary.Passed,
		run.Summary.Failed,
		run.Summary.Incomplete,
	)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}

	for _, e := range run.Entries {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO results
			(run_id, subcase_id, method, path, fingerprint, kind, overall_equal, left_status, right_status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(run_id, subcase_id) DO NOTHING
		`,
			run.ID,
			e.SubCase.ID,
			e.SubCase.Method,
			e.SubCase.Case.Path,
			e.SubCase.Fingerprint,
			string(e.Result.Kind),
			boolInt(e.Result.OverallEqual),
			e.Result.LeftStatus,
			e.Result.RightStatus,
		)
		if err != nil {
			return fmt.Errorf("save result %s: %w", e.SubCase.ID, err)
		}
	}
	return tx.Commit()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
