package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/apidiff/internal/report"
)

// RunRecord is one row of run history.
type RunRecord struct {
	ID        string
	StartedAt time.Time
	Left      report.TargetInfo
	Right     report.TargetInfo
	Summary   report.Summary
}

// ListRuns returns run history newest-first, up to limit rows.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit < 1 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, left_name, left_url, right_name, right_url,
		       total, passed, failed, incomplete
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var r RunRecord
		var startedAt string
		if err := rows.Scan(
			&r.ID, &startedAt,
			&r.Left.Name, &r.Left.BaseURL,
			&r.Right.Name, &r.Right.BaseURL,
			&r.Summary.Total, &r.Summary.Passed, &r.Summary.Failed, &r.Summary.Incomplete,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, startedAt); err == nil {
			r.StartedAt = t
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// FailureHistory returns how many recent runs saw a given fingerprint
// fail, for spotting persistent regressions vs one-off noise.
func (s *Store) FailureHistory(ctx context.Context, fingerprint string) (failed, seen int, err error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FILTER (WHERE overall_equal = 0), COUNT(*)
		FROM results WHERE fingerprint = ?
	`, fingerprint)
	if err := row.Scan(&failed, &seen); err != nil {
		return 0, 0, fmt.Errorf("failure history: %w", err)
	}
	return failed, seen, nil
}
