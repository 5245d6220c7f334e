package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Run is one loader pass recorded in ingest_runs.
type Run struct {
	ID              string
	StartedAt       time.Time
	FinishedAt      time.Time
	Processed       int
	Created         int
	Existing        int
	Failed          int
	CallingWarnings int
	Topics          int
}

// Duration is the wall time between start and finish.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// RecordRun stores the outcome of a loader run.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	ctx = ensureContext(ctx)
	if run.ID == "" {
		return errors.New("record run: id required")
	}
	err := retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO ingest_runs (
                id, started_at, finished_at, processed, created, existing, failed, calling_warnings, topics
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID,
			run.StartedAt.UTC().Format(time.RFC3339Nano),
			run.FinishedAt.UTC().Format(time.RFC3339Nano),
			run.Processed, run.Created, run.Existing, run.Failed, run.CallingWarnings, run.Topics,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, processed, created, existing, failed, calling_warnings, topics
         FROM ingest_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var startedRaw, finishedRaw string
		if err := rows.Scan(&run.ID, &startedRaw, &finishedRaw, &run.Processed, &run.Created, &run.Existing,
			&run.Failed, &run.CallingWarnings, &run.Topics); err != nil {
			return nil, err
		}
		if started, err := parseTimeString(startedRaw); err == nil {
			run.StartedAt = started
		}
		if finished, err := parseTimeString(finishedRaw); err == nil {
			run.FinishedAt = finished
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
