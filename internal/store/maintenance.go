package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"conftalks/internal/fileutil"
)

// Counts reports row totals per table.
type Counts struct {
	Speakers      int64
	Organizations int64
	Callings      int64
	Conferences   int64
	Talks         int64
	Texts         int64
	URLs          int64
	Topics        int64
	Runs          int64
}

// TableCount is one table's row total.
type TableCount struct {
	Name  string
	Count int64
}

// Tables pairs each count with its table name in schema order.
func (c Counts) Tables() []TableCount {
	return []TableCount{
		{"speakers", c.Speakers},
		{"organizations", c.Organizations},
		{"callings", c.Callings},
		{"conferences", c.Conferences},
		{"talks", c.Talks},
		{"talk_texts", c.Texts},
		{"talk_urls", c.URLs},
		{"talk_topics", c.Topics},
		{"ingest_runs", c.Runs},
	}
}

// Counts returns the number of rows in each table.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	ctx = ensureContext(ctx)
	var c Counts
	targets := []struct {
		table string
		dest  *int64
	}{
		{"speakers", &c.Speakers},
		{"organizations", &c.Organizations},
		{"callings", &c.Callings},
		{"conferences", &c.Conferences},
		{"talks", &c.Talks},
		{"talk_texts", &c.Texts},
		{"talk_urls", &c.URLs},
		{"talk_topics", &c.Topics},
		{"ingest_runs", &c.Runs},
	}
	for _, target := range targets {
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+target.table).Scan(target.dest)
		if err != nil && strings.Contains(err.Error(), "no such table") {
			// Databases held at an older schema version lack later tables.
			continue
		}
		if err != nil {
			return Counts{}, fmt.Errorf("count %s: %w", target.table, err)
		}
	}
	return c, nil
}

// Compact rewrites the database file to reclaim free pages.
func (s *Store) Compact(ctx context.Context) error {
	ctx = ensureContext(ctx)
	if err := retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, "VACUUM")
		return err
	}); err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}
	return nil
}

// ExportWithoutText writes a copy of the database to dest with the talk_texts
// table dropped, for distribution without bulk text. An existing file at dest
// is replaced.
func (s *Store) ExportWithoutText(ctx context.Context, dest string) error {
	ctx = ensureContext(ctx)
	if err := fileutil.RemoveIfExists(dest); err != nil {
		return fmt.Errorf("remove previous export: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
		return fmt.Errorf("copy database: %w", err)
	}

	copyDB, err := sql.Open("sqlite", dest)
	if err != nil {
		return fmt.Errorf("open export: %w", err)
	}
	defer copyDB.Close()

	for _, stmt := range []string{"DROP TABLE IF EXISTS talk_texts", "VACUUM"} {
		if _, err := copyDB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("export %s: %w", strings.ToLower(strings.Fields(stmt)[0]), err)
		}
	}
	return nil
}

// IntegrityCheck runs PRAGMA integrity_check and reports whether it passed.
func (s *Store) IntegrityCheck(ctx context.Context) (bool, error) {
	ctx = ensureContext(ctx)
	var result string
	if err := s.db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return false, fmt.Errorf("integrity check: %w", err)
	}
	return strings.EqualFold(result, "ok"), nil
}
