package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ensure runs a select-then-insert for one reference row. The insert uses
// ON CONFLICT DO NOTHING RETURNING id so a row created between the probe and
// the write is picked up by the second select instead of failing.
func (s *Store) ensure(ctx context.Context, what, selectQuery string, selectArgs []any, insertQuery string, insertArgs []any) (int64, error) {
	ctx = ensureContext(ctx)
	var id int64
	err := retryOnBusy(ctx, func() error {
		err := s.db.QueryRowContext(ctx, selectQuery, selectArgs...).Scan(&id)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		err = s.db.QueryRowContext(ctx, insertQuery, insertArgs...).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return s.db.QueryRowContext(ctx, selectQuery, selectArgs...).Scan(&id)
		}
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("ensure %s: %w", what, err)
	}
	return id, nil
}

// EnsureConference returns the id of the (year, season) conference, creating
// it on first sight.
func (s *Store) EnsureConference(ctx context.Context, year int, season string) (int64, error) {
	return s.ensure(ctx, "conference",
		"SELECT id FROM conferences WHERE year = ? AND season = ?", []any{year, season},
		"INSERT INTO conferences (year, season) VALUES (?, ?) ON CONFLICT (year, season) DO NOTHING RETURNING id", []any{year, season},
	)
}

// EnsureOrganization returns the id of the named organization. The rank is
// only written when the row is created.
func (s *Store) EnsureOrganization(ctx context.Context, name string, rank int) (int64, error) {
	if strings.TrimSpace(name) == "" {
		return 0, errors.New("ensure organization: name required")
	}
	return s.ensure(ctx, "organization",
		"SELECT id FROM organizations WHERE name = ?", []any{name},
		"INSERT INTO organizations (name, rank) VALUES (?, ?) ON CONFLICT (name) DO NOTHING RETURNING id", []any{name, rank},
	)
}

// EnsureCalling returns the id of the calling within organizationID.
func (s *Store) EnsureCalling(ctx context.Context, name string, organizationID int64, rank int) (int64, error) {
	if strings.TrimSpace(name) == "" {
		return 0, errors.New("ensure calling: name required")
	}
	return s.ensure(ctx, "calling",
		"SELECT id FROM callings WHERE name = ? AND organization = ?", []any{name, organizationID},
		"INSERT INTO callings (name, organization, rank) VALUES (?, ?, ?) ON CONFLICT (name, organization) DO NOTHING RETURNING id", []any{name, organizationID, rank},
	)
}

// EnsureSpeaker returns the id of the named speaker.
func (s *Store) EnsureSpeaker(ctx context.Context, name string) (int64, error) {
	if strings.TrimSpace(name) == "" {
		return 0, errors.New("ensure speaker: name required")
	}
	return s.ensure(ctx, "speaker",
		"SELECT id FROM speakers WHERE name = ?", []any{name},
		"INSERT INTO speakers (name) VALUES (?) ON CONFLICT (name) DO NOTHING RETURNING id", []any{name},
	)
}
