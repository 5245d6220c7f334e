package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

type migration struct {
	version int
	name    string
	sql     string
}

func loadMigrations() ([]migration, error) {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	migrations := make([]migration, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		base := strings.TrimSuffix(entry.Name(), ".sql")
		prefix, name, _ := strings.Cut(base, "_")
		version, err := strconv.Atoi(prefix)
		if err != nil || version <= 0 {
			return nil, fmt.Errorf("migration %s: invalid version prefix", entry.Name())
		}
		data, err := migrationFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		migrations = append(migrations, migration{version: version, name: name, sql: string(data)})
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].version < migrations[j].version })
	for i := 1; i < len(migrations); i++ {
		if migrations[i].version == migrations[i-1].version {
			return nil, fmt.Errorf("duplicate migration version %d", migrations[i].version)
		}
	}
	return migrations, nil
}

// LatestVersion returns the newest embedded migration version.
func LatestVersion() int {
	migrations, err := loadMigrations()
	if err != nil || len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].version
}

// SchemaVersion reports the highest applied migration, or 0 for an empty
// database.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	ctx = ensureContext(ctx)
	var exists int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_migrations'",
	).Scan(&exists); err != nil {
		return 0, fmt.Errorf("check schema_migrations table: %w", err)
	}
	if exists == 0 {
		return 0, nil
	}
	var version sql.NullInt64
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return int(version.Int64), nil
}

// Migrate applies pending migrations up to and including target inside one
// transaction and returns the resulting version. A target of 0 means the
// latest embedded version. Migrations are forward only.
func (s *Store) Migrate(ctx context.Context, target int) (int, error) {
	ctx = ensureContext(ctx)
	migrations, err := loadMigrations()
	if err != nil {
		return 0, err
	}
	latest := 0
	if len(migrations) > 0 {
		latest = migrations[len(migrations)-1].version
	}
	if target <= 0 {
		target = latest
	}
	if target > latest {
		return 0, fmt.Errorf("%w: %d (latest is %d)", ErrUnknownVersion, target, latest)
	}

	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return 0, err
	}
	if current > latest {
		return current, fmt.Errorf("%w: database at %d, build knows %d", ErrSchemaAhead, current, latest)
	}
	if current >= target {
		return current, nil
	}

	var applied int
	err = retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration tx: %w", err)
		}
		defer func() {
			_ = tx.Rollback()
		}()

		if _, err := tx.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
            version INTEGER PRIMARY KEY,
            applied_at TEXT NOT NULL
        )`); err != nil {
			return fmt.Errorf("ensure schema_migrations: %w", err)
		}

		applied = current
		now := time.Now().UTC().Format(time.RFC3339Nano)
		for _, m := range migrations {
			if m.version <= current || m.version > target {
				continue
			}
			if _, err := tx.ExecContext(ctx, m.sql); err != nil {
				return fmt.Errorf("apply migration %04d_%s: %w", m.version, m.name, err)
			}
			if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)", m.version, now); err != nil {
				return fmt.Errorf("record migration %d: %w", m.version, err)
			}
			applied = m.version
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migrations: %w", err)
		}
		return nil
	})
	if err != nil {
		return current, err
	}
	return applied, nil
}
