package database

import (
	"context"
	"fmt"
	"io/fs"
	"regexp"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// Migrations are NNN_name.up.sql / NNN_name.down.sql pairs applied in version
// order. Each step and its schema_migrations row share one transaction.
const (
	createMigrationsTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version    VARCHAR(32) PRIMARY KEY,
	name       TEXT NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
	selectAppliedMigrations = `SELECT version, applied_at FROM schema_migrations`
	insertMigration         = `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`
	deleteMigration         = `DELETE FROM schema_migrations WHERE version = $1`
)

var migrationFile = regexp.MustCompile(`^(\d+)_(.+)\.(up|down)\.sql$`)

// Migration is one versioned schema change.
type Migration struct {
	Version string
	Name    string
	UpSQL   string
	DownSQL string
}

// MigrationStatus reports whether a migration has been applied.
type MigrationStatus struct {
	Version   string     `json:"version" yaml:"version"`
	Name      string     `json:"name" yaml:"name"`
	Applied   bool       `json:"applied" yaml:"applied"`
	AppliedAt *time.Time `json:"applied_at,omitempty" yaml:"applied_at,omitempty"`
}

// Migrator applies and rolls back the embedded schema migrations.
type Migrator struct {
	db         *DB
	migrations []Migration
	logger     zerolog.Logger
}

// MigratorOption configures a Migrator.
type MigratorOption func(*Migrator)

// WithMigrationLogger logs each applied or rolled back migration.
func WithMigrationLogger(logger zerolog.Logger) MigratorOption {
	return func(m *Migrator) {
		m.logger = logger.With().Str("component", "migrator").Logger()
	}
}

// NewMigratorFromFS loads the migrations found at the root of fsys.
func NewMigratorFromFS(db *DB, fsys fs.FS, opts ...MigratorOption) (*Migrator, error) {
	migs, err := loadMigrationsFromFS(fsys)
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}

	m := &Migrator{db: db, migrations: migs, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func loadMigrationsFromFS(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}

	index := make(map[string]int)
	var migs []Migration
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		parts := migrationFile.FindStringSubmatch(e.Name())
		if parts == nil {
			continue
		}
		version, name, direction := parts[1], parts[2], parts[3]

		body, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}

		i, ok := index[version]
		switch {
		case !ok:
			i = len(migs)
			index[version] = i
			migs = append(migs, Migration{Version: version, Name: name})
		case migs[i].Name != name:
			return nil, fmt.Errorf("migration %s has conflicting names %q and %q", version, migs[i].Name, name)
		}

		if direction == "up" {
			migs[i].UpSQL = string(body)
		} else {
			migs[i].DownSQL = string(body)
		}
	}

	slices.SortFunc(migs, func(a, b Migration) int { return strings.Compare(a.Version, b.Version) })
	return migs, nil
}

// applied returns the recorded versions, creating the table on first use.
func (m *Migrator) applied(ctx context.Context) (map[string]time.Time, error) {
	if _, err := m.db.pool.Exec(ctx, createMigrationsTable); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := m.db.pool.Query(ctx, selectAppliedMigrations)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}

	applied := make(map[string]time.Time)
	var (
		version string
		at      time.Time
	)
	if _, err := pgx.ForEachRow(rows, []any{&version, &at}, func() error {
		applied[version] = at
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	return applied, nil
}

// step runs one direction of mig together with its bookkeeping row.
func (m *Migrator) step(ctx context.Context, mig Migration, up bool) error {
	direction, body, record, args := "up", mig.UpSQL, insertMigration, []any{mig.Version, mig.Name}
	if !up {
		direction, body, record, args = "down", mig.DownSQL, deleteMigration, []any{mig.Version}
	}
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("migration %s has no %s SQL", mig.Version, direction)
	}

	err := m.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, body); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, record, args...)
		return err
	})
	if err != nil {
		return fmt.Errorf("migration %s %s: %w", mig.Version, direction, err)
	}

	m.logger.Info().
		Str("version", mig.Version).
		Str("name", mig.Name).
		Str("direction", direction).
		Msg("migration finished")
	return nil
}

// Up applies all pending migrations.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	return m.UpTo(ctx, "")
}

// UpTo applies pending migrations whose version is at most target. An empty
// target applies everything.
func (m *Migrator) UpTo(ctx context.Context, target string) (int, error) {
	if target != "" && !slices.ContainsFunc(m.migrations, func(mig Migration) bool { return mig.Version == target }) {
		return 0, fmt.Errorf("unknown migration version %q", target)
	}

	applied, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, mig := range m.migrations {
		if target != "" && mig.Version > target {
			break
		}
		if _, ok := applied[mig.Version]; ok {
			continue
		}
		if err := m.step(ctx, mig, true); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Down rolls back the most recently applied migration.
func (m *Migrator) Down(ctx context.Context) error {
	_, err := m.DownN(ctx, 1)
	return err
}

// DownN rolls back up to n applied migrations, newest first, and reports how
// many were rolled back.
func (m *Migrator) DownN(ctx context.Context, n int) (int, error) {
	applied, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}

	done := 0
	for i := len(m.migrations) - 1; i >= 0 && done < n; i-- {
		mig := m.migrations[i]
		if _, ok := applied[mig.Version]; !ok {
			continue
		}
		if err := m.step(ctx, mig, false); err != nil {
			return done, err
		}
		done++
	}
	return done, nil
}

// Status lists every known migration with its applied time.
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	statuses := make([]MigrationStatus, 0, len(m.migrations))
	for _, mig := range m.migrations {
		s := MigrationStatus{Version: mig.Version, Name: mig.Name}
		if at, ok := applied[mig.Version]; ok {
			s.Applied, s.AppliedAt = true, &at
		}
		statuses = append(statuses, s)
	}
	return statuses, nil
}

// Version returns the highest applied version, or "" when none is applied.
func (m *Migrator) Version(ctx context.Context) (string, error) {
	applied, err := m.applied(ctx)
	if err != nil {
		return "", err
	}

	var latest string
	for v := range applied {
		if v > latest {
			latest = v
		}
	}
	return latest, nil
}

// Pending returns the migrations not yet applied, in order.
func (m *Migrator) Pending(ctx context.Context) ([]Migration, error) {
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	var pending []Migration
	for _, mig := range m.migrations {
		if _, ok := applied[mig.Version]; !ok {
			pending = append(pending, mig)
		}
	}
	return pending, nil
}

// FormatStatus renders statuses as an aligned table.
func FormatStatus(statuses []MigrationStatus) string {
	if len(statuses) == 0 {
		return "No migrations found"
	}

	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tNAME\tSTATUS\tAPPLIED AT")
	for _, s := range statuses {
		state, at := "pending", "-"
		if s.Applied {
			state = "applied"
			if s.AppliedAt != nil {
				at = s.AppliedAt.UTC().Format(time.RFC3339)
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Version, s.Name, state, at)
	}
	_ = tw.Flush()
	return b.String()
}
