package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/pressly/goose/v3"

	"github.com/frostline/frostline-backend/pkg/logger"
)

const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Source picks where migration files are read from.
type Source struct {
	Dir      string
	Embedded bool
}

func (s Source) fs() (fs.FS, error) {
	if s.Embedded {
		return fs.Sub(embedded, "migrations")
	}
	if s.Dir == "" {
		return nil, errors.New("migrations dir is required")
	}
	return os.DirFS(s.Dir), nil
}

func (s Source) String() string {
	if s.Embedded {
		return "embedded"
	}
	return s.Dir
}

// Migrator runs goose against the frostline schema and reports each applied
// step through the service logger.
type Migrator struct {
	provider *goose.Provider
	source   Source
	logg     *logger.Logger
}

func New(db *sql.DB, src Source, logg *logger.Logger) (*Migrator, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	fsys, err := src.fs()
	if err != nil {
		return nil, err
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider (%s): %w", src, err)
	}
	return &Migrator{provider: provider, source: src, logg: logg}, nil
}

// Run executes one of up, down or status.
func (m *Migrator) Run(ctx context.Context, command string) error {
	switch command {
	case "up":
		results, err := m.provider.Up(ctx)
		m.report(ctx, results...)
		if err != nil {
			return fmt.Errorf("goose up: %w", err)
		}
		return nil
	case "down":
		result, err := m.provider.Down(ctx)
		if result != nil {
			m.report(ctx, result)
		}
		if err != nil && !errors.Is(err, goose.ErrNoNextVersion) {
			return fmt.Errorf("goose down: %w", err)
		}
		return nil
	case "status":
		return m.status(ctx)
	default:
		return fmt.Errorf("unknown migrate command %q", command)
	}
}

// MigrateTo moves the schema up or down until it sits at target, given in
// the YYYYMMDDHHMMSS layout used by migration filenames.
func (m *Migrator) MigrateTo(ctx context.Context, target string) error {
	version, err := parseVersion(target)
	if err != nil {
		return err
	}
	current, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current == version:
		m.logg.Info(ctx, "migrate.version.current")
		return nil
	case current < version:
		results, err = m.provider.UpTo(ctx, version)
	default:
		results, err = m.provider.DownTo(ctx, version)
	}
	m.report(ctx, results...)
	if err != nil {
		return fmt.Errorf("goose migrate %d -> %d: %w", current, version, err)
	}
	return nil
}

// Pending reports whether any migration has not been applied yet.
func (m *Migrator) Pending(ctx context.Context) (bool, error) {
	return m.provider.HasPending(ctx)
}

func (m *Migrator) status(ctx context.Context) error {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return fmt.Errorf("goose status: %w", err)
	}
	pending := 0
	for _, st := range statuses {
		fields := map[string]any{
			"version": st.Source.Version,
			"file":    st.Source.Path,
			"state":   string(st.State),
		}
		if st.State == goose.StateApplied {
			fields["applied_at"] = st.AppliedAt
		} else {
			pending++
		}
		m.logg.Info(m.logg.WithFields(ctx, fields), "migrate.status")
	}
	m.logg.Info(m.logg.WithFields(ctx, map[string]any{
		"total":   len(statuses),
		"pending": pending,
	}), "migrate.status.summary")
	return nil
}

func (m *Migrator) report(ctx context.Context, results ...*goose.MigrationResult) {
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		fctx := m.logg.WithFields(ctx, map[string]any{
			"version":     r.Source.Version,
			"file":        r.Source.Path,
			"direction":   r.Direction,
			"duration_ms": r.Duration.Milliseconds(),
		})
		if r.Error != nil {
			m.logg.Error(fctx, "migrate.step.failed", r.Error)
			continue
		}
		m.logg.Info(fctx, "migrate.step")
	}
}

func parseVersion(v string) (int64, error) {
	if v == "" {
		return 0, errors.New("target version is required")
	}
	if len(v) != len(versionLayout) {
		return 0, fmt.Errorf("invalid version %q (expected %s)", v, versionLayout)
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid version %q: %w", v, err)
	}
	return n, nil
}
