// Package migrate applies the embedded SQL schema. Files are applied in
// name order, each in its own transaction, and recorded so that re-running
// is a no-op.
package migrate

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/paper-kospi/backend/pkg/database"
	"github.com/wonny/paper-kospi/backend/pkg/logger"
)

//go:embed sql/*.sql
var files embed.FS

// Migration is one schema file
type Migration struct {
	Version string
	SQL     string
}

// Load returns the embedded migrations in apply order
func Load() ([]Migration, error) {
	names, err := fs.Glob(files, "sql/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	migrations := make([]Migration, 0, len(names))
	for _, name := range names {
		body, err := files.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		version := strings.TrimSuffix(strings.TrimPrefix(name, "sql/"), ".sql")
		migrations = append(migrations, Migration{Version: version, SQL: string(body)})
	}
	return migrations, nil
}

// Apply runs every migration not yet recorded and returns the versions applied
func Apply(ctx context.Context, pool *pgxpool.Pool, log *logger.Logger) ([]string, error) {
	log = log.Component("migrate")

	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS public.schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`); err != nil {
		return nil, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	migrations, err := Load()
	if err != nil {
		return nil, err
	}

	var applied []string
	for _, m := range migrations {
		var exists bool
		err := pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM public.schema_migrations WHERE version = $1)`,
			m.Version,
		).Scan(&exists)
		if err != nil {
			return applied, fmt.Errorf("failed to check %s: %w", m.Version, err)
		}
		if exists {
			continue
		}

		err = database.WithTx(ctx, pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.SQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO public.schema_migrations (version) VALUES ($1)`, m.Version)
			return err
		})
		if err != nil {
			return applied, fmt.Errorf("failed to apply %s: %w", m.Version, err)
		}

		log.WithField("version", m.Version).Info("Migration applied")
		applied = append(applied, m.Version)
	}

	return applied, nil
}
