// Package store selects the persistence backend named by the configuration.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"cityinit.org/internal/config"
	"cityinit.org/internal/migrate"
	"cityinit.org/internal/portal"
	"cityinit.org/internal/store/memory"
	"cityinit.org/internal/store/pg"
	"cityinit.org/internal/store/sqlite"
	"cityinit.org/ops/migrations"
)

// Backend is a portal store that owns releasable resources.
type Backend interface {
	portal.Store
	Close() error
}

// Open returns the backend for cfg.Driver. With autoMigrate set, pending
// PostgreSQL migrations are applied before returning; the sqlite backend
// creates its schema on open.
func Open(ctx context.Context, cfg config.DatabaseConfig, autoMigrate bool) (Backend, error) {
	switch cfg.Driver {
	case config.DriverMemory, "":
		return memory.New(), nil
	case config.DriverSQLite:
		s, err := sqlite.Open(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverPostgres:
		s, err := pg.Open(cfg.DSN)
		if err != nil {
			return nil, err
		}
		if autoMigrate {
			if err := Migrations(s.DB()).Up(ctx); err != nil {
				_ = s.Close()
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
}

// Migrations returns a manager over the embedded PostgreSQL migrations and seeds.
func Migrations(db *sql.DB) *migrate.Manager {
	return migrate.NewManager(db, migrations.FS, migrations.MigrationsDir, migrations.SeedsDir)
}
