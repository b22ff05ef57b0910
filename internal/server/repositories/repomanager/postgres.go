// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/fleetsync/internal/dbx"
	"github.com/dmitrijs2005/fleetsync/internal/logging"
	"github.com/dmitrijs2005/fleetsync/internal/server/migrations"
	"github.com/dmitrijs2005/fleetsync/internal/server/repositories/content"
	"github.com/dmitrijs2005/fleetsync/internal/server/repositories/devices"
	"github.com/dmitrijs2005/fleetsync/internal/server/repositories/playlists"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct {
	logger logging.Logger
}

// Playlists returns a playlists.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Playlists(db dbx.DBTX) playlists.Repository {
	return playlists.NewPostgresRepository(db)
}

// Devices returns a devices.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Devices(db dbx.DBTX) devices.Repository {
	return devices.NewPostgresRepository(db)
}

// Content returns a content.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Content(db dbx.DBTX) content.Repository {
	return content.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded catalog migrations and runs
// them against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if m.logger != nil {
		goose.SetLogger(logging.NewGooseLogger(ctx, m.logger))
	} else {
		goose.SetLogger(goose.NopLogger())
	}
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
// Migration progress is written to logger.
func NewPostgresRepositoryManager(db *sql.DB, logger logging.Logger) (RepositoryManager, error) {
	return &PostgresRepositoryManager{logger: logger}, nil
}
