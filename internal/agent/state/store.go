// Package state is the agent's durable local memory: the time of the last
// sync and the snapshot of playlists it last saw. It is backed by a SQLite
// file migrated with goose and written only by the agent process.
package state

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/fleetsync/internal/agent/migrations"
	"github.com/dmitrijs2005/fleetsync/internal/agent/repositories/metadata"
	"github.com/dmitrijs2005/fleetsync/internal/agent/repositories/snapshot"
	"github.com/dmitrijs2005/fleetsync/internal/dbx"
	"github.com/dmitrijs2005/fleetsync/internal/filex"
	"github.com/dmitrijs2005/fleetsync/internal/logging"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

const keyLastSync = "last_sync"

// State is what the agent remembers between cycles.
type State struct {
	// LastSync is nil before the first persisted cycle.
	LastSync *time.Time
	Snapshot snapshot.Snapshot
}

// Store reads and writes State.
type Store struct {
	db *sql.DB
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Open opens (creating if needed) the state database at path and applies
// migrations, logging their progress to logger. Use ":memory:" in tests.
func Open(ctx context.Context, path string, logger logging.Logger) (*Store, error) {
	if path != ":memory:" {
		if _, err := filex.EnsureDir(filepath.Dir(path)); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	// single writer; also keeps ":memory:" on one connection
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func runMigrations(ctx context.Context, db *sql.DB, logger logging.Logger) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(logging.NewGooseLogger(ctx, logger))
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrate state db: %w", err)
	}
	return nil
}

// Load returns the persisted state. A fresh store yields a nil LastSync and
// an empty snapshot.
func (s *Store) Load(ctx context.Context) (*State, error) {
	raw, err := metadata.NewSQLiteRepository(s.db).Get(ctx, keyLastSync)
	if err != nil {
		return nil, err
	}

	st := &State{}
	if raw != nil {
		t, err := time.Parse(time.RFC3339Nano, string(raw))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", keyLastSync, err)
		}
		t = t.UTC()
		st.LastSync = &t
	}

	st.Snapshot, err = snapshot.NewSQLiteRepository(s.db).Load(ctx)
	if err != nil {
		return nil, err
	}
	return st, nil
}

// Save replaces the snapshot and sets the last sync time in one transaction.
func (s *Store) Save(ctx context.Context, snap snapshot.Snapshot, syncedAt time.Time) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := snapshot.NewSQLiteRepository(tx).Replace(ctx, snap); err != nil {
			return err
		}
		stamp := []byte(syncedAt.UTC().Format(time.RFC3339Nano))
		return metadata.NewSQLiteRepository(tx).Set(ctx, keyLastSync, stamp)
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}
