package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/fleetsync/internal/dbx"
	"github.com/dmitrijs2005/fleetsync/internal/server/repositories/content"
	"github.com/dmitrijs2005/fleetsync/internal/server/repositories/devices"
	"github.com/dmitrijs2005/fleetsync/internal/server/repositories/playlists"
)

// RepositoryManager vends repositories bound to either the pool or a
// transaction, so callers decide the transaction boundary.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Playlists(db dbx.DBTX) playlists.Repository
	Devices(db dbx.DBTX) devices.Repository
	Content(db dbx.DBTX) content.Repository
}
