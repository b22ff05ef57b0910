// Package playlists provides the PostgreSQL repository the activation
// scheduler reads and flips playlist rows through.
package playlists

import (
	"context"
	"time"

	"github.com/dmitrijs2005/fleetsync/internal/server/models"
)

type Repository interface {
	// SelectDue returns windowed playlists whose is_active disagrees with
	// their window at now, locking the rows for the current transaction.
	SelectDue(ctx context.Context, now time.Time) ([]*models.Playlist, error)
	// SetActive flips is_active when it differs from active. It reports
	// false when another reconciliation already applied the same flip.
	SetActive(ctx context.Context, id int64, active bool) (bool, error)
	GetByID(ctx context.Context, id int64) (*models.Playlist, error)
	// ListInverted returns ids of playlists whose expiration precedes their
	// start. Such a window never opens.
	ListInverted(ctx context.Context) ([]int64, error)
}
