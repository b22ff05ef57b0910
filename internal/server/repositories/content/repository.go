// Package content provides the read-only desired-content query over the
// catalog: active playlists, optionally restricted to one device, with
// their unexpired videos in playlist order.
package content

import (
	"context"
	"time"

	"github.com/dmitrijs2005/fleetsync/internal/server/models"
)

type Repository interface {
	// SelectDesired returns one row per (playlist, video). A playlist without
	// any current video yields a single row with VideoID == 0. An empty
	// deviceID selects every active playlist.
	SelectDesired(ctx context.Context, deviceID string, now time.Time) ([]*models.ContentRow, error)
}
