// Package snapshot persists the agent's last-known desired state: the set of
// active playlists and, for each, its video ids in server order.
package snapshot

import (
	"context"
)

// Snapshot maps playlist id to its ordered video ids. A playlist with no
// videos is present with an empty slice.
type Snapshot map[int64][]int64

type Repository interface {
	Load(ctx context.Context) (Snapshot, error)
	Replace(ctx context.Context, s Snapshot) error
}
