package syncer

import (
	"sort"

	"github.com/dmitrijs2005/fleetsync/internal/agent/repositories/snapshot"
	"github.com/dmitrijs2005/fleetsync/internal/contentapi"
)

// Diff classifies desired playlists against the previous snapshot. All
// slices hold playlist ids in ascending order.
type Diff struct {
	New       []int64
	Changed   []int64
	Unchanged []int64
	Removed   []int64
}

// Any reports whether the playlist set or membership moved.
func (d Diff) Any() bool {
	return len(d.New)+len(d.Changed)+len(d.Removed) > 0
}

// ComputeDiff compares video-id sets: order alone does not make a playlist
// changed, the manifest rewrite covers reordering.
func ComputeDiff(prev snapshot.Snapshot, desired []contentapi.Playlist) Diff {
	var d Diff
	seen := make(map[int64]struct{}, len(desired))

	for _, p := range desired {
		if _, dup := seen[p.PlaylistID]; dup {
			continue
		}
		seen[p.PlaylistID] = struct{}{}

		old, ok := prev[p.PlaylistID]
		switch {
		case !ok:
			d.New = append(d.New, p.PlaylistID)
		case !sameSet(old, p.VideoIDs()):
			d.Changed = append(d.Changed, p.PlaylistID)
		default:
			d.Unchanged = append(d.Unchanged, p.PlaylistID)
		}
	}

	for id := range prev {
		if _, ok := seen[id]; !ok {
			d.Removed = append(d.Removed, id)
		}
	}

	for _, s := range [][]int64{d.New, d.Changed, d.Unchanged, d.Removed} {
		sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })
	}
	return d
}

func sameSet(a, b []int64) bool {
	as, bs := toSet(a), toSet(b)
	if len(as) != len(bs) {
		return false
	}
	for id := range as {
		if _, ok := bs[id]; !ok {
			return false
		}
	}
	return true
}

func toSet(ids []int64) map[int64]struct{} {
	m := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

// toSnapshot is the snapshot persisted after a cycle.
func toSnapshot(desired []contentapi.Playlist) snapshot.Snapshot {
	s := make(snapshot.Snapshot, len(desired))
	for _, p := range desired {
		if _, dup := s[p.PlaylistID]; dup {
			continue
		}
		s[p.PlaylistID] = p.VideoIDs()
	}
	return s
}
