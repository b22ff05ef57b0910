package models

import "time"

// ContentRow is one (playlist, video) pair of the desired-content query,
// already ordered by playlist and position.
type ContentRow struct {
	PlaylistID             int64
	PlaylistName           string
	PlaylistExpirationDate *time.Time
	VideoID                int64
	VideoTitle             string
	SizeBytes              int64
	DurationSeconds        float64
	StoragePath            string
}
