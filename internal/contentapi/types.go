// Package contentapi defines the JSON shape of the catalog's desired-content
// read surface. The server builds it and the agent consumes it.
package contentapi

import "time"

// Playlist is one active playlist assigned to a device.
type Playlist struct {
	PlaylistID     int64      `json:"playlist_id"`
	Title          string     `json:"title"`
	Videos         []Video    `json:"videos"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
}

// Video is a playlist item in server-declared order.
type Video struct {
	VideoID  int64   `json:"video_id"`
	Title    string  `json:"title"`
	Size     int64   `json:"size"`
	Duration float64 `json:"duration"`
	// ContentRef locates the bytes: empty for the catalog video endpoint,
	// an http(s) URL (possibly presigned) or s3://bucket/key.
	ContentRef string `json:"content_ref"`
}

// VideoIDs returns the ids in playlist order.
func (p *Playlist) VideoIDs() []int64 {
	ids := make([]int64, 0, len(p.Videos))
	for _, v := range p.Videos {
		ids = append(ids, v.VideoID)
	}
	return ids
}
