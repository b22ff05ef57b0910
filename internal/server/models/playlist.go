// Package models defines the catalog records the scheduler, the monitor and
// the desired-content query operate on.
package models

import "time"

// Playlist is an ordered set of videos with an optional activation window.
type Playlist struct {
	ID             int64
	Name           string
	StartDate      *time.Time
	ExpirationDate *time.Time
	IsActive       bool
	UpdatedAt      time.Time
}

// HasWindow reports whether at least one window boundary is set. Playlists
// without a window are toggled only by operators.
func (p *Playlist) HasWindow() bool {
	return p.StartDate != nil || p.ExpirationDate != nil
}

// InvertedWindow reports a window whose expiration precedes its start.
// Such a playlist can never be active.
func (p *Playlist) InvertedWindow() bool {
	return p.StartDate != nil && p.ExpirationDate != nil && p.ExpirationDate.Before(*p.StartDate)
}

// ShouldBeActive is true iff the start is unset or reached and the
// expiration is unset or not yet passed. Both bounds are inclusive.
func (p *Playlist) ShouldBeActive(now time.Time) bool {
	if p.StartDate != nil && now.Before(*p.StartDate) {
		return false
	}
	if p.ExpirationDate != nil && now.After(*p.ExpirationDate) {
		return false
	}
	return true
}

// Window reasons reported by PlaylistStatus.
const (
	ReasonNoWindow     = "no activation window; controlled by operator"
	ReasonInvalid      = "invalid window: expiration precedes start"
	ReasonNotStarted   = "start date not reached"
	ReasonExpired      = "expiration date passed"
	ReasonWithinWindow = "within activation window"
)

// WindowReason explains ShouldBeActive for operators.
func (p *Playlist) WindowReason(now time.Time) string {
	switch {
	case !p.HasWindow():
		return ReasonNoWindow
	case p.InvertedWindow():
		return ReasonInvalid
	case p.StartDate != nil && now.Before(*p.StartDate):
		return ReasonNotStarted
	case p.ExpirationDate != nil && now.After(*p.ExpirationDate):
		return ReasonExpired
	default:
		return ReasonWithinWindow
	}
}

// PlaylistStatus is the answer to a per-playlist status query.
type PlaylistStatus struct {
	PlaylistID     int64  `json:"playlist_id"`
	CurrentStatus  bool   `json:"current_status"`
	ShouldBeActive bool   `json:"should_be_active"`
	NeedsUpdate    bool   `json:"needs_update"`
	Reason         string `json:"reason"`
}

// StatusAt builds the status of p as of now. Playlists without a window
// never need an update from the scheduler.
func (p *Playlist) StatusAt(now time.Time) *PlaylistStatus {
	should := p.ShouldBeActive(now)
	return &PlaylistStatus{
		PlaylistID:     p.ID,
		CurrentStatus:  p.IsActive,
		ShouldBeActive: should,
		NeedsUpdate:    p.HasWindow() && should != p.IsActive,
		Reason:         p.WindowReason(now),
	}
}

// Flip records one activation change applied by a reconciliation tick.
type Flip struct {
	PlaylistID int64  `json:"playlist_id"`
	Name       string `json:"name"`
	Active     bool   `json:"active"`
	Reason     string `json:"reason"`
}
