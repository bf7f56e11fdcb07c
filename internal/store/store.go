// Package store defines the persistence interface for the play history.
// Implementations must be safe for concurrent use.
package store

import (
	"context"
	"time"
)

// Store is the persistence interface for play history.
type Store interface {
	// AddPlay records that a track started playing.
	AddPlay(ctx context.Context, rec *PlayRecord) error

	// RecentPlays returns the most recent plays, newest first.
	RecentPlays(ctx context.Context, limit int) ([]*PlayRecord, error)

	// Close releases database resources.
	Close() error
}

// PlayRecord is one entry in the play history.
type PlayRecord struct {
	ID           string    `json:"id"`
	TrackName    string    `json:"trackName"`
	Artist       string    `json:"artist"`
	Album        string    `json:"album"`
	PersistentID string    `json:"persistentID,omitempty"`
	StartedAt    time.Time `json:"startedAt"`
}
