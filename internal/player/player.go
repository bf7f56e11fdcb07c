// Package player abstracts the host media application. The network layer
// only ever talks to the Control interface; concrete backends execute
// AppleScript (or nothing, for the stub used off-macOS and in tests).
package player

import "context"

// State is one snapshot of the player, as returned by Control.State.
type State struct {
	Position  float64 // seconds into the current track
	Duration  float64 // track length in seconds
	Volume    int     // 0-100
	IsPlaying bool
	IsRunning bool // false when the media application is not open
}

// Control is the capability the network layer holds on the media player.
// Calls may be slow (they shell out to the host application) and may fail;
// callers log failures and carry on, they never tear down a network loop
// over a player error.
type Control interface {
	State(ctx context.Context) (State, error)
	PlayPause(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	Stop(ctx context.Context) error
	Seek(ctx context.Context, position float64) error
	SetVolume(ctx context.Context, level int) error
}

// ClampVolume bounds a requested volume to the 0-100 range the player accepts.
func ClampVolume(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
