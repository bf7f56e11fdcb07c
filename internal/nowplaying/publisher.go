package nowplaying

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/soundleaf/nowplayingd/internal/store"
)

// Pusher is the slice of the WebSocket server the Publisher needs.
type Pusher interface {
	BroadcastTrackUpdate(name, artist, album string, persistentID *string, isPlaying, hasArtwork bool)
	BroadcastAudioConfigUpdate(sampleRate float64, bitDepth int, deviceName string)
	BroadcastPlayStateUpdate(isPlaying bool)
}

// Publisher is the single entry point the host-side collaborators (track
// monitor, audio device manager) call when something changes. It updates
// the shared State, appends to the play history, and pushes a broadcast.
type Publisher struct {
	state   *State
	push    Pusher
	history store.Store
}

// NewPublisher wires a Publisher. history may be nil to disable recording.
func NewPublisher(state *State, push Pusher, history store.Store) *Publisher {
	return &Publisher{state: state, push: push, history: history}
}

// TrackChanged publishes a new current track.
func (p *Publisher) TrackChanged(ctx context.Context, t Track, artwork []byte, isPlaying bool) {
	p.state.SetTrack(t, artwork)
	p.state.SetPlaying(isPlaying)

	if p.history != nil {
		rec := &store.PlayRecord{
			ID:        uuid.New().String(),
			TrackName: t.Name,
			Artist:    t.Artist,
			Album:     t.Album,
			StartedAt: time.Now().UTC(),
		}
		if t.PersistentID != nil {
			rec.PersistentID = *t.PersistentID
		}
		if err := p.history.AddPlay(ctx, rec); err != nil {
			slog.Warn("record play failed", "track", t.Name, "error", err)
		}
	}

	p.push.BroadcastTrackUpdate(t.Name, t.Artist, t.Album, t.PersistentID, isPlaying, len(artwork) > 0)
}

// AudioConfigChanged publishes a device configuration change.
func (p *Publisher) AudioConfigChanged(cfg AudioConfig) {
	p.state.SetAudioConfig(cfg)
	p.push.BroadcastAudioConfigUpdate(cfg.SampleRate, cfg.BitDepth, cfg.DeviceName)
}

// PlayStateChanged publishes a play/pause transition.
func (p *Publisher) PlayStateChanged(isPlaying bool) {
	p.state.SetPlaying(isPlaying)
	p.push.BroadcastPlayStateUpdate(isPlaying)
}
