// Package nowplaying holds the current media state the HTTP API serves and
// the Publisher that fans state changes into WebSocket broadcasts and the
// play-history store.
package nowplaying

import "sync"

// Track is the metadata of the current track.
type Track struct {
	Name         string
	Artist       string
	Album        string
	PersistentID *string
}

// AudioConfig describes the active output device configuration.
type AudioConfig struct {
	SampleRate float64 // Hz
	BitDepth   int
	DeviceName string
}

// State is the shared now-playing snapshot. Written by the Publisher,
// read concurrently by HTTP handlers.
type State struct {
	mu       sync.RWMutex
	track    Track
	hasTrack bool
	artwork  []byte
	audio    AudioConfig
	playing  bool
}

// NewState returns an empty State.
func NewState() *State { return &State{} }

// SetTrack replaces the current track and its artwork (nil when the track
// has none).
func (s *State) SetTrack(t Track, artwork []byte) {
	s.mu.Lock()
	s.track = t
	s.hasTrack = true
	s.artwork = artwork
	s.mu.Unlock()
}

// Track returns the current track and whether one has been set.
func (s *State) Track() (Track, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.track, s.hasTrack
}

// Artwork returns the raw artwork bytes, nil when absent.
func (s *State) Artwork() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.artwork
}

// HasArtwork reports whether artwork bytes are available.
func (s *State) HasArtwork() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.artwork) > 0
}

// SetAudioConfig replaces the output device configuration.
func (s *State) SetAudioConfig(cfg AudioConfig) {
	s.mu.Lock()
	s.audio = cfg
	s.mu.Unlock()
}

// AudioConfig returns the output device configuration.
func (s *State) AudioConfig() AudioConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.audio
}

// SetPlaying records the play/pause state.
func (s *State) SetPlaying(v bool) {
	s.mu.Lock()
	s.playing = v
	s.mu.Unlock()
}

// Playing reports the last known play/pause state.
func (s *State) Playing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.playing
}
