package player

import (
	"context"
	"sync"
)

// Stub is an in-memory Control for hosts without a scriptable player.
// It is also what the test suites drive the network layer with.
type Stub struct {
	mu    sync.Mutex
	state State
}

// NewStub returns a Stub reporting a running, paused player.
func NewStub() *Stub {
	return &Stub{state: State{Duration: 0, Volume: 50, IsRunning: true}}
}

// SetState replaces the reported snapshot.
func (s *Stub) SetState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Stub) State(context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, nil
}

func (s *Stub) PlayPause(context.Context) error {
	s.mu.Lock()
	s.state.IsPlaying = !s.state.IsPlaying
	s.mu.Unlock()
	return nil
}

func (s *Stub) Next(context.Context) error     { return nil }
func (s *Stub) Previous(context.Context) error { return nil }

func (s *Stub) Stop(context.Context) error {
	s.mu.Lock()
	s.state.IsPlaying = false
	s.state.Position = 0
	s.mu.Unlock()
	return nil
}

func (s *Stub) Seek(_ context.Context, position float64) error {
	s.mu.Lock()
	s.state.Position = position
	s.mu.Unlock()
	return nil
}

func (s *Stub) SetVolume(_ context.Context, level int) error {
	s.mu.Lock()
	s.state.Volume = ClampVolume(level)
	s.mu.Unlock()
	return nil
}
