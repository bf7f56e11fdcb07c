package ws

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundleaf/nowplayingd/internal/player"
	"github.com/soundleaf/nowplayingd/internal/protocol"
)

// playerStub serves a mutable snapshot to the broadcaster.
type playerStub struct {
	mu sync.Mutex
	st player.State
}

func (p *playerStub) fetch(context.Context) (player.State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.st, nil
}

func (p *playerStub) set(st player.State) {
	p.mu.Lock()
	p.st = st
	p.mu.Unlock()
}

func newTestBroadcaster(t *testing.T, p *playerStub) (*Broadcaster, chan protocol.ProgressUpdate) {
	t.Helper()
	updates := make(chan protocol.ProgressUpdate, 16)
	b := NewBroadcaster(p.fetch, func(u protocol.ProgressUpdate) { updates <- u })
	t.Cleanup(b.Shutdown)
	return b, updates
}

func waitUpdate(t *testing.T, ch chan protocol.ProgressUpdate) protocol.ProgressUpdate {
	t.Helper()
	select {
	case u := <-ch:
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for progress update")
		return protocol.ProgressUpdate{}
	}
}

func TestBroadcasterCadenceAdaptation(t *testing.T) {
	p := &playerStub{}
	p.set(player.State{Position: 10, Duration: 100, Volume: 40, IsPlaying: true, IsRunning: true})
	b, updates := newTestBroadcaster(t, p)

	b.Start()
	u := waitUpdate(t, updates)
	assert.Equal(t, 10.0, u.Position)
	assert.InDelta(t, 10.0, u.Percentage, 0.001)
	assert.Equal(t, playingInterval, b.Interval(), "playing keeps the short cadence")

	// Pause: the next observed state stretches the interval.
	p.set(player.State{Position: 10, Duration: 100, Volume: 40, IsPlaying: false, IsRunning: true})
	b.Refresh()
	waitUpdate(t, updates)
	require.Eventually(t, func() bool { return b.Interval() == pausedInterval },
		time.Second, 10*time.Millisecond, "pausing stretches the cadence")

	// Resume play: cadence tightens again.
	p.set(player.State{Position: 11, Duration: 100, Volume: 40, IsPlaying: true, IsRunning: true})
	b.Refresh()
	waitUpdate(t, updates)
	require.Eventually(t, func() bool { return b.Interval() == playingInterval },
		time.Second, 10*time.Millisecond, "resuming play tightens the cadence")
}

func TestBroadcasterStopsWhenPlayerNotRunning(t *testing.T) {
	p := &playerStub{}
	p.set(player.State{IsRunning: false})
	b, updates := newTestBroadcaster(t, p)

	b.Start()
	require.Eventually(t, func() bool { return !b.Tracking() },
		time.Second, 10*time.Millisecond)
	assert.Empty(t, updates, "no update is broadcast when the player is gone")
}

func TestBroadcasterZeroDurationPercentage(t *testing.T) {
	p := &playerStub{}
	p.set(player.State{Position: 5, Duration: 0, IsPlaying: true, IsRunning: true})
	b, updates := newTestBroadcaster(t, p)

	b.Start()
	u := waitUpdate(t, updates)
	assert.Zero(t, u.Percentage)
}

func TestBroadcasterSetIntervalClamps(t *testing.T) {
	p := &playerStub{}
	b, _ := newTestBroadcaster(t, p)

	b.SetInterval(10 * time.Millisecond)
	assert.Equal(t, minInterval, b.Interval())

	b.SetInterval(time.Minute)
	assert.Equal(t, maxInterval, b.Interval())

	b.SetInterval(2 * time.Second)
	assert.Equal(t, 2*time.Second, b.Interval())
}

func TestBroadcasterStopIdempotent(t *testing.T) {
	p := &playerStub{}
	p.set(player.State{IsRunning: true})
	b, _ := newTestBroadcaster(t, p)

	b.Start()
	assert.True(t, b.Tracking())

	b.Stop()
	b.Stop()
	assert.False(t, b.Tracking())
}
