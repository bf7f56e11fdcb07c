package ws

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/soundleaf/nowplayingd/internal/player"
	"github.com/soundleaf/nowplayingd/internal/protocol"
)

// Broadcast cadence bounds. Playback position changes every second while
// playing; while paused nothing moves, so the loop slows down.
const (
	playingInterval = 1 * time.Second
	pausedInterval  = 5 * time.Second
	minInterval     = 100 * time.Millisecond
	maxInterval     = 5 * time.Second
)

// ProgressFetcher is the narrow capability the broadcaster holds on the
// player: one snapshot query. Injected rather than reached through any
// shared global.
type ProgressFetcher func(ctx context.Context) (player.State, error)

// Broadcaster periodically queries the player and fans a progress_update
// out to every upgraded connection. The timer goroutine never runs the
// query itself; it kicks a single worker, so a slow player call can delay
// updates but two queries never run concurrently, and ticks arriving
// mid-query coalesce into one.
type Broadcaster struct {
	fetch ProgressFetcher
	sink  func(protocol.ProgressUpdate)

	mu        sync.Mutex
	interval  time.Duration
	tracking  bool
	timerStop chan struct{}

	kick chan struct{}
	quit chan struct{}
	once sync.Once
}

// NewBroadcaster creates a stopped Broadcaster. Each fetched snapshot is
// handed to sink for fan-out.
func NewBroadcaster(fetch ProgressFetcher, sink func(protocol.ProgressUpdate)) *Broadcaster {
	b := &Broadcaster{
		fetch:    fetch,
		sink:     sink,
		interval: playingInterval,
		kick:     make(chan struct{}, 1),
		quit:     make(chan struct{}),
	}
	go b.worker()
	return b
}

// Start begins (or restarts) progress tracking and triggers one immediate
// fetch so clients do not wait a full interval for the first update.
func (b *Broadcaster) Start() {
	b.mu.Lock()
	b.tracking = true
	b.startTimerLocked()
	b.mu.Unlock()

	b.Refresh()
}

// Stop cancels the timer. Idempotent, and safe to call from any goroutine,
// including the worker itself.
func (b *Broadcaster) Stop() {
	b.mu.Lock()
	b.tracking = false
	b.stopTimerLocked()
	b.mu.Unlock()
}

// Tracking reports whether the periodic loop is running.
func (b *Broadcaster) Tracking() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tracking
}

// Interval returns the current update interval.
func (b *Broadcaster) Interval() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.interval
}

// SetInterval clamps v to [100ms, 5s] and, when tracking, restarts the
// timer at the new cadence.
func (b *Broadcaster) SetInterval(v time.Duration) {
	if v < minInterval {
		v = minInterval
	}
	if v > maxInterval {
		v = maxInterval
	}

	b.mu.Lock()
	b.interval = v
	if b.tracking {
		b.startTimerLocked()
	}
	b.mu.Unlock()
}

// Refresh requests one fetch-and-broadcast outside the regular cadence
// (used after a seek so clients see the new position promptly). If the
// worker is already busy the request coalesces with the pending one.
func (b *Broadcaster) Refresh() {
	select {
	case b.kick <- struct{}{}:
	default:
	}
}

// Shutdown stops tracking and terminates the worker goroutine.
func (b *Broadcaster) Shutdown() {
	b.Stop()
	b.once.Do(func() { close(b.quit) })
}

// startTimerLocked replaces any running timer goroutine with a fresh one
// at the current interval. Callers hold b.mu.
func (b *Broadcaster) startTimerLocked() {
	b.stopTimerLocked()

	stop := make(chan struct{})
	b.timerStop = stop
	ticker := time.NewTicker(b.interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				b.Refresh()
			case <-stop:
				return
			}
		}
	}()
}

func (b *Broadcaster) stopTimerLocked() {
	if b.timerStop != nil {
		close(b.timerStop)
		b.timerStop = nil
	}
}

// worker runs every player query serially, off the timer goroutine.
func (b *Broadcaster) worker() {
	for {
		select {
		case <-b.kick:
			b.tick()
		case <-b.quit:
			return
		}
	}
}

func (b *Broadcaster) tick() {
	st, err := b.fetch(context.Background())
	if err != nil {
		slog.Warn("progress fetch failed", "error", err)
		return
	}

	if !st.IsRunning {
		slog.Info("player not running, stopping progress tracking")
		b.Stop()
		return
	}

	percentage := 0.0
	if st.Duration > 0 {
		percentage = st.Position / st.Duration * 100
	}

	b.sink(protocol.ProgressUpdate{
		Position:   st.Position,
		Duration:   st.Duration,
		Volume:     st.Volume,
		IsPlaying:  st.IsPlaying,
		Percentage: percentage,
	})

	b.adaptCadence(st.IsPlaying)
}

// adaptCadence shortens the interval while playing and stretches it while
// paused. The timer only restarts when the change is meaningful (>100ms)
// to avoid churning on every tick.
func (b *Broadcaster) adaptCadence(isPlaying bool) {
	desired := pausedInterval
	if isPlaying {
		desired = playingInterval
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.tracking {
		return
	}
	diff := b.interval - desired
	if diff < 0 {
		diff = -diff
	}
	if diff > minInterval {
		b.interval = desired
		b.startTimerLocked()
	}
}
