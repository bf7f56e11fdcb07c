package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/soundleaf/nowplayingd/internal/player"
	"github.com/soundleaf/nowplayingd/internal/protocol"
)

// seekRefreshDelay is how long the seek handler waits before forcing a
// progress broadcast, giving the player time to apply the new position.
const seekRefreshDelay = 500 * time.Millisecond

// Router dispatches decoded inbound messages by their type field. A message
// that fails to decode, names an unknown type or misses a required field is
// dropped silently; the connection always survives a bad message body.
type Router struct {
	player      player.Control
	broadcaster *Broadcaster
	registry    *Registry

	// refreshDelay is seekRefreshDelay in production, shortened by tests.
	refreshDelay time.Duration
}

// NewRouter wires a Router to its collaborators.
func NewRouter(ctrl player.Control, b *Broadcaster, reg *Registry) *Router {
	return &Router{
		player:       ctrl,
		broadcaster:  b,
		registry:     reg,
		refreshDelay: seekRefreshDelay,
	}
}

// Dispatch routes one decoded text payload from conn. Malformed JSON is
// dropped without surfacing an error.
func (rt *Router) Dispatch(conn *Conn, payload []byte) {
	var cmd protocol.Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return
	}

	switch cmd.Type {
	case protocol.TypeRemoteCommand:
		rt.handleRemote(cmd.Data)
	case protocol.TypeSeekCommand:
		rt.handleSeek(cmd.Data)
	case protocol.TypeVolumeCommand:
		rt.handleVolume(cmd.Data)
	case protocol.TypeHeartbeat:
		rt.handleHeartbeat(conn)
	default:
		slog.Debug("ignoring unknown message type", "type", cmd.Type)
	}
}

func (rt *Router) handleRemote(data json.RawMessage) {
	var rc protocol.RemoteCommand
	if err := json.Unmarshal(data, &rc); err != nil || rc.Command == "" {
		return
	}

	switch rc.Command {
	case protocol.CmdPlayPause:
		rt.firePlayerCommand(rc.Command, rt.player.PlayPause)
	case protocol.CmdNextTrack:
		rt.firePlayerCommand(rc.Command, rt.player.Next)
	case protocol.CmdPreviousTrack:
		rt.firePlayerCommand(rc.Command, rt.player.Previous)
	case protocol.CmdStop:
		rt.firePlayerCommand(rc.Command, rt.player.Stop)
	case protocol.CmdStartProgressTracking:
		rt.broadcaster.Start()
	case protocol.CmdStopProgressTracking:
		rt.broadcaster.Stop()
	case protocol.CmdSetProgressInterval:
		if rc.Interval > 0 {
			rt.broadcaster.SetInterval(time.Duration(rc.Interval * float64(time.Second)))
		}
	default:
		slog.Debug("ignoring unknown remote command", "command", rc.Command)
	}
}

// firePlayerCommand runs a player action fire-and-forget so a slow
// AppleScript round trip never stalls the connection's receive loop.
func (rt *Router) firePlayerCommand(name string, fn func(context.Context) error) {
	go func() {
		if err := fn(context.Background()); err != nil {
			slog.Warn("player command failed", "command", name, "error", err)
		}
	}()
}

func (rt *Router) handleSeek(data json.RawMessage) {
	var sc protocol.SeekCommand
	if err := json.Unmarshal(data, &sc); err != nil || sc.Position == nil {
		return
	}
	position := *sc.Position

	go func() {
		if err := rt.player.Seek(context.Background(), position); err != nil {
			slog.Warn("seek failed", "position", position, "error", err)
			return
		}
		// Let the player settle, then push the new position to everyone.
		time.Sleep(rt.refreshDelay)
		rt.broadcaster.Refresh()
	}()
}

func (rt *Router) handleVolume(data json.RawMessage) {
	var vc protocol.VolumeCommand
	if err := json.Unmarshal(data, &vc); err != nil || vc.Volume == nil {
		return
	}
	level := player.ClampVolume(*vc.Volume)

	go func() {
		if err := rt.player.SetVolume(context.Background(), level); err != nil {
			slog.Warn("set volume failed", "volume", level, "error", err)
		}
	}()
}

// handleHeartbeat replies directly to the originating connection, never
// broadcast.
func (rt *Router) handleHeartbeat(conn *Conn) {
	payload, err := protocol.Encode(protocol.TypeHeartbeat, protocol.HeartbeatReply{
		Status:           "alive",
		Connections:      rt.registry.UpgradedCount(),
		ServerTime:       time.Now().UTC().Format(time.RFC3339),
		ProgressTracking: rt.broadcaster.Tracking(),
	})
	if err != nil {
		return
	}
	if err := conn.sendText(payload); err != nil {
		slog.Warn("heartbeat reply failed", "conn", conn.ID(), "error", err)
		rt.registry.Remove(conn.ID())
	}
}
