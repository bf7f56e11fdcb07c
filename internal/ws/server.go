// Package ws implements the push channel: a WebSocket server built directly
// on net.Listener, with the RFC 6455 handshake and framing done by hand in
// internal/protocol.
package ws

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/soundleaf/nowplayingd/internal/nowplaying"
	"github.com/soundleaf/nowplayingd/internal/player"
	"github.com/soundleaf/nowplayingd/internal/protocol"
	"github.com/soundleaf/nowplayingd/internal/version"
)

// Config carries the identity the server announces in server_info.
type Config struct {
	Addr     string // listen address, e.g. ":8990"
	Name     string // advertised service name
	App      string // host media application name
	WSPort   int    // advertised WebSocket port
	HTTPPort int    // advertised companion HTTP port
}

// Capabilities advertised to clients in server_info.
var capabilities = []string{
	"playback", "seek", "volume", "progress", "artwork-http", "history",
}

// Server owns the listening socket, the connection registry, the progress
// broadcaster and the message router. External collaborators (the track
// monitor, the audio device manager) only ever call its Broadcast methods.
type Server struct {
	cfg         Config
	registry    *Registry
	broadcaster *Broadcaster
	router      *Router

	mu       sync.Mutex
	listener net.Listener
	stopped  bool
}

// NewServer wires a Server to the given player control.
func NewServer(cfg Config, ctrl player.Control) *Server {
	s := &Server{
		cfg:      cfg,
		registry: NewRegistry(),
	}
	s.broadcaster = NewBroadcaster(ctrl.State, s.broadcastProgress)
	s.router = NewRouter(ctrl, s.broadcaster, s.registry)
	return s
}

// Start binds the listening socket and launches the accept loop. A bind
// failure is returned to the caller and disables only this component.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return fmt.Errorf("websocket server already started")
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("websocket listen on %s: %w", s.cfg.Addr, err)
	}
	s.listener = ln
	s.stopped = false

	slog.Info("websocket server listening", "addr", ln.Addr().String())
	go s.acceptLoop(ln)
	return nil
}

// Addr returns the bound listener address (nil before Start).
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop shuts the broadcaster down, closes every connection and releases
// the listening socket. Idempotent.
func (s *Server) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	ln := s.listener
	s.listener = nil
	s.mu.Unlock()

	s.broadcaster.Shutdown()
	if ln != nil {
		_ = ln.Close()
	}
	s.registry.CloseAll()
	slog.Info("websocket server stopped")
}

// Broadcaster exposes the progress broadcaster so command surfaces (the
// HTTP /control endpoint) can share its start/stop/interval entry points.
func (s *Server) Broadcaster() *Broadcaster { return s.broadcaster }

// UpgradedConnections reports how many clients completed the handshake.
func (s *Server) UpgradedConnections() int { return s.registry.UpgradedCount() }

// ProgressTracking reports whether the periodic progress loop is running.
func (s *Server) ProgressTracking() bool { return s.broadcaster.Tracking() }

func (s *Server) acceptLoop(ln net.Listener) {
	for {
		nc, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			stopped := s.stopped
			s.mu.Unlock()
			if !stopped {
				slog.Warn("accept failed", "error", err)
			}
			return
		}

		c := newConn(nc)
		s.registry.Add(c)
		go s.handleConn(c)
	}
}

// handleConn runs the handshake and then the receive loop for one
// connection. It is the only goroutine that ever reads from this conn.
func (s *Server) handleConn(c *Conn) {
	defer s.registry.Remove(c.id)

	acceptKey, err := readUpgrade(c.reader)
	if err != nil {
		// Invalid handshakes get torn down without a response.
		slog.Debug("handshake rejected", "remote", c.RemoteAddr(), "error", err)
		return
	}
	if err := c.writeRaw(upgradeResponse(acceptKey)); err != nil {
		return
	}

	s.registry.MarkUpgraded(c.id)
	slog.Info("client connected", "conn", c.id, "remote", c.RemoteAddr())
	defer slog.Info("client disconnected", "conn", c.id)

	s.sendBootstrap(c)
	s.receiveLoop(c)
}

// sendBootstrap pushes server identity and a ready heartbeat right after
// the upgrade, before steady-state message flow.
func (s *Server) sendBootstrap(c *Conn) {
	info, err := protocol.Encode(protocol.TypeServerInfo, protocol.ServerInfo{
		Name:         s.cfg.Name,
		App:          s.cfg.App,
		Version:      version.Version,
		WSPort:       s.cfg.WSPort,
		HTTPPort:     s.cfg.HTTPPort,
		Capabilities: capabilities,
	})
	if err == nil {
		_ = c.sendText(info)
	}

	hb, err := protocol.Encode(protocol.TypeHeartbeat, protocol.HeartbeatStatus{
		Status:     "connected",
		ServerTime: time.Now().UTC().Format(time.RFC3339),
	})
	if err == nil {
		_ = c.sendText(hb)
	}
}

func (s *Server) receiveLoop(c *Conn) {
	for {
		f, err := protocol.ReadFrame(c.reader)
		if err != nil {
			return
		}

		// Clients must mask; an unmasked frame is a protocol violation
		// and drops the connection.
		if !f.Masked {
			slog.Debug("unmasked client frame", "conn", c.id)
			return
		}

		switch f.Opcode {
		case protocol.OpText:
			s.router.Dispatch(c, f.Payload)
		case protocol.OpClose:
			_ = c.sendControl(protocol.OpClose, nil)
			return
		case protocol.OpPing:
			_ = c.sendControl(protocol.OpPong, f.Payload)
		case protocol.OpPong:
			// no-op
		default:
			slog.Debug("ignoring frame", "opcode", f.Opcode)
		}
	}
}

// BroadcastTrackUpdate pushes new track metadata to every upgraded client.
// Artwork bytes stay on the HTTP endpoint; hasArtwork tells clients
// whether fetching /artwork is worthwhile.
func (s *Server) BroadcastTrackUpdate(name, artist, album string, persistentID *string, isPlaying, hasArtwork bool) {
	s.broadcast(protocol.TypeTrackUpdate, protocol.TrackUpdate{
		TrackName:    name,
		Artist:       artist,
		Album:        album,
		PersistentID: persistentID,
		IsPlaying:    isPlaying,
		HasArtwork:   hasArtwork,
	})
}

// BroadcastAudioConfigUpdate pushes the output device configuration.
func (s *Server) BroadcastAudioConfigUpdate(sampleRate float64, bitDepth int, deviceName string) {
	s.broadcast(protocol.TypeAudioConfigUpdate, protocol.AudioConfigUpdate{
		SampleRate:        sampleRate,
		BitDepth:          bitDepth,
		DeviceName:        deviceName,
		SampleRateDisplay: nowplaying.SampleRateDisplay(sampleRate),
		BitDepthDisplay:   nowplaying.BitDepthDisplay(bitDepth),
	})
}

// BroadcastPlayStateUpdate pushes a play/pause transition.
func (s *Server) BroadcastPlayStateUpdate(isPlaying bool) {
	s.broadcast(protocol.TypePlayStateUpdate, protocol.PlayStateUpdate{IsPlaying: isPlaying})
}

func (s *Server) broadcastProgress(u protocol.ProgressUpdate) {
	s.broadcast(protocol.TypeProgressUpdate, u)
}

// broadcast encodes the message once and fans it out. A send failure on
// one connection removes only that connection.
func (s *Server) broadcast(msgType string, data any) {
	payload, err := protocol.Encode(msgType, data)
	if err != nil {
		slog.Error("encode broadcast failed", "type", msgType, "error", err)
		return
	}

	for _, c := range s.registry.SnapshotUpgraded() {
		if err := c.sendText(payload); err != nil {
			slog.Warn("send failed, dropping connection", "conn", c.id, "error", err)
			s.registry.Remove(c.id)
		}
	}
}
