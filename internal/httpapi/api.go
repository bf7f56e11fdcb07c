// Package httpapi serves the polling JSON API companion clients use
// alongside the WebSocket channel: current track, artwork bytes, audio
// configuration, one-shot progress, control commands and play history.
package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/soundleaf/nowplayingd/internal/nowplaying"
	"github.com/soundleaf/nowplayingd/internal/player"
	"github.com/soundleaf/nowplayingd/internal/store"
	"github.com/soundleaf/nowplayingd/internal/version"
)

// PushStatus is the slice of the WebSocket server the status endpoint and
// control dispatch need.
type PushStatus interface {
	UpgradedConnections() int
	ProgressTracking() bool
}

// Broadcaster mirrors the progress-tracking entry points shared with the
// WebSocket remote_command path.
type Broadcaster interface {
	Start()
	Stop()
	SetInterval(time.Duration)
}

// API bundles the handlers and their collaborators.
type API struct {
	state       *nowplaying.State
	publisher   *nowplaying.Publisher
	player      player.Control
	status      PushStatus
	broadcaster Broadcaster
	history     store.Store
	started     time.Time
	wsPort      int
	httpPort    int
}

// New wires the API. history may be nil, which disables /history.
func New(state *nowplaying.State, pub *nowplaying.Publisher, ctrl player.Control, status PushStatus, b Broadcaster, history store.Store, wsPort, httpPort int) *API {
	return &API{
		state:       state,
		publisher:   pub,
		player:      ctrl,
		status:      status,
		broadcaster: b,
		history:     history,
		started:     time.Now(),
		wsPort:      wsPort,
		httpPort:    httpPort,
	}
}

// Router builds the gin engine with all routes registered.
func (a *API) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/track", a.handleTrack)
	r.GET("/artwork", a.handleArtwork)
	r.GET("/status", a.handleStatus)
	r.GET("/audio", a.handleAudio)
	r.GET("/progress", a.handleProgress)
	r.GET("/control", a.handleControlInfo)
	r.POST("/control", a.handleControl)
	r.GET("/history", a.handleHistory)

	r.POST("/update/track", a.handleIngestTrack)
	r.POST("/update/audio", a.handleIngestAudio)
	r.POST("/update/playstate", a.handleIngestPlayState)

	return r
}

func (a *API) handleTrack(c *gin.Context) {
	track, ok := a.state.Track()
	c.JSON(http.StatusOK, gin.H{
		"trackName":    track.Name,
		"artist":       track.Artist,
		"album":        track.Album,
		"persistentID": track.PersistentID,
		"isPlaying":    a.state.Playing(),
		"hasTrack":     ok,
		"hasArtwork":   a.state.HasArtwork(),
	})
}

// handleArtwork serves the raw image bytes with permissive CORS so web
// companions on another origin can embed it directly.
func (a *API) handleArtwork(c *gin.Context) {
	art := a.state.Artwork()
	if len(art) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no artwork available"})
		return
	}

	c.Header("Access-Control-Allow-Origin", "*")
	c.Data(http.StatusOK, sniffImageType(art), art)
}

// sniffImageType guesses a content type from magic bytes, best effort.
func sniffImageType(b []byte) string {
	switch {
	case len(b) >= 3 && b[0] == 0xFF && b[1] == 0xD8 && b[2] == 0xFF:
		return "image/jpeg"
	case len(b) >= 4 && b[0] == 0x89 && b[1] == 0x50 && b[2] == 0x4E && b[3] == 0x47:
		return "image/png"
	default:
		return "application/octet-stream"
	}
}

func (a *API) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":           "ok",
		"version":          version.Version,
		"uptimeSeconds":    int(time.Since(a.started).Seconds()),
		"connections":      a.status.UpgradedConnections(),
		"progressTracking": a.status.ProgressTracking(),
		"wsPort":           a.wsPort,
		"httpPort":         a.httpPort,
	})
}

func (a *API) handleAudio(c *gin.Context) {
	cfg := a.state.AudioConfig()
	c.JSON(http.StatusOK, gin.H{
		"sampleRate":        cfg.SampleRate,
		"bitDepth":          cfg.BitDepth,
		"deviceName":        cfg.DeviceName,
		"sampleRateDisplay": nowplaying.SampleRateDisplay(cfg.SampleRate),
		"bitDepthDisplay":   nowplaying.BitDepthDisplay(cfg.BitDepth),
	})
}

// handleProgress makes a one-shot player query; unlike the WebSocket
// progress loop this hits the player on every request.
func (a *API) handleProgress(c *gin.Context) {
	st, err := a.player.State(c.Request.Context())
	if err != nil {
		slog.Warn("progress query failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "player unavailable"})
		return
	}

	percentage := 0.0
	if st.Duration > 0 {
		percentage = st.Position / st.Duration * 100
	}
	c.JSON(http.StatusOK, gin.H{
		"position":   st.Position,
		"duration":   st.Duration,
		"volume":     st.Volume,
		"isPlaying":  st.IsPlaying,
		"isRunning":  st.IsRunning,
		"percentage": percentage,
	})
}

func (a *API) handleControlInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"commands": []string{
			"play_pause", "next_track", "previous_track", "stop",
			"seek", "set_volume",
			"start_progress_tracking", "stop_progress_tracking", "set_progress_interval",
		},
	})
}

type controlRequest struct {
	Command  string   `json:"command"`
	Position *float64 `json:"position"`
	Volume   *int     `json:"volume"`
	Interval *float64 `json:"interval"`
}

// handleControl mirrors the WebSocket MessageRouter dispatch over plain
// HTTP. Player failures are reported as 502 but otherwise contained.
func (a *API) handleControl(c *gin.Context) {
	var req controlRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Command == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "command required"})
		return
	}

	ctx := c.Request.Context()
	var err error

	switch req.Command {
	case "play_pause":
		err = a.player.PlayPause(ctx)
	case "next_track":
		err = a.player.Next(ctx)
	case "previous_track":
		err = a.player.Previous(ctx)
	case "stop":
		err = a.player.Stop(ctx)
	case "seek":
		if req.Position == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "position required"})
			return
		}
		err = a.player.Seek(ctx, *req.Position)
	case "set_volume":
		if req.Volume == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "volume required"})
			return
		}
		err = a.player.SetVolume(ctx, player.ClampVolume(*req.Volume))
	case "start_progress_tracking":
		a.broadcaster.Start()
	case "stop_progress_tracking":
		a.broadcaster.Stop()
	case "set_progress_interval":
		if req.Interval == nil || *req.Interval <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "interval required"})
			return
		}
		a.broadcaster.SetInterval(time.Duration(*req.Interval * float64(time.Second)))
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown command"})
		return
	}

	if err != nil {
		slog.Warn("control command failed", "command", req.Command, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "command failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "command": req.Command})
}

func (a *API) handleHistory(c *gin.Context) {
	if a.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history disabled"})
		return
	}

	limit := 50
	if v, ok := c.GetQuery("limit"); ok {
		if n, err := parsePositiveInt(v); err == nil {
			limit = n
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	plays, err := a.history.RecentPlays(ctx, limit)
	if err != nil {
		slog.Warn("history query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history unavailable"})
		return
	}
	if plays == nil {
		plays = []*store.PlayRecord{}
	}
	c.JSON(http.StatusOK, plays)
}

func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("not positive: %d", n)
	}
	return n, nil
}
