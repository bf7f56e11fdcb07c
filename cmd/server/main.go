// Command server runs the local media-state bridge: a WebSocket push
// channel on one port and a polling JSON API on another, both fed by the
// host media player.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/soundleaf/nowplayingd/internal/httpapi"
	"github.com/soundleaf/nowplayingd/internal/nowplaying"
	"github.com/soundleaf/nowplayingd/internal/player"
	"github.com/soundleaf/nowplayingd/internal/store"
	"github.com/soundleaf/nowplayingd/internal/version"
	"github.com/soundleaf/nowplayingd/internal/ws"
)

// Default ports shared with companion clients.
const (
	defaultWSPort   = 8990
	defaultHTTPPort = 8989
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}
	setupLogger()

	wsAddr := flag.String("ws-addr", envDefault("WS_ADDR", ":8990"), "WebSocket listen address")
	httpAddr := flag.String("http-addr", envDefault("HTTP_ADDR", ":8989"), "HTTP API listen address")
	dbPath := flag.String("db", envDefault("DB_PATH", "nowplayingd.db"), "Play-history database path (empty to disable)")
	backend := flag.String("player", envDefault("PLAYER_BACKEND", "osascript"), "Player backend: osascript or stub")
	appName := flag.String("app", envDefault("PLAYER_APP", "Music"), "Target media application name")
	flag.Parse()

	slog.Info("nowplayingd starting", "version", version.Version, "built", version.BuildTime)

	var ctrl player.Control
	switch *backend {
	case "stub":
		ctrl = player.NewStub()
	default:
		ctrl = player.NewOSAScript(*appName)
	}

	var history store.Store
	if *dbPath != "" {
		var err error
		history, err = store.NewSQLiteStore(*dbPath)
		if err != nil {
			slog.Error("open history store failed", "path", *dbPath, "error", err)
			os.Exit(1)
		}
		defer history.Close() //nolint:errcheck
	}

	wsServer := ws.NewServer(ws.Config{
		Addr:     *wsAddr,
		Name:     "nowplayingd",
		App:      *appName,
		WSPort:   defaultWSPort,
		HTTPPort: defaultHTTPPort,
	}, ctrl)
	// A bind failure disables the push channel but the HTTP API still serves.
	if err := wsServer.Start(); err != nil {
		slog.Error("websocket server failed to start", "error", err)
	}

	state := nowplaying.NewState()
	publisher := nowplaying.NewPublisher(state, wsServer, history)

	api := httpapi.New(state, publisher, ctrl, wsServer, wsServer.Broadcaster(), history, defaultWSPort, defaultHTTPPort)
	httpServer := &http.Server{
		Addr:    *httpAddr,
		Handler: api.Router(),
	}

	go func() {
		slog.Info("http api listening", "addr", *httpAddr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
	wsServer.Stop()
}

func setupLogger() {
	level := slog.LevelInfo
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
