// Package protocol defines the WebSocket framing primitives and the shared
// message types exchanged between the server and companion clients.
package protocol

import (
	"encoding/json"
	"time"
)

// WebSocket opcodes per RFC 6455.
const (
	OpContinue = 0
	OpText     = 1
	OpBinary   = 2
	OpClose    = 8
	OpPing     = 9
	OpPong     = 10
)

// Outbound message types (server → client).
const (
	TypeServerInfo        = "server_info"
	TypeHeartbeat         = "heartbeat"
	TypeTrackUpdate       = "track_update"
	TypeAudioConfigUpdate = "audio_config_update"
	TypePlayStateUpdate   = "play_state_update"
	TypeProgressUpdate    = "progress_update"
)

// Inbound message types (client → server).
const (
	TypeRemoteCommand = "remote_command"
	TypeSeekCommand   = "seek_command"
	TypeVolumeCommand = "volume_command"
)

// Remote command verbs carried in remote_command data.
const (
	CmdPlayPause             = "play_pause"
	CmdNextTrack             = "next_track"
	CmdPreviousTrack         = "previous_track"
	CmdStop                  = "stop"
	CmdStartProgressTracking = "start_progress_tracking"
	CmdStopProgressTracking  = "stop_progress_tracking"
	CmdSetProgressInterval   = "set_progress_interval"
)

// Envelope is the wire shape of every server → client message.
type Envelope struct {
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Command is the wire shape of every client → server message.
type Command struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Encode wraps a typed data payload in an Envelope and marshals it.
func Encode(msgType string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{
		Type:      msgType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      raw,
	})
}

// ServerInfo announces the service identity right after a handshake.
type ServerInfo struct {
	Name         string   `json:"name"`
	App          string   `json:"app"`
	Version      string   `json:"version"`
	WSPort       int      `json:"wsPort"`
	HTTPPort     int      `json:"httpPort"`
	Capabilities []string `json:"capabilities"`
}

// HeartbeatStatus is the unsolicited heartbeat sent after connect.
type HeartbeatStatus struct {
	Status     string `json:"status"`
	ServerTime string `json:"serverTime"`
}

// HeartbeatReply answers a client heartbeat with liveness details.
type HeartbeatReply struct {
	Status           string `json:"status"`
	Connections      int    `json:"connections"`
	ServerTime       string `json:"serverTime"`
	ProgressTracking bool   `json:"progressTracking"`
}

// TrackUpdate carries track metadata. Artwork itself travels over the HTTP
// endpoint; HasArtwork tells clients whether a fetch is worthwhile and
// ArtworkBase64 stays null on the push path.
type TrackUpdate struct {
	TrackName     string  `json:"trackName"`
	Artist        string  `json:"artist"`
	Album         string  `json:"album"`
	PersistentID  *string `json:"persistentID"`
	IsPlaying     bool    `json:"isPlaying"`
	HasArtwork    bool    `json:"hasArtwork"`
	ArtworkBase64 *string `json:"artworkBase64"`
}

// AudioConfigUpdate describes the output device configuration.
type AudioConfigUpdate struct {
	SampleRate        float64 `json:"sampleRate"`
	BitDepth          int     `json:"bitDepth"`
	DeviceName        string  `json:"deviceName"`
	SampleRateDisplay string  `json:"sampleRateDisplay"`
	BitDepthDisplay   string  `json:"bitDepthDisplay"`
}

// PlayStateUpdate signals play/pause transitions.
type PlayStateUpdate struct {
	IsPlaying bool `json:"isPlaying"`
}

// ProgressUpdate is the periodic playback position broadcast.
type ProgressUpdate struct {
	Position   float64 `json:"position"`
	Duration   float64 `json:"duration"`
	Volume     int     `json:"volume"`
	IsPlaying  bool    `json:"isPlaying"`
	Percentage float64 `json:"percentage"`
}

// RemoteCommand is the data payload of a remote_command message.
// Interval is only meaningful for set_progress_interval.
type RemoteCommand struct {
	Command  string  `json:"command"`
	Interval float64 `json:"interval,omitempty"`
}

// SeekCommand is the data payload of a seek_command message.
// Position is a pointer so a missing field is distinguishable from 0.
type SeekCommand struct {
	Position *float64 `json:"position"`
}

// VolumeCommand is the data payload of a volume_command message.
type VolumeCommand struct {
	Volume *int `json:"volume"`
}
