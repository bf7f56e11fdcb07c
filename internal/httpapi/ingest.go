package httpapi

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/soundleaf/nowplayingd/internal/nowplaying"
)

// Ingest endpoints are how the host-side collaborators (the track monitor
// and the audio device manager, which live in the menu-bar process) feed
// state changes into the bridge. Each one updates the shared state and
// fans a WebSocket broadcast out through the Publisher.

type trackIngest struct {
	TrackName     string  `json:"trackName"`
	Artist        string  `json:"artist"`
	Album         string  `json:"album"`
	PersistentID  *string `json:"persistentID"`
	IsPlaying     bool    `json:"isPlaying"`
	ArtworkBase64 string  `json:"artworkBase64"`
}

func (a *API) handleIngestTrack(c *gin.Context) {
	var req trackIngest
	if err := c.ShouldBindJSON(&req); err != nil || req.TrackName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "trackName required"})
		return
	}

	var artwork []byte
	if req.ArtworkBase64 != "" {
		var err error
		artwork, err = base64.StdEncoding.DecodeString(req.ArtworkBase64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid artwork encoding"})
			return
		}
	}

	a.publisher.TrackChanged(c.Request.Context(), nowplaying.Track{
		Name:         req.TrackName,
		Artist:       req.Artist,
		Album:        req.Album,
		PersistentID: req.PersistentID,
	}, artwork, req.IsPlaying)

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type audioIngest struct {
	SampleRate float64 `json:"sampleRate"`
	BitDepth   int     `json:"bitDepth"`
	DeviceName string  `json:"deviceName"`
}

func (a *API) handleIngestAudio(c *gin.Context) {
	var req audioIngest
	if err := c.ShouldBindJSON(&req); err != nil || req.SampleRate <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sampleRate required"})
		return
	}

	a.publisher.AudioConfigChanged(nowplaying.AudioConfig{
		SampleRate: req.SampleRate,
		BitDepth:   req.BitDepth,
		DeviceName: req.DeviceName,
	})
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type playStateIngest struct {
	IsPlaying *bool `json:"isPlaying"`
}

func (a *API) handleIngestPlayState(c *gin.Context) {
	var req playStateIngest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsPlaying == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "isPlaying required"})
		return
	}

	a.publisher.PlayStateChanged(*req.IsPlaying)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
