package ws

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upgradeRequest(headers ...string) *bufio.Reader {
	req := "GET /ws HTTP/1.1\r\n" + strings.Join(headers, "\r\n") + "\r\n\r\n"
	return bufio.NewReader(strings.NewReader(req))
}

func TestReadUpgradeComputesAcceptKey(t *testing.T) {
	key, err := readUpgrade(upgradeRequest(
		"Host: localhost:8990",
		"Upgrade: websocket",
		"Connection: Upgrade",
		"Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==",
		"Sec-WebSocket-Version: 13",
	))
	require.NoError(t, err)
	assert.Equal(t, "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=", key)
}

func TestReadUpgradeCaseInsensitive(t *testing.T) {
	// Header names and the upgrade/connection values match regardless of
	// case, and Connection may carry a list.
	key, err := readUpgrade(upgradeRequest(
		"UPGRADE: WebSocket",
		"connection: keep-alive, Upgrade",
		"SEC-WEBSOCKET-KEY: dGhlIHNhbXBsZSBub25jZQ==",
	))
	require.NoError(t, err)
	assert.Equal(t, "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=", key)
}

func TestReadUpgradeMissingKey(t *testing.T) {
	_, err := readUpgrade(upgradeRequest(
		"Upgrade: websocket",
		"Connection: Upgrade",
	))
	assert.ErrorIs(t, err, errNotWebSocket)
}

func TestReadUpgradeNotAnUpgrade(t *testing.T) {
	_, err := readUpgrade(upgradeRequest(
		"Upgrade: h2c",
		"Connection: Upgrade",
		"Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==",
	))
	assert.ErrorIs(t, err, errNotWebSocket)

	_, err = readUpgrade(upgradeRequest(
		"Upgrade: websocket",
		"Connection: close",
		"Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==",
	))
	assert.ErrorIs(t, err, errNotWebSocket)
}

func TestReadUpgradeTruncatedRequest(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("GET /ws HTTP/1.1\r\nUpgrade: websocket\r\n"))
	_, err := readUpgrade(r)
	assert.Error(t, err)
}

func TestUpgradeResponseShape(t *testing.T) {
	resp := string(upgradeResponse("s3pPLMBiTxaQ9kYGzzhZRbK+xOo="))
	assert.True(t, strings.HasPrefix(resp, "HTTP/1.1 101 Switching Protocols\r\n"))
	assert.Contains(t, resp, "Upgrade: websocket\r\n")
	assert.Contains(t, resp, "Connection: Upgrade\r\n")
	assert.Contains(t, resp, "Sec-WebSocket-Accept: s3pPLMBiTxaQ9kYGzzhZRbK+xOo=\r\n")
	assert.True(t, strings.HasSuffix(resp, "\r\n\r\n"))
}
