package ws

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/soundleaf/nowplayingd/internal/protocol"
)

// maxHandshakeLine bounds a single header line so a garbage peer cannot
// make the reader accumulate without limit.
const maxHandshakeLine = 8192

var errNotWebSocket = errors.New("not a websocket upgrade request")

// readUpgrade consumes the HTTP upgrade request from r and returns the
// computed Sec-WebSocket-Accept key. The request line is read and ignored;
// validation only cares about the Upgrade, Connection and
// Sec-WebSocket-Key headers (matched case-insensitively).
func readUpgrade(r *bufio.Reader) (string, error) {
	headers := make(map[string]string)
	first := true

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("read handshake: %w", err)
		}
		if len(line) > maxHandshakeLine {
			return "", errNotWebSocket
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		if first {
			first = false
			continue
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		headers[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(value)
	}

	key := headers["sec-websocket-key"]
	if key == "" {
		return "", errNotWebSocket
	}
	if !strings.Contains(strings.ToLower(headers["upgrade"]), "websocket") {
		return "", errNotWebSocket
	}
	if !strings.Contains(strings.ToLower(headers["connection"]), "upgrade") {
		return "", errNotWebSocket
	}

	return protocol.AcceptKey(key), nil
}

// upgradeResponse builds the 101 Switching Protocols response bytes.
func upgradeResponse(acceptKey string) []byte {
	return []byte("HTTP/1.1 101 Switching Protocols\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Accept: " + acceptKey + "\r\n\r\n")
}
