package ws

import (
	"bufio"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/soundleaf/nowplayingd/internal/protocol"
)

// Conn is one accepted transport stream plus its protocol state.
// The registry is the sole owner of a Conn; everything else holds it only
// transiently (the receive loop, or a broadcast snapshot).
type Conn struct {
	id       string
	netConn  net.Conn
	reader   *bufio.Reader
	upgraded bool // guarded by the registry's lock, flips once

	// writeMu serialises outbound frames so concurrent broadcasts never
	// interleave bytes on the wire.
	writeMu sync.Mutex
}

func newConn(nc net.Conn) *Conn {
	return &Conn{
		id:      uuid.New().String(),
		netConn: nc,
		reader:  bufio.NewReader(nc),
	}
}

// ID returns the connection's unique identifier.
func (c *Conn) ID() string { return c.id }

// RemoteAddr reports the peer address, for logging.
func (c *Conn) RemoteAddr() string { return c.netConn.RemoteAddr().String() }

// sendText writes one text frame carrying payload.
func (c *Conn) sendText(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return protocol.WriteServerFrame(c.netConn, protocol.OpText, payload)
}

// sendControl writes a control frame (close, ping, pong).
func (c *Conn) sendControl(opcode byte, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return protocol.WriteServerFrame(c.netConn, opcode, payload)
}

// writeRaw writes bytes outside WebSocket framing (the 101 response).
func (c *Conn) writeRaw(b []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := c.netConn.Write(b)
	return err
}
