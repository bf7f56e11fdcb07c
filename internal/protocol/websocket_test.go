package protocol

import (
	"bufio"
	"bytes"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bufferConn is an in-memory net.Conn backed by a bytes.Buffer, enough for
// exercising the frame writers.
type bufferConn struct {
	bytes.Buffer
}

func (b *bufferConn) Close() error { return nil }

func (b *bufferConn) LocalAddr() net.Addr  { return nil }
func (b *bufferConn) RemoteAddr() net.Addr { return nil }

func (b *bufferConn) SetDeadline(time.Time) error      { return nil }
func (b *bufferConn) SetReadDeadline(time.Time) error  { return nil }
func (b *bufferConn) SetWriteDeadline(time.Time) error { return nil }

func TestAcceptKey(t *testing.T) {
	// Worked example from RFC 6455 section 1.3.
	assert.Equal(t, "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=", AcceptKey("dGhlIHNhbXBsZSBub25jZQ=="))
}

func TestClientFrameRoundTrip(t *testing.T) {
	lengths := []int{0, 10, 125, 126, 1000, 65535}

	for _, n := range lengths {
		payload := []byte(strings.Repeat("x", n))

		conn := &bufferConn{}
		require.NoError(t, WriteClientFrame(conn, OpText, payload))

		f, err := ReadFrame(bufio.NewReader(conn))
		require.NoError(t, err, "length %d", n)
		assert.True(t, f.Fin)
		assert.True(t, f.Masked, "client frames must arrive masked")
		assert.Equal(t, byte(OpText), f.Opcode)
		assert.Equal(t, payload, f.Payload, "length %d", n)
	}
}

func TestServerFrameRoundTrip(t *testing.T) {
	payload := []byte(`{"type":"play_state_update"}`)

	conn := &bufferConn{}
	require.NoError(t, WriteServerFrame(conn, OpText, payload))

	f, err := ReadFrame(bufio.NewReader(conn))
	require.NoError(t, err)
	assert.False(t, f.Masked, "server frames must not be masked")
	assert.Equal(t, payload, f.Payload)
}

func TestUnmaskKnownKey(t *testing.T) {
	plaintext := []byte("hello")
	key := [4]byte{0x12, 0x34, 0x56, 0x78}

	frame := []byte{0x81, 0x80 | byte(len(plaintext))}
	frame = append(frame, key[:]...)
	for i, b := range plaintext {
		frame = append(frame, b^key[i%4])
	}

	f, err := ReadFrame(bufio.NewReader(bytes.NewReader(frame)))
	require.NoError(t, err)
	assert.True(t, f.Masked)
	assert.Equal(t, plaintext, f.Payload)
}

func TestLengthEncodingBoundaries(t *testing.T) {
	conn := &bufferConn{}
	require.NoError(t, WriteServerFrame(conn, OpText, bytes.Repeat([]byte("a"), 125)))
	raw := conn.Bytes()
	assert.Equal(t, byte(125), raw[1]&0x7F, "125 uses the 7-bit form")

	conn = &bufferConn{}
	require.NoError(t, WriteServerFrame(conn, OpText, bytes.Repeat([]byte("a"), 126)))
	raw = conn.Bytes()
	assert.Equal(t, byte(126), raw[1]&0x7F, "126 uses the extended form")
	assert.Equal(t, []byte{0x00, 0x7E}, raw[2:4], "big-endian uint16 length")

	conn = &bufferConn{}
	require.NoError(t, WriteServerFrame(conn, OpText, bytes.Repeat([]byte("a"), 65535)))
	raw = conn.Bytes()
	assert.Equal(t, byte(126), raw[1]&0x7F)
	assert.Equal(t, []byte{0xFF, 0xFF}, raw[2:4])
}

func TestEncodeRejectsOversizedPayload(t *testing.T) {
	conn := &bufferConn{}
	err := WriteServerFrame(conn, OpText, make([]byte, 65536))
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
	assert.Zero(t, conn.Len(), "nothing written for a rejected frame")

	err = WriteClientFrame(conn, OpText, make([]byte, 65536))
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestDecodeRejects64BitLength(t *testing.T) {
	// 127 marker signals a 64-bit extended length, which is unsupported.
	frame := []byte{0x81, 127, 0, 0, 0, 0, 0, 0, 0, 5, 'h', 'e', 'l', 'l', 'o'}

	_, err := ReadFrame(bufio.NewReader(bytes.NewReader(frame)))
	assert.ErrorIs(t, err, ErrLength64)
}

func TestDecodePartialFrameAcrossReads(t *testing.T) {
	payload := []byte(strings.Repeat("y", 1000))
	conn := &bufferConn{}
	require.NoError(t, WriteClientFrame(conn, OpText, payload))
	raw := conn.Bytes()

	// Deliver the frame one byte at a time; the reader must reassemble.
	f, err := ReadFrame(bufio.NewReader(&oneByteReader{data: raw}))
	require.NoError(t, err)
	assert.Equal(t, payload, f.Payload)
}

// oneByteReader yields one byte per Read call, simulating a frame split
// across many TCP segments.
type oneByteReader struct {
	data []byte
	pos  int
}

func (r *oneByteReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, net.ErrClosed
	}
	p[0] = r.data[r.pos]
	r.pos++
	return 1, nil
}
