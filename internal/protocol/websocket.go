package protocol

import (
	"bufio"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"io"
	"net"
)

// WebSocket GUID per RFC 6455 section 4.2.2.
const wsGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// Frame size limits. Companion clients exchange small JSON messages, so the
// 64-bit extended length form is rejected outright rather than supported.
var (
	ErrLength64        = errors.New("64-bit payload length not supported")
	ErrPayloadTooLarge = errors.New("payload exceeds 16-bit frame length")
)

// AcceptKey computes the Sec-WebSocket-Accept value for a given key.
func AcceptKey(key string) string {
	h := sha1.New()
	h.Write([]byte(key + wsGUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// Frame is a single decoded WebSocket frame.
// Fin is recorded but not used: messages are assumed to fit in one frame.
type Frame struct {
	Fin     bool
	Opcode  byte
	Masked  bool
	Payload []byte
}

// ReadFrame reads one WebSocket frame from r. Reading through a bufio.Reader
// with io.ReadFull means a frame split across TCP segments is reassembled
// here instead of surfacing as a short read to the caller.
func ReadFrame(r *bufio.Reader) (*Frame, error) {
	header := make([]byte, 2)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	f := &Frame{
		Fin:    header[0]&0x80 != 0,
		Opcode: header[0] & 0x0F,
		Masked: header[1]&0x80 != 0,
	}
	length := uint64(header[1] & 0x7F)

	switch length {
	case 126:
		ext := make([]byte, 2)
		if _, err := io.ReadFull(r, ext); err != nil {
			return nil, err
		}
		length = uint64(binary.BigEndian.Uint16(ext))
	case 127:
		return nil, ErrLength64
	}

	var maskKey []byte
	if f.Masked {
		maskKey = make([]byte, 4)
		if _, err := io.ReadFull(r, maskKey); err != nil {
			return nil, err
		}
	}

	f.Payload = make([]byte, length)
	if _, err := io.ReadFull(r, f.Payload); err != nil {
		return nil, err
	}

	if f.Masked {
		for i := range f.Payload {
			f.Payload[i] ^= maskKey[i%4]
		}
	}

	return f, nil
}

// WriteServerFrame writes an unmasked WebSocket frame (server → client).
// Servers must not mask outbound frames per RFC 6455.
func WriteServerFrame(conn net.Conn, opcode byte, payload []byte) error {
	length := len(payload)
	if length >= 65536 {
		return ErrPayloadTooLarge
	}

	// Pre-allocate: 2-byte header + up to 2 extended length bytes + payload
	frame := make([]byte, 0, 2+2+length)
	frame = append(frame, 0x80|opcode)

	switch {
	case length < 126:
		frame = append(frame, byte(length))
	default:
		frame = append(frame, 126, byte(length>>8), byte(length))
	}

	frame = append(frame, payload...)
	_, err := conn.Write(frame)
	return err
}

// WriteClientFrame writes a masked WebSocket frame (client → server).
func WriteClientFrame(conn net.Conn, opcode byte, payload []byte) error {
	length := len(payload)
	if length >= 65536 {
		return ErrPayloadTooLarge
	}

	// Pre-allocate: 2-byte header + up to 2 extended + 4 mask + payload
	frame := make([]byte, 0, 2+2+4+length)
	frame = append(frame, 0x80|opcode)

	switch {
	case length < 126:
		frame = append(frame, byte(length)|0x80)
	default:
		frame = append(frame, 126|0x80, byte(length>>8), byte(length))
	}

	maskKey := [4]byte{}
	rand.Read(maskKey[:]) //nolint:errcheck
	frame = append(frame, maskKey[:]...)

	// Mask inline into the same allocation
	off := len(frame)
	frame = frame[:off+length]
	for i, b := range payload {
		frame[off+i] = b ^ maskKey[i&3]
	}

	_, err := conn.Write(frame)
	return err
}
