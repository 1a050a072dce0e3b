// Package frame implements length-prefixed message framing used between an
// executor and its governor: a little-endian 32-bit length prefix followed
// by that many payload bytes, over a local stream socket.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
)

// ErrPeerClosed is returned by Receive when the peer closes the connection
// (EOF). Fatal for the caller.
var ErrPeerClosed = errors.New("frame: peer closed connection")

const lengthPrefixSize = 4

// Conn is a framed connection to a local stream endpoint. It is not safe
// for concurrent Send and Receive calls from multiple goroutines against
// the same direction (the executor's dispatch loop is single-threaded).
type Conn struct {
	nc  net.Conn
	buf []byte // residual bytes not yet consumed by a completed Receive
}

// Connect opens a local (unix domain socket) stream connection to path.
func Connect(path string) (*Conn, error) {
	nc, err := net.Dial("unix", path)
	if err != nil {
		return nil, fmt.Errorf("frame: connect %s: %w", path, err)
	}
	return &Conn{nc: nc}, nil
}

// Wrap builds a Conn around an already-established net.Conn (a unix socket
// from Connect, or a net.Pipe end in tests).
func Wrap(nc net.Conn) *Conn {
	return &Conn{nc: nc}
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.nc.Close()
}

// Send emits one frame: the 4-byte little-endian length prefix followed by
// payload, retrying partial writes until everything is accepted. A write
// that returns zero bytes with no error is treated as fatal.
func (c *Conn) Send(payload []byte) error {
	var prefix [lengthPrefixSize]byte
	binary.LittleEndian.PutUint32(prefix[:], uint32(len(payload)))

	if err := c.writeAll(prefix[:]); err != nil {
		return fmt.Errorf("frame: send length prefix: %w", err)
	}
	if err := c.writeAll(payload); err != nil {
		return fmt.Errorf("frame: send payload: %w", err)
	}
	return nil
}

func (c *Conn) writeAll(b []byte) error {
	for len(b) > 0 {
		n, err := c.nc.Write(b)
		if err != nil {
			return err
		}
		if n <= 0 {
			return errors.New("frame: write made no progress")
		}
		b = b[n:]
	}
	return nil
}

// Receive returns the next frame's payload. It maintains an internal read
// buffer: on each call, while the buffer does not hold a full frame it
// reads more into it (growing as needed); once a full frame is present, the
// payload is spliced out, leaving residual bytes for the next call.
func (c *Conn) Receive() ([]byte, error) {
	for {
		if payload, rest, ok := trySplit(c.buf); ok {
			c.buf = rest
			return payload, nil
		}

		chunk := make([]byte, 65536)
		n, err := c.nc.Read(chunk)
		if n > 0 {
			c.buf = append(c.buf, chunk[:n]...)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ErrPeerClosed
			}
			return nil, fmt.Errorf("frame: receive: %w", err)
		}
	}
}

// trySplit reports whether buf holds one complete frame, returning its
// payload and the remaining bytes.
func trySplit(buf []byte) (payload, rest []byte, ok bool) {
	if len(buf) < lengthPrefixSize {
		return nil, nil, false
	}
	length := binary.LittleEndian.Uint32(buf[:lengthPrefixSize])
	total := lengthPrefixSize + int(length)
	if len(buf) < total {
		return nil, nil, false
	}
	payload = buf[lengthPrefixSize:total]
	out := make([]byte, len(payload))
	copy(out, payload)
	rest = buf[total:]
	return out, rest, true
}
