// Package socket implements the buffered framed socket both sides of a
// relayed request are built on: a single fixed-size receive buffer with an
// explicit leftover-byte discipline, so a line read and a following binary
// read never race over the same bytes.
package socket

import (
	"io"
	"net"
	"strings"
	"time"

	"github.com/proxycore/httprelay/pkg/constants"
	"github.com/proxycore/httprelay/pkg/header"
	"github.com/proxycore/httprelay/pkg/perror"
)

// Socket wraps one net.Conn with the 8KiB buffer and leftover-range
// bookkeeping spec'd for the BP and PS sides alike.
type Socket struct {
	conn net.Conn
	buf  [constants.SocketBufferSize]byte

	cursor    int // next unread byte in buf
	available int // bytes in buf from cursor onward

	// leftoverFrom/leftoverTo delimit bytes already delivered to a line read
	// that a following binary read must still consume, gated by hasLeftover.
	// Equivalent in information content to an Option<Range>, expressed as the
	// cursor/flag pair Go code conventionally reaches for over a one-off
	// generic Range type.
	leftoverFrom int
	leftoverTo   int
	hasLeftover  bool

	persistent bool
	dead       bool
}

// New wraps conn. TCP_NODELAY is set immediately to favor interactive
// request/response latency over batching small writes.
func New(conn net.Conn) *Socket {
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.SetNoDelay(true)
	}
	return &Socket{conn: conn}
}

// Conn returns the underlying connection, for callers (the CONNECT tunnel,
// the acceptor's registry) that need it directly.
func (s *Socket) Conn() net.Conn { return s.conn }

// IsDead reports whether the socket has been observed closed or disconnected.
func (s *Socket) IsDead() bool { return s.dead }

// SetPersistent records whether this connection should be kept alive after
// the current request, and applies TCP keep-alive accordingly.
func (s *Socket) SetPersistent(persistent bool) {
	s.persistent = persistent
	if tc, ok := s.conn.(*net.TCPConn); ok && persistent {
		tc.SetKeepAlive(true)
		tc.SetKeepAlivePeriod(constants.TCPKeepAlivePeriod)
	}
}

// Persistent reports the value last set by SetPersistent.
func (s *Socket) Persistent() bool { return s.persistent }

// Close closes the underlying connection. Safe to call more than once.
func (s *Socket) Close() error {
	s.dead = true
	return s.conn.Close()
}

// fill reads fresh bytes from the connection into buf, resetting cursor to 0.
// Returns the perror-wrapped IO_BROKEN for anything but a clean EOF.
func (s *Socket) fill() error {
	s.cursor = 0
	s.available = 0
	n, err := s.conn.Read(s.buf[:])
	s.available = n
	if n > 0 {
		return nil
	}
	if err == io.EOF || err == nil {
		s.dead = true
		return io.EOF
	}
	s.dead = true
	return perror.NewIOBroken("fill", err)
}

// ReadLine returns one line with no trailing newline. It accepts a bare LF
// or a CRLF; a stray CR not followed by LF is preserved in the returned
// text. Marks the leftover flag so a following binary read can reclaim
// whatever of the line buffer it did not consume.
func (s *Socket) ReadLine() (string, error) {
	var sb strings.Builder
	sawAnyByte := false
	for {
		if s.cursor >= s.available {
			if err := s.fill(); err != nil {
				if err == io.EOF && sawAnyByte {
					return sb.String(), nil
				}
				return "", perror.NewIOBroken("read_line", err)
			}
		}
		start := s.cursor
		for s.cursor < s.available {
			b := s.buf[s.cursor]
			s.cursor++
			sawAnyByte = true
			if b == '\n' {
				line := sb.String() + string(s.buf[start:s.cursor-1])
				if strings.HasSuffix(line, "\r") {
					line = line[:len(line)-1]
				}
				s.markLeftover()
				return line, nil
			}
		}
		sb.Write(s.buf[start:s.cursor])
	}
}

// markLeftover records that bytes from cursor to available (possibly zero)
// are still unconsumed, so the next binary read reclaims them instead of
// discarding them.
func (s *Socket) markLeftover() {
	s.leftoverFrom = s.cursor
	s.leftoverTo = s.available
	s.hasLeftover = true
}

// ReadBinary returns up to len(p) bytes without blocking on a full buffer:
// if leftover bytes remain from a prior ReadLine/tunnel, those are returned
// first (moved to the front of buf since ReadLine already advanced cursor
// past them); otherwise it reads fresh from the connection. Returns 0, nil
// exactly when the peer has closed cleanly.
func (s *Socket) ReadBinary(p []byte) (int, error) {
	if s.hasLeftover {
		n := s.leftoverTo - s.leftoverFrom
		if n > 0 {
			copy(s.buf[0:n], s.buf[s.leftoverFrom:s.leftoverTo])
			s.cursor = 0
			s.available = n
		}
		s.hasLeftover = false
	}
	if s.cursor < s.available {
		n := copy(p, s.buf[s.cursor:s.available])
		s.cursor += n
		return n, nil
	}
	n, err := s.conn.Read(p)
	if n == 0 && (err == io.EOF || err == nil) {
		s.dead = true
		return 0, nil
	}
	if err != nil && err != io.EOF {
		return n, perror.NewIOBroken("read_binary", err)
	}
	return n, nil
}

// WriteLine writes text followed by CRLF.
func (s *Socket) WriteLine(text string) error {
	return s.WriteBytes([]byte(text + "\r\n"))
}

// WriteBytes writes p in full, propagating a short write as IO_BROKEN.
func (s *Socket) WriteBytes(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	n, err := s.conn.Write(p)
	if err != nil {
		s.dead = true
		return perror.NewIOBroken("write", err)
	}
	if n != len(p) {
		s.dead = true
		return perror.NewIOBroken("write", io.ErrShortWrite)
	}
	return nil
}

// SetDeadline sets a read/write deadline on the underlying conn, for callers
// that want an OS-level timeout; nothing in pkg/pipeline calls it.
func (s *Socket) SetDeadline(t time.Time) error {
	return s.conn.SetDeadline(t)
}

// ReadRequestLine reads and discards any number of leading empty lines (a
// bare CRLF some clients send as a keep-alive probe between requests), then
// parses the request line.
func (s *Socket) ReadRequestLine() (header.RequestLine, error) {
	for {
		line, err := s.ReadLine()
		if err != nil {
			return header.RequestLine{}, err
		}
		if line == "" {
			continue
		}
		return header.ParseRequestLine(line)
	}
}

// ReadStatusLine reads and discards any number of leading empty lines, then
// parses the status line.
func (s *Socket) ReadStatusLine() (header.StatusLine, error) {
	for {
		line, err := s.ReadLine()
		if err != nil {
			return header.StatusLine{}, err
		}
		if line == "" {
			continue
		}
		return header.ParseStatusLine(line)
	}
}

// ReadHeaderBlock parses a header.Block from this socket's line reader.
func (s *Socket) ReadHeaderBlock() (*header.Block, error) {
	return header.ParseBlock(s.ReadLine)
}
