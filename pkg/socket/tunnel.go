package socket

import (
	"io"
	"strconv"
	"strings"

	"github.com/proxycore/httprelay/pkg/perror"
)

// PacketHandler receives successive slices of a relayed body. A nil slice
// signals end of message; the handler must not retain p past the call.
type PacketHandler func(p []byte) error

// dest abstracts "forward to a socket" vs "forward to a handler" so the
// tunnel methods can share one implementation (spec.md §4.F's two delivery
// targets per framing mode).
type dest interface {
	forward(p []byte) error
	finish() error
}

type socketDest struct{ s *Socket }

func (d socketDest) forward(p []byte) error { return d.s.WriteBytes(p) }
func (d socketDest) finish() error          { return nil }

type handlerDest struct{ h PacketHandler }

func (d handlerDest) forward(p []byte) error { return d.h(p) }
func (d handlerDest) finish() error          { return d.h(nil) }

// TunnelUntilClose repeatedly reads and forwards to dst until the source
// reports a clean close. Read errors on the source are treated as a
// graceful close (swallowed); write errors to dst propagate.
func (s *Socket) TunnelUntilClose(dst *Socket) (int64, error) {
	return s.tunnelUntilClose(socketDest{dst})
}

// TunnelUntilCloseToHandler is TunnelUntilClose's handler-delivery variant.
func (s *Socket) TunnelUntilCloseToHandler(h PacketHandler) (int64, error) {
	n, err := s.tunnelUntilClose(handlerDest{h})
	if err != nil {
		return n, err
	}
	return n, h(nil)
}

func (s *Socket) tunnelUntilClose(d dest) (int64, error) {
	var total int64
	buf := make([]byte, 32*1024)
	for {
		n, err := s.ReadBinary(buf)
		if n > 0 {
			if werr := d.forward(buf[:n]); werr != nil {
				return total, werr
			}
			total += int64(n)
		}
		if err != nil {
			return total, nil // source errors are a graceful close
		}
		if n == 0 {
			return total, nil
		}
	}
}

// TunnelN forwards exactly n bytes to dst. If the buffer currently holds
// more than n bytes of leftover data, only n are written and the remainder
// stays buffered between cursor and available, where the next ReadLine or
// ReadBinary picks it up.
func (s *Socket) TunnelN(dst *Socket, n int64) error {
	_, err := s.tunnelN(socketDest{dst}, n)
	return err
}

// TunnelNToHandler is TunnelN's handler-delivery variant.
func (s *Socket) TunnelNToHandler(h PacketHandler, n int64) error {
	_, err := s.tunnelN(handlerDest{h}, n)
	if err != nil {
		return err
	}
	return h(nil)
}

func (s *Socket) tunnelN(d dest, n int64) (int64, error) {
	var total int64
	buf := make([]byte, 32*1024)
	for total < n {
		want := n - total
		if want > int64(len(buf)) {
			want = int64(len(buf))
		}
		r, err := s.ReadBinary(buf[:want])
		if r > 0 {
			if werr := d.forward(buf[:r]); werr != nil {
				return total, werr
			}
			total += int64(r)
		}
		if err != nil {
			return total, err
		}
		if r == 0 {
			return total, perror.NewIOBroken("tunnel_n", io.ErrUnexpectedEOF)
		}
	}
	return total, nil
}

// TunnelChunked relays an HTTP/1.1 chunked body (RFC 7230 §4.1): for each
// chunk, the size line (chunk extensions after ';' are forwarded verbatim
// but not interpreted), the chunk data, and its trailing CRLF; on the
// terminal zero-size chunk, the trailer lines up to the blank line.
func (s *Socket) TunnelChunked(dst *Socket) error {
	return s.tunnelChunked(socketDest{dst})
}

// TunnelChunkedToHandler is TunnelChunked's handler-delivery variant.
func (s *Socket) TunnelChunkedToHandler(h PacketHandler) error {
	err := s.tunnelChunked(handlerDest{h})
	if err != nil {
		return err
	}
	return h(nil)
}

func (s *Socket) tunnelChunked(d dest) error {
	for {
		line, err := s.ReadLine()
		if err != nil {
			return err
		}
		if line == "" {
			return perror.NewProtocolBroken("tunnel_chunked", "empty chunk size line")
		}
		sizeText := strings.TrimSpace(strings.SplitN(line, ";", 2)[0])
		size, err := strconv.ParseInt(sizeText, 16, 64)
		if err != nil || size < 0 {
			return perror.NewProtocolBroken("tunnel_chunked", "invalid chunk size: "+line)
		}
		if sockDst, ok := d.(socketDest); ok {
			if werr := sockDst.s.WriteLine(line); werr != nil {
				return werr
			}
		}
		if size == 0 {
			return s.tunnelChunkedTrailers(d)
		}
		if err := s.tunnelChunkData(d, size); err != nil {
			return err
		}
		crlf, err := s.ReadLine()
		if err != nil {
			return err
		}
		if crlf != "" {
			return perror.NewProtocolBroken("tunnel_chunked", "malformed chunk terminator")
		}
		if sockDst, ok := d.(socketDest); ok {
			if werr := sockDst.s.WriteLine(""); werr != nil {
				return werr
			}
		}
	}
}

func (s *Socket) tunnelChunkData(d dest, size int64) error {
	buf := make([]byte, 32*1024)
	var got int64
	for got < size {
		want := size - got
		if want > int64(len(buf)) {
			want = int64(len(buf))
		}
		n, err := s.ReadBinary(buf[:want])
		if n > 0 {
			if werr := d.forward(buf[:n]); werr != nil {
				return werr
			}
			got += int64(n)
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return perror.NewIOBroken("tunnel_chunked", io.ErrUnexpectedEOF)
		}
	}
	return nil
}

func (s *Socket) tunnelChunkedTrailers(d dest) error {
	sockDst, isSocket := d.(socketDest)
	for {
		line, err := s.ReadLine()
		if err != nil {
			return err
		}
		if isSocket {
			if werr := sockDst.s.WriteLine(line); werr != nil {
				return werr
			}
		}
		if line == "" {
			return nil
		}
	}
}
