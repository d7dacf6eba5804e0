package pipeline

import (
	"context"

	"github.com/proxycore/httprelay/pkg/constants"
	"github.com/proxycore/httprelay/pkg/perror"
	"github.com/proxycore/httprelay/pkg/socket"
)

// IsBenignIdleClose reports whether err is the class of failure read_request
// treats as a benign idle close rather than something to log and abort:
// IO_BROKEN or an OS-level socket error seen on the very first read of a new
// request (spec.md §7).
func IsBenignIdleClose(err error) bool {
	return perror.IsBenignFirstRead(err)
}

// ReadRequest parses the request line and headers from BP, resolves the
// destination for non-CONNECT methods, and classifies the request body
// framing. It is the head of every pipeline iteration.
func ReadRequest(ctx context.Context, p *Pipeline, s *State) error {
	rl, err := p.BP.ReadRequestLine()
	if err != nil {
		return err
	}
	s.RequestLine = rl

	hdrs, err := p.BP.ReadHeaderBlock()
	if err != nil {
		return err
	}
	s.RequestHdrs = hdrs

	s.NextStep = SendRequest
	if err := p.Hooks.OnReceiveRequest(p, s); err != nil {
		return err
	}
	if s.NextStep == nil {
		return nil
	}

	if s.RequestLine.Method == "CONNECT" {
		s.NextStep = connectTunnel
		return nil
	}

	if err := resolveDestination(s, p.Relay); err != nil {
		return err
	}
	s.Timer.StartTCP()
	if _, err := p.Upstream.Connect(ctx, s.Host, s.Port, false); err != nil {
		return err
	}
	s.Timer.EndTCP()

	te := s.RequestHdrs.TransferEncoding()
	switch {
	case containsToken(te, "chunked"):
		s.RequestChunked = true
		s.RequestHasBody = true
	case len(te) > 0:
		return perror.NewProtocolBroken("read_request", "Transfer-Encoding present without chunked")
	default:
		if n, ok := s.RequestHdrs.ContentLength(); ok && n > 0 {
			s.RequestHasBody = true
			s.RequestBodyLength = n
		}
	}

	applyProxyConnection(s, p.Relay != nil)

	return nil
}

// applyProxyConnection reads Proxy-Connection: close/keep-alive forces
// PersistBP accordingly; the header is stripped unless a relay is
// configured (spec.md §4.E step 1).
func applyProxyConnection(s *State, relayConfigured bool) {
	tokens := s.RequestHdrs.ProxyConnection()
	if containsToken(tokens, "close") {
		s.PersistBP = false
		s.UseDefaultPersistBP = false
	} else if containsToken(tokens, "keep-alive") {
		s.PersistBP = true
		s.UseDefaultPersistBP = false
	}
	if !relayConfigured {
		s.RequestHdrs.Remove("Proxy-Connection")
	}
}

func containsToken(tokens []string, want string) bool {
	for _, t := range tokens {
		if t == want {
			return true
		}
	}
	return false
}

// SendRequest emits the request line, headers, and body (if any) to PS.
func SendRequest(ctx context.Context, p *Pipeline, s *State) error {
	ps := p.Upstream.Socket()
	if err := ps.WriteLine(s.RequestLine.String()); err != nil {
		return err
	}
	if err := ps.WriteBytes([]byte(s.RequestHdrs.Serialize())); err != nil {
		return err
	}
	if s.RequestHasBody {
		switch {
		case s.RequestChunked:
			if err := p.BP.TunnelChunked(ps); err != nil {
				return err
			}
		default:
			if err := p.BP.TunnelN(ps, s.RequestBodyLength); err != nil {
				return err
			}
		}
	}
	s.Timer.StartTTFB()
	s.NextStep = ReadResponse
	return nil
}

// ReadResponse parses the status line and headers from PS and computes
// PersistPS from the response Connection header (spec.md §4.E step 3).
func ReadResponse(ctx context.Context, p *Pipeline, s *State) error {
	ps := p.Upstream.Socket()
	sl, err := ps.ReadStatusLine()
	s.Timer.EndTTFB()
	if err != nil {
		return err
	}
	s.StatusLine = sl

	hdrs, err := ps.ReadHeaderBlock()
	if err != nil {
		return err
	}
	s.ResponseHdrs = hdrs

	persistent := sl.ProtocolVersion != "1.0"
	tokens := hdrs.Connection()
	if containsToken(tokens, "close") {
		persistent = false
	} else if containsToken(tokens, "keep-alive") {
		persistent = true
	}
	s.PersistPS = persistent
	if !persistent {
		s.PersistBP = false
	}
	ps.SetPersistent(persistent)

	s.NextStep = SendResponse
	if err := p.Hooks.OnReceiveResponse(p, s); err != nil {
		return err
	}
	return nil
}

// SendResponse picks the response-body framing (spec.md §4.E step 4 / §4.F)
// and relays status, headers, and body to BP (or to the installed per-packet
// handler), then closes PS if it isn't persistent.
func SendResponse(ctx context.Context, p *Pipeline, s *State) error {
	if err := p.BP.WriteLine(s.StatusLine.String()); err != nil {
		return err
	}

	ps := p.Upstream.Socket()
	noBody := s.StatusLine.StatusCode/100 == 1 ||
		s.StatusLine.StatusCode == 204 ||
		s.StatusLine.StatusCode == 304 ||
		s.RequestLine.Method == "HEAD"

	te := s.ResponseHdrs.TransferEncoding()
	length, hasLength := s.ResponseHdrs.ContentLength()

	var err error
	switch {
	case noBody:
		err = p.BP.WriteBytes([]byte(s.ResponseHdrs.Serialize()))
	case containsToken(te, "chunked"):
		if err = p.BP.WriteBytes([]byte(s.ResponseHdrs.Serialize())); err == nil {
			err = relayChunked(ps, p.BP, s.ResponseHandler)
		}
	case hasLength && length == 0:
		err = p.BP.WriteBytes([]byte(s.ResponseHdrs.Serialize()))
	case hasLength:
		if err = p.BP.WriteBytes([]byte(s.ResponseHdrs.Serialize())); err == nil {
			err = relayFixed(ps, p.BP, length, s.ResponseHandler)
		}
	case len(te) == 0:
		err = sendOpportunisticBody(ps, p.BP, s)
	default:
		if err = p.BP.WriteBytes([]byte(s.ResponseHdrs.Serialize())); err == nil {
			err = relayUntilClose(ps, p.BP, s.ResponseHandler)
		}
	}
	if err != nil {
		return err
	}

	s.NextStep = nil
	return ClosePSUnlessPersistent(p, s)
}

// ClosePSUnlessPersistent closes the upstream connection unless the response
// just read marked it persistent. SendResponse calls this after relaying a
// response itself; a hook that takes over response framing (clearing
// NextStep so SendResponse never runs) must call it too, or a non-persistent
// PS socket is never closed (spec.md §4.E step 5 / §5's resource-ownership
// invariant).
func ClosePSUnlessPersistent(p *Pipeline, s *State) error {
	if !s.PersistPS {
		return p.Upstream.Close()
	}
	return nil
}

// relayChunked, relayFixed, and relayUntilClose each dispatch to ps's
// handler-delivery tunnel variant when a per-packet handler is installed,
// and to the socket-delivery variant (forwarding straight to bp) otherwise.

func relayChunked(ps, bp *socket.Socket, h socket.PacketHandler) error {
	if h != nil {
		return ps.TunnelChunkedToHandler(h)
	}
	return ps.TunnelChunked(bp)
}

func relayFixed(ps, bp *socket.Socket, n int64, h socket.PacketHandler) error {
	if h != nil {
		return ps.TunnelNToHandler(h, n)
	}
	return ps.TunnelN(bp, n)
}

func relayUntilClose(ps, bp *socket.Socket, h socket.PacketHandler) error {
	if h != nil {
		_, err := ps.TunnelUntilCloseToHandler(h)
		return err
	}
	_, err := ps.TunnelUntilClose(bp)
	return err
}

// sendOpportunisticBody implements spec.md §4.E step 4's fallback: neither
// Content-Length nor Transfer-Encoding were given, so the proxy reads up to
// OpportunisticBodyPeek bytes, synthesizes a Content-Length, and emits
// headers followed by exactly that buffer.
func sendOpportunisticBody(ps, bp *socket.Socket, s *State) error {
	buf := make([]byte, constants.OpportunisticBodyPeek)
	n, _ := ps.ReadBinary(buf)
	s.ResponseHdrs.SetContentLength(int64(n))
	if err := bp.WriteBytes([]byte(s.ResponseHdrs.Serialize())); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	if s.ResponseHandler != nil {
		if err := s.ResponseHandler(buf[:n]); err != nil {
			return err
		}
		return s.ResponseHandler(nil)
	}
	return bp.WriteBytes(buf[:n])
}
