// Package rewrite demonstrates a body-materializing extension: it buffers
// a gzip-encoded response body, transforms the decoded bytes, and emits
// the rewritten response itself rather than letting the pipeline relay it
// byte-for-byte (spec.md §8 scenario S7).
package rewrite

import (
	"bytes"
	"io"

	"github.com/proxycore/httprelay/pkg/contentcoding"
	"github.com/proxycore/httprelay/pkg/pipeline"
	"github.com/proxycore/httprelay/pkg/spill"
)

// Transform maps decoded response bytes to new decoded bytes. The default
// used by New is bytes.ToUpper.
type Transform func([]byte) []byte

// Hooks buffers a gzip-encoded response body, applies Fn to the decoded
// bytes, re-encodes, and writes the whole response to BP itself.
type Hooks struct {
	Fn Transform

	// MemLimit caps how much of a buffered body is kept in memory before
	// spilling to disk (pkg/spill); 0 uses that package's own default.
	MemLimit int64
}

// New returns a Hooks applying fn, or bytes.ToUpper if fn is nil.
func New(fn Transform) *Hooks {
	if fn == nil {
		fn = bytes.ToUpper
	}
	return &Hooks{Fn: fn}
}

func (h *Hooks) OnReceiveRequest(p *pipeline.Pipeline, s *pipeline.State) error {
	return nil
}

// OnReceiveResponse only takes over materializable bodies (chunked or
// fixed-length gzip); anything else is left for SendResponse to relay as
// usual.
func (h *Hooks) OnReceiveResponse(p *pipeline.Pipeline, s *pipeline.State) error {
	if s.ResponseHdrs.ContentEncoding() != "gzip" {
		return nil
	}

	chunked := containsToken(s.ResponseHdrs.TransferEncoding(), "chunked")
	length, hasLength := s.ResponseHdrs.ContentLength()
	if !chunked && (!hasLength || length == 0) {
		return nil
	}

	buf := spill.New(h.MemLimit)
	defer buf.Close()
	s.ResponseHandler = func(chunk []byte) error {
		if chunk == nil {
			return nil
		}
		_, err := buf.Write(chunk)
		return err
	}

	ps := p.Upstream.Socket()
	var err error
	if chunked {
		err = ps.TunnelChunkedToHandler(s.ResponseHandler)
	} else {
		err = ps.TunnelNToHandler(s.ResponseHandler, length)
	}
	if err != nil {
		return err
	}

	reader, err := buf.Reader()
	if err != nil {
		return err
	}
	raw, err := io.ReadAll(reader)
	reader.Close()
	if err != nil {
		return err
	}

	decoded, err := contentcoding.Decode("gzip", raw)
	if err != nil {
		return err
	}
	transformed := h.Fn(decoded)
	encoded, err := contentcoding.Encode("gzip", transformed)
	if err != nil {
		return err
	}

	s.ResponseHdrs.SetContentLength(int64(len(encoded)))
	s.ResponseHdrs.Remove("Transfer-Encoding")

	if err := p.BP.WriteLine(s.StatusLine.String()); err != nil {
		return err
	}
	if err := p.BP.WriteBytes([]byte(s.ResponseHdrs.Serialize())); err != nil {
		return err
	}
	if len(encoded) > 0 {
		if err := p.BP.WriteBytes(encoded); err != nil {
			return err
		}
	}

	s.ResponseHandler = nil
	if err := pipeline.ClosePSUnlessPersistent(p, s); err != nil {
		return err
	}
	s.NextStep = nil
	return nil
}

func containsToken(tokens []string, want string) bool {
	for _, t := range tokens {
		if t == want {
			return true
		}
	}
	return false
}
