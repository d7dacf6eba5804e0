// Package accesslog demonstrates wrapping another Hooks to observe traffic
// without altering it, logging one line per response via the pipeline's
// injected logger.
package accesslog

import "github.com/proxycore/httprelay/pkg/pipeline"

// Hooks wraps Inner, logging method/URI/status after each response Inner
// leaves intact.
type Hooks struct {
	Inner pipeline.Hooks
}

// Wrap returns an accesslog.Hooks delegating to inner (pipeline.DefaultHooks{}
// if inner is nil).
func Wrap(inner pipeline.Hooks) *Hooks {
	if inner == nil {
		inner = pipeline.DefaultHooks{}
	}
	return &Hooks{Inner: inner}
}

func (h *Hooks) OnReceiveRequest(p *pipeline.Pipeline, s *pipeline.State) error {
	return h.Inner.OnReceiveRequest(p, s)
}

func (h *Hooks) OnReceiveResponse(p *pipeline.Pipeline, s *pipeline.State) error {
	if err := h.Inner.OnReceiveResponse(p, s); err != nil {
		return err
	}
	length, _ := s.ResponseHdrs.ContentLength()
	metrics := s.Timer.GetMetrics()
	p.Log.
		WithField("method", s.RequestLine.Method).
		WithField("uri", s.RequestLine.URI).
		WithField("status", s.StatusLine.StatusCode).
		WithField("bytes", length).
		WithField("connect_ms", metrics.TCPConnect.Milliseconds()).
		WithField("ttfb_ms", metrics.TTFB.Milliseconds()).
		Info("request handled")
	return nil
}
