package accesslog

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/proxycore/httprelay/pkg/header"
	"github.com/proxycore/httprelay/pkg/logging"
	"github.com/proxycore/httprelay/pkg/pipeline"
)

func TestOnReceiveResponseLogsAfterInner(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	var innerCalled bool
	inner := fakeHooks{onResponse: func(p *pipeline.Pipeline, s *pipeline.State) error {
		innerCalled = true
		return nil
	}}

	pl := pipeline.New(nil, nil, nil, logging.Logger(log))
	s := pipeline.NewState()
	s.RequestLine.Method = "GET"
	s.RequestLine.URI = "http://example.com/"
	s.StatusLine.StatusCode = 200
	s.ResponseHdrs = header.NewBlock()
	s.ResponseHdrs.SetContentLength(42)

	h := Wrap(inner)
	if err := h.OnReceiveResponse(pl, s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !innerCalled {
		t.Fatal("expected inner hooks to run")
	}
	if got := buf.String(); !bytes.Contains([]byte(got), []byte("request handled")) {
		t.Fatalf("expected log line, got %q", got)
	}
}

type fakeHooks struct {
	onResponse func(p *pipeline.Pipeline, s *pipeline.State) error
}

func (fakeHooks) OnReceiveRequest(p *pipeline.Pipeline, s *pipeline.State) error { return nil }
func (h fakeHooks) OnReceiveResponse(p *pipeline.Pipeline, s *pipeline.State) error {
	return h.onResponse(p, s)
}
