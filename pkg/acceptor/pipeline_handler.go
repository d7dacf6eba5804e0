package acceptor

import (
	"context"
	"net"
	"time"

	"github.com/proxycore/httprelay/pkg/logging"
	"github.com/proxycore/httprelay/pkg/pipeline"
	"github.com/proxycore/httprelay/pkg/socket"
	"github.com/proxycore/httprelay/pkg/upstream"
)

// pipelineHandler adapts a pipeline.Pipeline to the acceptor.Handler
// interface so Listener can run and sweep it like any other connection.
type pipelineHandler struct {
	bp *socket.Socket
	pl *pipeline.Pipeline
}

func (h *pipelineHandler) Run(ctx context.Context) { h.pl.Run(ctx) }
func (h *pipelineHandler) IsDead() bool             { return h.bp.IsDead() }

// NewPipelineFactory returns a Factory that wraps every accepted
// connection's BP socket in a pipeline.Pipeline configured with relay,
// hooks, and log, the composition cmd/forwardproxy wires into Listener.
// A non-zero dialTimeout overrides the upstream manager's default.
func NewPipelineFactory(relay *upstream.Relay, hooks pipeline.Hooks, log logging.Logger, dialTimeout time.Duration) Factory {
	return func(conn net.Conn) (Handler, bool) {
		bp := socket.New(conn)
		pl := pipeline.New(bp, relay, hooks, log)
		if dialTimeout > 0 {
			pl.Upstream.SetTimeout(dialTimeout)
		}
		return &pipelineHandler{bp: bp, pl: pl}, true
	}
}
