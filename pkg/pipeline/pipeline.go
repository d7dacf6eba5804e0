package pipeline

import (
	"context"
	"strings"

	"github.com/proxycore/httprelay/pkg/destination"
	"github.com/proxycore/httprelay/pkg/logging"
	"github.com/proxycore/httprelay/pkg/socket"
	"github.com/proxycore/httprelay/pkg/tunnel"
	"github.com/proxycore/httprelay/pkg/upstream"
)

// Step is one pipeline continuation. A nil NextStep after a step runs stops
// the engine for this request.
type Step func(ctx context.Context, p *Pipeline, s *State) error

// Pipeline is the per-connection engine: it owns the BP socket for the
// connection's lifetime and the upstream manager (and therefore the PS
// socket) for as long as a destination is held.
type Pipeline struct {
	BP       *socket.Socket
	Upstream *upstream.Manager
	Relay    *upstream.Relay
	Hooks    Hooks
	Log      logging.Logger
}

// New returns a Pipeline ready to run against a freshly accepted BP socket.
func New(bp *socket.Socket, relay *upstream.Relay, hooks Hooks, log logging.Logger) *Pipeline {
	if hooks == nil {
		hooks = DefaultHooks{}
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &Pipeline{
		BP:       bp,
		Upstream: upstream.NewManager(relay),
		Relay:    relay,
		Hooks:    hooks,
		Log:      log,
	}
}

// Run executes pipeline iterations against BP until a request leaves
// PersistBP false, or a connection-fatal error occurs. It is the outer
// server loop spec.md §4.E describes: "re-invokes the pipeline iff
// persist_bp remained true."
func (p *Pipeline) Run(ctx context.Context) {
	for {
		s := NewState()
		p.runOne(ctx, s)
		if !s.PersistBP || p.BP.IsDead() {
			p.Upstream.Close()
			p.BP.Close()
			return
		}
	}
}

// runOne drives one request through the continuation chain starting at
// ReadRequest, catching any step error with Abort.
func (p *Pipeline) runOne(ctx context.Context, s *State) {
	s.NextStep = ReadRequest
	for s.NextStep != nil {
		step := s.NextStep
		s.NextStep = nil
		if err := step(ctx, p, s); err != nil {
			if IsBenignIdleClose(err) && s.StatusLine.StatusCode == 0 && s.RequestLine.Method == "" {
				s.PersistBP = false
				return
			}
			p.Log.WithError(err).Error("pipeline step failed")
			Abort(p, s)
			return
		}
	}
}

// Abort closes PS, forces the connection to end, and clears NextStep — the
// spec's abort_request.
func Abort(p *Pipeline, s *State) {
	p.Upstream.Close()
	s.PersistBP = false
	s.NextStep = nil
}

// ChangeRequestURI lets an extension rewrite the request target mid-pipeline.
// If the new URI carries an authority (scheme://host[:port]/...), the Host
// header is updated to match, per spec.md §4.x. It reports no error: it does
// not check that a request line has been read, and it dereferences
// s.RequestHdrs whenever the new URI carries an authority.
func ChangeRequestURI(s *State, newURI string) {
	s.RequestLine.URI = newURI
	if idx := strings.Index(newURI, "://"); idx >= 0 {
		rest := newURI[idx+3:]
		authority := rest
		if slash := strings.IndexByte(rest, '/'); slash >= 0 {
			authority = rest[:slash]
		}
		if authority != "" {
			s.RequestHdrs.Set("Host", authority)
		}
	}
}

// resolveDestination is a small wrapper around pkg/destination.Resolve that
// also rewrites s.RequestLine.URI when appropriate.
func resolveDestination(s *State, relay *upstream.Relay) error {
	host, port, rewrittenURI, err := destination.Resolve(s.RequestLine.Method, s.RequestLine.URI, s.RequestHdrs, relay)
	if err != nil {
		return err
	}
	s.Host = host
	s.Port = port
	s.RequestLine.URI = rewrittenURI
	return nil
}

// connectTunnel runs the CONNECT handshake and byte pump, consuming the
// connection: persistence afterward is irrelevant (spec.md §4.G).
func connectTunnel(ctx context.Context, p *Pipeline, s *State) error {
	if err := resolveDestination(s, p.Relay); err != nil {
		return err
	}
	s.Timer.StartTCP()
	psSock, err := p.Upstream.Connect(ctx, s.Host, s.Port, true)
	if err != nil {
		return err
	}
	s.Timer.EndTCP()
	if err := p.BP.WriteLine("HTTP/" + s.RequestLine.ProtocolVersion + " 200 Connection established"); err != nil {
		return err
	}
	if err := p.BP.WriteLine(""); err != nil {
		return err
	}
	p.Log.WithField("host", s.Host).WithField("port", s.Port).Debug("CONNECT tunnel open")
	err = tunnel.Pump(ctx, p.BP.Conn(), psSock.Conn())
	p.Log.WithField("host", s.Host).Debug("CONNECT tunnel closed")
	s.PersistBP = false
	s.NextStep = nil
	return err
}
