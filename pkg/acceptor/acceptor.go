// Package acceptor implements the TCP acceptor contract: accept a
// connection, hand it to a host-supplied factory, run the resulting
// handler to completion in its own goroutine, and track live handlers in
// a registry that a background sweeper periodically cleans.
package acceptor

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/proxycore/httprelay/pkg/constants"
	"github.com/proxycore/httprelay/pkg/logging"
)

// Handler is run to completion for one accepted connection. IsDead reports
// whether the handler's connection has already ended, for the sweeper.
type Handler interface {
	Run(ctx context.Context)
	IsDead() bool
}

// Factory turns an accepted net.Conn into a Handler. Returning false closes
// the connection immediately without ever registering or running it.
type Factory func(conn net.Conn) (Handler, bool)

// Listener owns one net.Listener and the registry of in-flight handlers it
// produces.
type Listener struct {
	ln            net.Listener
	factory       Factory
	log           logging.Logger
	sweepInterval time.Duration

	mu       sync.Mutex // guards count and the sweep pass below
	handlers sync.Map   // map[string]Handler, keyed by a uuid connection id
	count    int
}

// New wraps an already-bound net.Listener. The caller chooses the address
// family and bind address (spec.md's loopback-only scenario becomes one
// possible choice of ln, not a constraint this package enforces). A
// non-positive sweepInterval falls back to constants.SweepInterval.
func New(ln net.Listener, factory Factory, log logging.Logger, sweepInterval time.Duration) *Listener {
	if log == nil {
		log = logging.NewNop()
	}
	if sweepInterval <= 0 {
		sweepInterval = constants.SweepInterval
	}
	return &Listener{ln: ln, factory: factory, log: log, sweepInterval: sweepInterval}
}

// Serve accepts connections until ctx is cancelled or the listener errors,
// running a sweeper goroutine alongside that evicts dead registry entries
// every sweepInterval.
func (l *Listener) Serve(ctx context.Context) error {
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		l.sweepLoop(ctx)
	}()

	go func() {
		<-ctx.Done()
		l.ln.Close()
	}()

	defer func() {
		<-sweepDone
	}()

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		l.accept(ctx, conn)
	}
}

func (l *Listener) accept(ctx context.Context, conn net.Conn) {
	handler, ok := l.factory(conn)
	if !ok {
		conn.Close()
		return
	}

	id := uuid.New().String()
	l.mu.Lock()
	l.handlers.Store(id, handler)
	l.count++
	l.mu.Unlock()

	go func() {
		defer func() {
			l.mu.Lock()
			if _, existed := l.handlers.LoadAndDelete(id); existed {
				l.count--
			}
			l.mu.Unlock()
		}()
		handler.Run(ctx)
	}()
}

// Count returns the number of handlers currently registered as live.
func (l *Listener) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

func (l *Listener) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(l.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-ctx.Done():
			return
		}
	}
}

// sweep walks the registry once, evicting any handler that already
// reports itself dead (grounded on transport.go's cleanupIdleConnections).
func (l *Listener) sweep() {
	evicted := 0
	l.handlers.Range(func(key, value interface{}) bool {
		h := value.(Handler)
		if h.IsDead() {
			l.mu.Lock()
			if _, existed := l.handlers.LoadAndDelete(key); existed {
				l.count--
			}
			l.mu.Unlock()
			evicted++
		}
		return true
	})
	if evicted > 0 {
		l.log.WithField("evicted", evicted).Debug("sweeper evicted dead connections")
	}
}
