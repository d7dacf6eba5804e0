package acceptor

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/proxycore/httprelay/pkg/constants"
)

type fakeHandler struct {
	mu   sync.Mutex
	dead bool
	ran  chan struct{}
}

func newFakeHandler() *fakeHandler {
	return &fakeHandler{ran: make(chan struct{})}
}

func (h *fakeHandler) Run(ctx context.Context) {
	close(h.ran)
	<-ctx.Done()
	h.mu.Lock()
	h.dead = true
	h.mu.Unlock()
}

func (h *fakeHandler) IsDead() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dead
}

func TestServeRegistersAndRunsHandler(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	h := newFakeHandler()
	factory := func(conn net.Conn) (Handler, bool) { return h, true }

	l := New(ln, factory, nil, 0)
	ctx, cancel := context.WithCancel(context.Background())
	serveDone := make(chan struct{})
	go func() { l.Serve(ctx); close(serveDone) }()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	select {
	case <-h.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("handler never ran")
	}

	deadline := time.Now().Add(time.Second)
	for l.Count() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("expected 1 registered handler, got %d", l.Count())
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	select {
	case <-serveDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after context cancel")
	}
}

func TestFactoryRejectionClosesConnection(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	factory := func(conn net.Conn) (Handler, bool) { return nil, false }
	l := New(ln, factory, nil, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Serve(ctx)

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1)
	if _, err := conn.Read(buf); err == nil {
		t.Fatal("expected connection to be closed by a rejecting factory")
	}

	if got := l.Count(); got != 0 {
		t.Fatalf("expected no registered handlers, got %d", got)
	}
}

func TestSweepEvictsDeadHandlers(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	l := New(ln, func(conn net.Conn) (Handler, bool) { return nil, false }, nil, 0)

	h := newFakeHandler()
	h.dead = true
	l.handlers.Store("fake-id", h)
	l.count = 1

	l.sweep()

	if got := l.Count(); got != 0 {
		t.Fatalf("expected sweep to evict dead handler, count = %d", got)
	}
}

func TestNewDefaultsNonPositiveSweepInterval(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	l := New(ln, func(conn net.Conn) (Handler, bool) { return nil, false }, nil, 0)
	if l.sweepInterval != constants.SweepInterval {
		t.Fatalf("expected a non-positive sweepInterval to default to constants.SweepInterval, got %v", l.sweepInterval)
	}
}

func TestServeHonorsConfiguredSweepInterval(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	l := New(ln, func(conn net.Conn) (Handler, bool) { return nil, false }, nil, 10*time.Millisecond)

	h := newFakeHandler()
	h.dead = true
	l.handlers.Store("fake-id", h)
	l.count = 1

	ctx, cancel := context.WithCancel(context.Background())
	serveDone := make(chan struct{})
	go func() { l.Serve(ctx); close(serveDone) }()

	deadline := time.Now().Add(2 * time.Second)
	for l.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected the configured sweep interval to evict the dead handler, count = %d", l.Count())
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	select {
	case <-serveDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after context cancel")
	}
}
