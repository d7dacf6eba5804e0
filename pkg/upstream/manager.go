// Package upstream implements the PS-side connection manager: it holds at
// most one live connection to a destination (origin or relay proxy) per
// handler, reusing it across persistent requests and replacing it when the
// destination changes.
package upstream

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/proxycore/httprelay/pkg/constants"
	"github.com/proxycore/httprelay/pkg/perror"
	"github.com/proxycore/httprelay/pkg/socket"
	"github.com/proxycore/httprelay/pkg/tlsconfig"
	netproxy "golang.org/x/net/proxy"
)

// Manager owns the PS socket for one handler. It is not safe for concurrent
// use: a handler processes one request at a time against one PS connection.
type Manager struct {
	relay *Relay

	sock *socket.Socket
	host string
	port int

	resolver *net.Resolver
	timeout  time.Duration
}

// NewManager returns a Manager. A nil relay means every Connect dials the
// origin directly; otherwise every Connect dials through the relay.
func NewManager(relay *Relay) *Manager {
	return &Manager{relay: relay, resolver: net.DefaultResolver, timeout: constants.DefaultDialTimeout}
}

// Socket returns the current PS socket, or nil if none is connected.
func (m *Manager) Socket() *socket.Socket { return m.sock }

// SetTimeout overrides the dial timeout applied to new connections; it has
// no effect on a connection already established.
func (m *Manager) SetTimeout(d time.Duration) { m.timeout = d }

// Close closes the current PS socket, if any.
func (m *Manager) Close() error {
	if m.sock == nil {
		return nil
	}
	err := m.sock.Close()
	m.sock = nil
	return err
}

// Connect returns a PS socket connected toward (host, port): the existing
// one if already bound to that destination and still alive, otherwise a
// freshly dialed one (replacing any existing connection). isConnectRequest
// tells Connect whether the in-flight pipeline request is itself a CONNECT,
// which controls whether an HTTP(S) relay is asked to CONNECT or whether the
// request should instead be written to the relay in absolute-URI form by the
// caller (see pkg/destination's URI-rewrite behavior for that second case).
func (m *Manager) Connect(ctx context.Context, host string, port int, isConnectRequest bool) (*socket.Socket, error) {
	if m.sock != nil && m.host == host && m.port == port && !m.sock.IsDead() {
		return m.sock, nil
	}
	m.Close()

	var conn net.Conn
	var err error
	switch {
	case m.relay == nil:
		conn, err = m.dialOrigin(ctx, host, port)
	case m.relay.Type == "socks5":
		conn, err = m.dialSOCKS5(ctx, host, port)
	case isConnectRequest:
		conn, err = m.dialHTTPRelayConnect(ctx, host, port)
	default:
		conn, err = m.dialRelayTCP(ctx)
	}
	if err != nil {
		return nil, err
	}

	m.sock = socket.New(conn)
	m.host = host
	m.port = port
	return m.sock, nil
}

// dialOrigin resolves host to a list of IP addresses and dials each in
// order, silently skipping a failed ::1 attempt so a following IPv4 attempt
// can succeed quietly (spec.md §4.D / §7).
func (m *Manager) dialOrigin(ctx context.Context, host string, port int) (net.Conn, error) {
	lookupCtx := ctx
	if m.timeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	addrs, err := m.resolver.LookupIPAddr(lookupCtx, host)
	if err != nil {
		return nil, perror.NewDNSError(host, err)
	}
	if len(addrs) == 0 {
		return nil, perror.NewDNSError(host, fmt.Errorf("no addresses found"))
	}

	dialer := &net.Dialer{Timeout: m.timeout}
	var firstErr error
	for _, addr := range addrs {
		dialAddr := net.JoinHostPort(addr.IP.String(), fmt.Sprintf("%d", port))
		conn, err := dialer.DialContext(ctx, "tcp", dialAddr)
		if err == nil {
			return conn, nil
		}
		if addr.IP.String() == "::1" {
			continue
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = fmt.Errorf("all addresses failed")
	}
	return nil, perror.NewConnectionError(host, port, firstErr)
}

// dialRelayTCP connects to the relay's own (host, port), upgrading to TLS
// first when the relay type is "https". Used when the in-flight request is
// a plain relayed request that the relay will see in absolute-URI form.
func (m *Manager) dialRelayTCP(ctx context.Context) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: m.timeout}
	addr := net.JoinHostPort(m.relay.Host, fmt.Sprintf("%d", m.relay.Port))
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, perror.NewConnectionError(m.relay.Host, m.relay.Port, err)
	}
	if m.relay.Type == "https" {
		cfg := &tls.Config{ServerName: m.relay.Host}
		tlsconfig.ApplyVersionProfile(cfg, tlsconfig.ProfileSecure)
		tlsconfig.ApplyCipherSuites(cfg, tlsconfig.VersionTLS12)
		tlsConn := tls.Client(conn, cfg)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, perror.NewConnectionError(m.relay.Host, m.relay.Port, err)
		}
		return tlsConn, nil
	}
	return conn, nil
}

// dialHTTPRelayConnect dials the relay and issues an HTTP CONNECT for
// (host, port), returning the tunneled connection once the relay answers 200.
func (m *Manager) dialHTTPRelayConnect(ctx context.Context, host string, port int) (net.Conn, error) {
	conn, err := m.dialRelayTCP(ctx)
	if err != nil {
		return nil, err
	}

	target := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	var sb strings.Builder
	fmt.Fprintf(&sb, "CONNECT %s HTTP/1.1\r\nHost: %s\r\n", target, target)
	if m.relay.Username != "" {
		auth := base64.StdEncoding.EncodeToString([]byte(m.relay.Username + ":" + m.relay.Password))
		fmt.Fprintf(&sb, "Proxy-Authorization: Basic %s\r\n", auth)
	}
	sb.WriteString("\r\n")

	if _, err := conn.Write([]byte(sb.String())); err != nil {
		conn.Close()
		return nil, perror.NewConnectionError(host, port, err)
	}

	s := socket.New(conn)
	statusLine, err := s.ReadStatusLine()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if statusLine.StatusCode != 200 {
		conn.Close()
		return nil, perror.NewConnectionError(host, port, fmt.Errorf("relay CONNECT failed: %d %s", statusLine.StatusCode, statusLine.Reason))
	}
	if _, err := s.ReadHeaderBlock(); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// dialSOCKS5 connects to host:port through the configured SOCKS5 relay
// using golang.org/x/net/proxy, the same library the teacher relies on for
// SOCKS5 dialing.
func (m *Manager) dialSOCKS5(ctx context.Context, host string, port int) (net.Conn, error) {
	var auth *netproxy.Auth
	if m.relay.Username != "" {
		auth = &netproxy.Auth{User: m.relay.Username, Password: m.relay.Password}
	}
	proxyAddr := net.JoinHostPort(m.relay.Host, fmt.Sprintf("%d", m.relay.Port))
	dialer, err := netproxy.SOCKS5("tcp", proxyAddr, auth, &net.Dialer{Timeout: m.timeout})
	if err != nil {
		return nil, perror.NewConnectionError(m.relay.Host, m.relay.Port, err)
	}
	ctxDialer, ok := dialer.(netproxy.ContextDialer)
	target := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	var conn net.Conn
	if ok {
		conn, err = ctxDialer.DialContext(ctx, "tcp", target)
	} else {
		conn, err = dialer.Dial("tcp", target)
	}
	if err != nil {
		return nil, perror.NewConnectionError(host, port, err)
	}
	return conn, nil
}
