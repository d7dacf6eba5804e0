package upstream

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"strconv"
	"testing"
	"time"
)

func selfSignedCert(t *testing.T) tls.Certificate {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "127.0.0.1"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: priv}
}

// TestDialRelayTCPUpgradesTLSForHTTPSRelay confirms an "https" relay attempts
// a real TLS handshake (and, correctly, rejects an untrusted self-signed
// certificate rather than silently downgrading to plaintext).
func TestDialRelayTCPUpgradesTLSForHTTPSRelay(t *testing.T) {
	cert := selfSignedCert(t)
	ln, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{Certificates: []tls.Certificate{cert}})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go acceptAndDiscard(ln)

	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)

	m := NewManager(&Relay{Type: "https", Host: host, Port: port})
	m.timeout = time.Second

	_, err = m.dialRelayTCP(context.Background())
	if err == nil {
		t.Fatal("expected handshake against an untrusted self-signed certificate to fail")
	}
}

// TestDialRelayTCPPlainForHTTPRelay confirms a plain "http" relay type never
// attempts a TLS handshake.
func TestDialRelayTCPPlainForHTTPRelay(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go acceptAndDiscard(ln)

	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)

	m := NewManager(&Relay{Type: "http", Host: host, Port: port})
	m.timeout = time.Second

	conn, err := m.dialRelayTCP(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer conn.Close()

	if _, ok := conn.(*tls.Conn); ok {
		t.Fatal("expected a plain net.Conn for an http relay, not *tls.Conn")
	}
}
