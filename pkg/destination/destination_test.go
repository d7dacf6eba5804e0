package destination

import (
	"testing"

	"github.com/proxycore/httprelay/pkg/header"
	"github.com/proxycore/httprelay/pkg/upstream"
)

func blockWithHost(host string) *header.Block {
	b := header.NewBlock()
	b.Set("Host", host)
	return b
}

func TestResolveAbsoluteFormNoRelayRewritesToPathOnly(t *testing.T) {
	host, port, uri, err := Resolve("GET", "http://example.com:8081/path?q=1", header.NewBlock(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if host != "example.com" || port != 8081 || uri != "/path?q=1" {
		t.Fatalf("got host=%q port=%d uri=%q", host, port, uri)
	}
}

func TestResolveAbsoluteFormWithRelayLeavesURIUntouched(t *testing.T) {
	host, port, uri, err := Resolve("GET", "http://example.com/path", header.NewBlock(), &upstream.Relay{Type: "http", Host: "relay.example.com", Port: 8080})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if host != "example.com" || port != 80 || uri != "http://example.com/path" {
		t.Fatalf("got host=%q port=%d uri=%q", host, port, uri)
	}
}

func TestResolveHTTPSDefaultsTo443(t *testing.T) {
	host, port, _, err := Resolve("GET", "https://example.com/", header.NewBlock(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if host != "example.com" || port != 443 {
		t.Fatalf("got host=%q port=%d", host, port)
	}
}

func TestResolveConnectAuthorityForm(t *testing.T) {
	host, port, uri, err := Resolve("CONNECT", "example.com:443", header.NewBlock(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if host != "example.com" || port != 443 || uri != "example.com:443" {
		t.Fatalf("got host=%q port=%d uri=%q", host, port, uri)
	}
}

func TestResolveConnectDefaultPort(t *testing.T) {
	host, port, _, err := Resolve("CONNECT", "example.com", header.NewBlock(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if host != "example.com" || port != 443 {
		t.Fatalf("got host=%q port=%d", host, port)
	}
}

func TestResolveAsteriskUsesHostHeader(t *testing.T) {
	host, port, _, err := Resolve("OPTIONS", "*", blockWithHost("example.com:8080"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if host != "example.com" || port != 8080 {
		t.Fatalf("got host=%q port=%d", host, port)
	}
}

func TestResolveAsteriskWithoutHostHeaderFails(t *testing.T) {
	if _, _, _, err := Resolve("OPTIONS", "*", header.NewBlock(), nil); err == nil {
		t.Fatal("expected error when Host header is absent")
	}
}

func TestResolveOriginFormUsesHostHeader(t *testing.T) {
	host, port, uri, err := Resolve("GET", "/index.html", blockWithHost("example.com"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if host != "example.com" || port != 80 || uri != "/index.html" {
		t.Fatalf("got host=%q port=%d uri=%q", host, port, uri)
	}
}

func TestResolveUnsupportedScheme(t *testing.T) {
	if _, _, _, err := Resolve("GET", "ftp://example.com/", header.NewBlock(), nil); err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
}

func TestResolveInvalidPort(t *testing.T) {
	if _, _, _, err := Resolve("GET", "http://example.com:notaport/", header.NewBlock(), nil); err == nil {
		t.Fatal("expected error for invalid port")
	}
}
