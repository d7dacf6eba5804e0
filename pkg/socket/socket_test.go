package socket

import (
	"io"
	"net"
	"strings"
	"testing"
	"time"
)

func pipePair(t *testing.T) (*Socket, net.Conn) {
	t.Helper()
	a, b := net.Pipe()
	return New(a), b
}

func TestReadLineCRLF(t *testing.T) {
	s, peer := pipePair(t)
	defer peer.Close()
	go peer.Write([]byte("GET / HTTP/1.1\r\n"))
	line, err := s.ReadLine()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if line != "GET / HTTP/1.1" {
		t.Fatalf("ReadLine() = %q", line)
	}
}

func TestReadLineBareLF(t *testing.T) {
	s, peer := pipePair(t)
	defer peer.Close()
	go peer.Write([]byte("a line\n"))
	line, err := s.ReadLine()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if line != "a line" {
		t.Fatalf("ReadLine() = %q", line)
	}
}

func TestReadLineThenReadBinaryReclaimsLeftover(t *testing.T) {
	s, peer := pipePair(t)
	defer peer.Close()
	go peer.Write([]byte("first-line\r\nBODYBYTES"))

	line, err := s.ReadLine()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if line != "first-line" {
		t.Fatalf("ReadLine() = %q", line)
	}

	buf := make([]byte, 64)
	n, err := s.ReadBinary(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(buf[:n]) != "BODYBYTES" {
		t.Fatalf("ReadBinary() = %q", buf[:n])
	}
}

func TestTunnelNRespectsLeftover(t *testing.T) {
	bp, bpPeer := pipePair(t)
	defer bpPeer.Close()
	ps, psPeer := pipePair(t)
	defer psPeer.Close()

	go bpPeer.Write([]byte("line\r\nHELLOWORLD"))

	if _, err := bp.ReadLine(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- bp.TunnelN(ps, 5) }()

	received := make([]byte, 5)
	go psPeer.Read(received)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("TunnelN error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for TunnelN")
	}
}

func TestSendHTTPError(t *testing.T) {
	s, peer := pipePair(t)
	defer peer.Close()

	done := make(chan error, 1)
	go func() {
		done <- s.SendHTTPError(403, "Forbidden")
		s.Close()
	}()

	peer.SetReadDeadline(time.Now().Add(2 * time.Second))
	data, err := io.ReadAll(peer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := string(data)
	if !strings.Contains(got, "403 Forbidden") || !strings.Contains(got, "Connection: close") {
		t.Fatalf("unexpected error response: %q", got)
	}
	if err := <-done; err != nil {
		t.Fatalf("SendHTTPError error: %v", err)
	}
}
