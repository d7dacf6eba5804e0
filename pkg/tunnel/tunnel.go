// Package tunnel implements the CONNECT byte pump: once both sides of a
// tunnel are established, TLS (or anything else) running over it is opaque
// to the proxy, so relaying reduces to copying bytes in both directions
// until either side closes.
package tunnel

import (
	"context"
	"io"
	"net"
)

// Pump copies bytes between bp and ps until either side closes, then stops
// the other direction so the second pump doesn't block forever on a peer
// that will never write again. Returns once both directions have stopped.
func Pump(ctx context.Context, bp, ps net.Conn) error {
	done := make(chan struct{}, 2)

	go func() {
		io.Copy(ps, bp)
		closeWrite(ps)
		done <- struct{}{}
	}()
	go func() {
		io.Copy(bp, ps)
		closeWrite(bp)
		done <- struct{}{}
	}()

	select {
	case <-ctx.Done():
		bp.Close()
		ps.Close()
		<-done
		<-done
	case <-done:
		<-done
	}
	return nil
}

// closeWrite half-closes dst's write side if it supports it (so the peer
// sees EOF promptly), falling back to a full close otherwise.
func closeWrite(dst net.Conn) {
	type writeCloser interface {
		CloseWrite() error
	}
	if wc, ok := dst.(writeCloser); ok {
		wc.CloseWrite()
		return
	}
	dst.Close()
}
