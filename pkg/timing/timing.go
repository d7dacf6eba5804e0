// Package timing measures per-request latency breakdowns: how long the
// upstream connect took, how long the origin took to produce a first
// response byte, and total time end to end.
package timing

import (
	"fmt"
	"time"
)

// Metrics is the calculated timing breakdown for one pipeline iteration.
type Metrics struct {
	TCPConnect time.Duration `json:"tcp_connect"`
	TTFB       time.Duration `json:"ttfb"`
	TotalTime  time.Duration `json:"total_time"`
}

// Timer accumulates the start/end marks for one in-flight request.
type Timer struct {
	start     time.Time
	tcpStart  time.Time
	tcpEnd    time.Time
	ttfbStart time.Time
	ttfbEnd   time.Time
}

// NewTimer starts a timing session at the current instant.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// StartTCP marks the beginning of the upstream connect attempt.
func (t *Timer) StartTCP() { t.tcpStart = time.Now() }

// EndTCP marks the end of the upstream connect attempt (no-op if the
// connection was reused and StartTCP was never called for this request).
func (t *Timer) EndTCP() { t.tcpEnd = time.Now() }

// StartTTFB marks the instant the request has been fully written upstream.
func (t *Timer) StartTTFB() { t.ttfbStart = time.Now() }

// EndTTFB marks the instant the response's first byte (the status line)
// has been read.
func (t *Timer) EndTTFB() { t.ttfbEnd = time.Now() }

// GetMetrics computes the breakdown as of now; call once the response has
// been fully relayed for an accurate TotalTime.
func (t *Timer) GetMetrics() Metrics {
	m := Metrics{TotalTime: time.Since(t.start)}
	if !t.tcpStart.IsZero() && !t.tcpEnd.IsZero() {
		m.TCPConnect = t.tcpEnd.Sub(t.tcpStart)
	}
	if !t.ttfbStart.IsZero() && !t.ttfbEnd.IsZero() {
		m.TTFB = t.ttfbEnd.Sub(t.ttfbStart)
	}
	return m
}

// String provides a human-readable representation of the metrics.
func (m Metrics) String() string {
	return fmt.Sprintf("TCPConnect: %v, TTFB: %v, TotalTime: %v", m.TCPConnect, m.TTFB, m.TotalTime)
}
