package timing

import (
	"testing"
	"time"
)

func TestGetMetricsZeroValueWhenUnmarked(t *testing.T) {
	tm := NewTimer()
	m := tm.GetMetrics()
	if m.TCPConnect != 0 {
		t.Fatalf("expected zero TCPConnect when StartTCP/EndTCP never called, got %v", m.TCPConnect)
	}
	if m.TTFB != 0 {
		t.Fatalf("expected zero TTFB when StartTTFB/EndTTFB never called, got %v", m.TTFB)
	}
	if m.TotalTime <= 0 {
		t.Fatal("expected a positive total time")
	}
}

func TestGetMetricsComputesMarkedDurations(t *testing.T) {
	tm := NewTimer()

	tm.StartTCP()
	time.Sleep(2 * time.Millisecond)
	tm.EndTCP()

	tm.StartTTFB()
	time.Sleep(2 * time.Millisecond)
	tm.EndTTFB()

	m := tm.GetMetrics()
	if m.TCPConnect <= 0 {
		t.Fatalf("expected a positive TCPConnect, got %v", m.TCPConnect)
	}
	if m.TTFB <= 0 {
		t.Fatalf("expected a positive TTFB, got %v", m.TTFB)
	}
	if m.TotalTime < m.TCPConnect {
		t.Fatalf("expected TotalTime (%v) >= TCPConnect (%v)", m.TotalTime, m.TCPConnect)
	}
}

func TestMetricsString(t *testing.T) {
	m := Metrics{TCPConnect: time.Millisecond, TTFB: 2 * time.Millisecond, TotalTime: 3 * time.Millisecond}
	s := m.String()
	if s == "" {
		t.Fatal("expected a non-empty string representation")
	}
}
