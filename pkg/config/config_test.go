package config

import "testing"

func TestDefaultAcceptorConfig(t *testing.T) {
	cfg := DefaultAcceptorConfig()
	if cfg.ListenAddr == "" {
		t.Fatal("expected a non-empty default listen address")
	}
	if cfg.SweepInterval <= 0 {
		t.Fatal("expected a positive default sweep interval")
	}
}

func TestDefaultPipelineConfig(t *testing.T) {
	cfg := DefaultPipelineConfig()
	if cfg.RelayURL != "" {
		t.Fatalf("expected no relay configured by default, got %q", cfg.RelayURL)
	}
	if cfg.DialTimeout <= 0 {
		t.Fatal("expected a positive default dial timeout")
	}
	if cfg.BodyMemLimit <= 0 {
		t.Fatal("expected a positive default body memory limit")
	}
}
