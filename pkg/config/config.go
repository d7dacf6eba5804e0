// Package config holds the host-facing configuration structs for the
// acceptor and pipeline: flat structs of scalar fields with documented
// defaults, the same shape as the teacher's client.Options/transport.Config.
// Loading values from flags, env, or files is left entirely to the host
// (cmd/forwardproxy); this package only knows how to default itself.
package config

import (
	"time"

	"github.com/proxycore/httprelay/pkg/constants"
)

// AcceptorConfig controls the TCP acceptor.
type AcceptorConfig struct {
	// ListenAddr is passed straight to net.Listen("tcp", ListenAddr).
	ListenAddr string

	// SweepInterval overrides how often the registry sweeper runs.
	SweepInterval time.Duration
}

// DefaultAcceptorConfig returns an AcceptorConfig listening on loopback,
// port 8080, with the standard sweep interval.
func DefaultAcceptorConfig() AcceptorConfig {
	return AcceptorConfig{
		ListenAddr:    "127.0.0.1:8080",
		SweepInterval: constants.SweepInterval,
	}
}

// PipelineConfig controls per-connection pipeline behavior.
type PipelineConfig struct {
	// RelayURL is an optional upstream HTTP(S)/SOCKS5 proxy URL
	// (see upstream.ParseRelayURL); empty means connect directly to origins.
	RelayURL string

	// DialTimeout bounds DNS resolution + TCP connect to a new upstream.
	DialTimeout time.Duration

	// BodyMemLimit is the in-memory threshold before a materialized body
	// spills to disk (pkg/spill).
	BodyMemLimit int64
}

// DefaultPipelineConfig returns a PipelineConfig with no relay configured
// and the package-wide default timeout/memory limit.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		DialTimeout:  constants.DefaultDialTimeout,
		BodyMemLimit: constants.DefaultBodyMemLimit,
	}
}
