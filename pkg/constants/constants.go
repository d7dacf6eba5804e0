// Package constants defines the magic numbers shared across the pipeline.
package constants

import "time"

const (
	// SocketBufferSize is the size of the buffered framed socket's receive
	// buffer (spec.md §3: "typically 8 KiB").
	SocketBufferSize = 8 * 1024

	// MaxHeaderBlockBytes bounds how much a header block may grow before a
	// peer is treated as sending a runaway/hostile request.
	MaxHeaderBlockBytes = 64 * 1024

	// OpportunisticBodyPeek is how much of an unframed response body
	// (neither Content-Length nor Transfer-Encoding, spec.md §4.E step 4)
	// the pipeline reads opportunistically before synthesizing a
	// Content-Length.
	OpportunisticBodyPeek = 512

	// MaxContentLength bounds a parsed Content-Length to guard against
	// hostile or corrupt values.
	MaxContentLength = 1024 * 1024 * 1024 * 1024 // 1TB

	// DefaultBodyMemLimit is the in-memory threshold before a materialized
	// body (pkg/spill) spills to disk.
	DefaultBodyMemLimit = 4 * 1024 * 1024 // 4MB
)

const (
	// DefaultDialTimeout bounds DNS resolution + TCP connect to a new
	// upstream (origin or relay).
	DefaultDialTimeout = 10 * time.Second

	// SweepInterval is how often the acceptor's registry sweeper walks
	// live connections evicting dead ones (spec.md §5: "every ~5 minutes").
	SweepInterval = 5 * time.Minute

	// TCPKeepAlivePeriod is applied to the PS socket once a response marks
	// the connection persistent.
	TCPKeepAlivePeriod = 30 * time.Second
)
