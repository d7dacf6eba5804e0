// Package pipeline implements the per-request engine: a mutable
// continuation pointer that walks read_request -> send_request ->
// read_response -> send_response, with an extension-hook surface at the
// request/response boundary.
package pipeline

import (
	"github.com/proxycore/httprelay/pkg/header"
	"github.com/proxycore/httprelay/pkg/socket"
	"github.com/proxycore/httprelay/pkg/timing"
)

// BodyHandler receives successive response-body fragments; a nil slice
// marks end of message. When installed, response-body forwarding to BP is
// suppressed and the handler is responsible for whatever it wants to do
// with the bytes. It is an alias for socket.PacketHandler so a State's
// handler can be passed straight into pkg/socket's tunnel-to-handler calls.
type BodyHandler = socket.PacketHandler

// State carries the per-request fields the engine and its steps share. It
// is created fresh at the head of every pipeline iteration and discarded at
// the end; only the current step may mutate it.
type State struct {
	RequestLine header.RequestLine
	RequestHdrs *header.Block

	StatusLine   header.StatusLine
	ResponseHdrs *header.Block

	Host string
	Port int

	PersistBP           bool
	PersistPS           bool
	RequestHasBody      bool
	RequestChunked      bool
	UseDefaultPersistBP bool

	RequestBodyLength int64

	ResponseHandler BodyHandler

	// Timer tracks connect/TTFB/total latency for this iteration; steps mark
	// it, accesslog (or any other hook) reads it back via Timer.GetMetrics.
	Timer *timing.Timer

	// NextStep is the mutable continuation pointer: nil means stop. Hooks
	// may redirect it to any step, including Abort or a custom function.
	NextStep Step
}

// NewState returns a freshly initialized State for the head of one pipeline
// iteration, defaulting to persistent unless a step or hook says otherwise.
func NewState() *State {
	return &State{PersistBP: true, PersistPS: true, UseDefaultPersistBP: true, Timer: timing.NewTimer()}
}
