// Package passthrough is the pipeline's default behavior made explicit: a
// zero-op Hooks implementation, useful as a documented starting point for
// writing a real extension and as a baseline in tests.
package passthrough

import "github.com/proxycore/httprelay/pkg/pipeline"

// Hooks does nothing at either extension point; installing it is
// equivalent to passing nil hooks to pipeline.New.
type Hooks struct{}

func (Hooks) OnReceiveRequest(p *pipeline.Pipeline, s *pipeline.State) error  { return nil }
func (Hooks) OnReceiveResponse(p *pipeline.Pipeline, s *pipeline.State) error { return nil }
