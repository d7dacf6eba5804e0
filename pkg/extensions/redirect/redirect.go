// Package redirect demonstrates rewriting a request's destination before
// it leaves the proxy, via pipeline.ChangeRequestURI.
package redirect

import "github.com/proxycore/httprelay/pkg/pipeline"

// Hooks rewrites any request whose URI matches a key in Rules to the
// corresponding value, leaving everything else untouched.
type Hooks struct {
	Rules map[string]string
}

// New returns a Hooks rewriting exactly the given rules.
func New(rules map[string]string) *Hooks {
	return &Hooks{Rules: rules}
}

func (h *Hooks) OnReceiveRequest(p *pipeline.Pipeline, s *pipeline.State) error {
	if newURI, ok := h.Rules[s.RequestLine.URI]; ok {
		pipeline.ChangeRequestURI(s, newURI)
	}
	return nil
}

func (h *Hooks) OnReceiveResponse(p *pipeline.Pipeline, s *pipeline.State) error { return nil }
