package pipeline

// Hooks is the extension surface: a caller supplies one to observe or
// redirect pipeline flow at the two points spec.md §4.x names. Either method
// may mutate s (including calling Abort or installing a custom s.NextStep),
// call s.RequestHdrs / s.ResponseHdrs setters directly, or — via p — write
// straight to p.BP and take over framing entirely (setting s.NextStep = nil
// to suppress the engine's own SendRequest/SendResponse for this message).
type Hooks interface {
	OnReceiveRequest(p *Pipeline, s *State) error
	OnReceiveResponse(p *Pipeline, s *State) error
}

// DefaultHooks is the no-op implementation used when a caller supplies none.
type DefaultHooks struct{}

func (DefaultHooks) OnReceiveRequest(p *Pipeline, s *State) error  { return nil }
func (DefaultHooks) OnReceiveResponse(p *Pipeline, s *State) error { return nil }

// Chain composes multiple Hooks so an extension can layer onto the default
// behavior (e.g. an access-log hook wrapping another Hooks) instead of
// replacing it outright. Hooks run in order; the first error stops the chain.
type Chain []Hooks

func (c Chain) OnReceiveRequest(p *Pipeline, s *State) error {
	for _, h := range c {
		if err := h.OnReceiveRequest(p, s); err != nil {
			return err
		}
	}
	return nil
}

func (c Chain) OnReceiveResponse(p *Pipeline, s *State) error {
	for _, h := range c {
		if err := h.OnReceiveResponse(p, s); err != nil {
			return err
		}
	}
	return nil
}
