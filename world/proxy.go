package world

import "github.com/nstehr/warren/warren-core/ai"

// Proxy is a stable ai.Agent for behaviors that outlive a tick. Each tick
// the owner binds it to that tick's Agent; behaviors keep their memory.
type Proxy struct {
	ai.Agent
}

var _ ai.Agent = (*Proxy)(nil)

// NewProxy returns a proxy bound to a.
func NewProxy(a *Agent) *Proxy { return &Proxy{Agent: a} }

// Bind points the proxy at the current tick's view of the creature.
func (p *Proxy) Bind(a *Agent) { p.Agent = a }
