package netagents

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
)

// Agent is a simulated protocol participant.
//
// Run drives the agent until its terminal condition and MUST only block on
// endpoint operations or timers, all of which observe ctx. It returns nil
// on a normal termination, ctx.Err() when cancelled and any other error when
// the agent hit a fatal condition.
type Agent interface {
	ID() UniqueID
	Run(ctx context.Context) error
}

// Inbound is the receive side of the endpoint an agent exclusively owns.
type Inbound interface {
	// Recv blocks until a message arrives. It returns ErrEndpointClosed once
	// the endpoint is closed and drained.
	Recv(ctx context.Context) (NetworkMessage, error)
}

// Outbound is a send side bound to exactly one peer.
type Outbound interface {
	Peer() UniqueID
	// Send blocks while the peer's inbound capacity is exhausted. It returns
	// ErrEndpointClosed if the peer endpoint is closed.
	Send(ctx context.Context, msg NetworkMessage) error
}

// Params is everything an agent receives at construction.
type Params struct {
	ID       UniqueID
	Inbound  Inbound
	Outbound []Outbound
	Attrs    Attrs
	// Logger is already scoped to the agent.
	Logger *slog.Logger
}

func (p Params) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default().With(LabelAgentID.L(p.ID))
	}
	return p.Logger
}

// outboundTo returns the endpoint bound to peer.
func (p Params) outboundTo(peer UniqueID) (Outbound, error) {
	for _, out := range p.Outbound {
		if out.Peer() == peer {
			return out, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotLinked, peer)
}

// Factory constructs an agent. It MUST reject malformed configuration so
// Run never has to.
type Factory func(Params) (Agent, error)

// Registry maps agent kinds to their factory. It is safe for concurrent use.
type Registry struct {
	lk        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry knows the "echo" and "ping" kinds.
func DefaultRegistry() *Registry {
	reg := NewRegistry()
	reg.Register(KindEcho, NewEchoAgent)
	reg.Register(KindPing, NewPingAgent)
	return reg
}

// Register adds or replaces the factory of kind.
func (reg *Registry) Register(kind string, factory Factory) {
	reg.lk.Lock()
	defer reg.lk.Unlock()
	reg.factories[kind] = factory
}

func (reg *Registry) Lookup(kind string) (Factory, bool) {
	reg.lk.RLock()
	defer reg.lk.RUnlock()
	factory, ok := reg.factories[kind]
	return factory, ok
}

// Kinds lists registered kinds in lexical order.
func (reg *Registry) Kinds() []string {
	reg.lk.RLock()
	defer reg.lk.RUnlock()
	return slices.Sorted(maps.Keys(reg.factories))
}

// Build constructs an agent of the given kind.
func (reg *Registry) Build(kind string, params Params) (Agent, error) {
	factory, ok := reg.Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return factory(params)
}
