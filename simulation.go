package netagents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-metrics"
	"golang.org/x/sync/errgroup"
)

// AgentSpec declares an agent before the simulation runs.
type AgentSpec struct {
	// Name must be unique and valid according to ValidateAgentName.
	Name string
	// ID is assigned automatically when zero.
	ID    UniqueID
	Kind  string
	Attrs Attrs
}

type AgentState uint8

const (
	StatePending AgentState = iota
	StateRunning
	StateTerminated
	StateFailed
)

func (state AgentState) String() string {
	switch state {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateTerminated:
		return "terminated"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (state AgentState) MarshalText() ([]byte, error) {
	return []byte(state.String()), nil
}

func (state *AgentState) UnmarshalText(text []byte) error {
	for candidate := StatePending; candidate <= StateFailed; candidate++ {
		if candidate.String() == string(text) {
			*state = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown agent state %q", text)
}

// AgentInfo is a snapshot of an agent.
type AgentInfo struct {
	Name  string     `json:"name"`
	ID    UniqueID   `json:"id"`
	Kind  string     `json:"kind"`
	State AgentState `json:"state"`
	Links []UniqueID `json:"links,omitempty"`
	Err   error      `json:"-"`
}

type agentEntry struct {
	spec     AgentSpec
	logger   *slog.Logger
	inbound  *inboundEndpoint
	outbound []*outboundEndpoint
	// writers counts the agents linked to this one that have not returned
	// yet, guarded by Simulation.lk.
	writers int
	agent   Agent

	lk    sync.Mutex
	state AgentState
	err   error
}

func (ent *agentEntry) setState(state AgentState, err error) {
	ent.lk.Lock()
	defer ent.lk.Unlock()
	ent.state = state
	ent.err = err
}

// info must be called with Simulation.lk held, it guards outbound.
func (ent *agentEntry) info() AgentInfo {
	info := AgentInfo{
		Name: ent.spec.Name,
		ID:   ent.spec.ID,
		Kind: ent.spec.Kind,
	}
	for _, out := range ent.outbound {
		info.Links = append(info.Links, out.peer)
	}

	ent.lk.Lock()
	defer ent.lk.Unlock()
	info.State = ent.state
	info.Err = ent.err
	return info
}

// Simulation is the orchestrator: it allocates identities, wires the
// endpoints between agents, then constructs and runs them concurrently.
//
// Agents are declared with AddAgent and wired with Link before Run.
type Simulation struct {
	config config
	logger *slog.Logger
	runID  string
	tel    *telemetry

	ids    *idGenerator
	dir    *nameDirectory
	agents []*agentEntry

	running atomic.Int64

	lk      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelCauseFunc
}

func Create(opts ...Option) (*Simulation, error) {
	sim := &Simulation{
		config: config{
			bufferSize: DefaultBufferSize,
		},
		runID: uuid.NewString(),
		ids:   newIDGenerator(),
		dir:   newNameDir(),
	}

	for _, opt := range opts {
		err := opt(&sim.config)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCfg, err)
		}
	}

	// Logging implementations.
	if sim.config.logHandler != nil {
		sim.logger = slog.New(sim.config.logHandler)
	} else {
		sim.logger = slog.Default()
	}
	sim.logger = sim.logger.With(LabelRunID.L(sim.runID))

	// Metrics implementations.
	if sim.config.msink == nil {
		sim.config.msink = &metrics.BlackholeSink{}
	}

	if sim.config.registry == nil {
		sim.config.registry = DefaultRegistry()
	}

	sim.tel = &telemetry{
		runID:    sim.runID,
		logger:   sim.logger,
		msink:    sim.config.msink,
		labels:   sim.config.metricLabels,
		recorder: sim.config.recorder,
	}
	return sim, nil
}

// RunID identifies this simulation run in logs and traces.
func (sim *Simulation) RunID() string {
	return sim.runID
}

// AddAgent declares an agent and allocates its inbound endpoint.
func (sim *Simulation) AddAgent(spec AgentSpec) (UniqueID, error) {
	if !ValidateAgentName(spec.Name) {
		return 0, fmt.Errorf("%w: %q", ErrNameInvalid, spec.Name)
	}
	if _, known := sim.config.registry.Lookup(spec.Kind); !known {
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, spec.Kind)
	}

	sim.lk.Lock()
	defer sim.lk.Unlock()
	if sim.started {
		return 0, ErrAlreadyStarted
	}
	if sim.dir.has(spec.Name) {
		return 0, fmt.Errorf("%w: %q", ErrNameConflict, spec.Name)
	}

	if spec.ID == 0 {
		spec.ID = sim.ids.generate()
	} else if err := sim.ids.claim(spec.ID); err != nil {
		return 0, err
	}
	spec.Attrs = maps.Clone(spec.Attrs)

	ent := &agentEntry{
		spec: spec,
		logger: sim.logger.With(
			LabelAgentID.L(spec.ID),
			LabelAgentName.L(spec.Name),
			LabelAgentKind.L(spec.Kind),
		),
		inbound: newInboundEndpoint(spec.ID, sim.config.bufferSize, sim.tel),
	}
	if err := sim.dir.record(ent); err != nil {
		return 0, err
	}
	sim.agents = append(sim.agents, ent)

	sim.logger.Debug("agent declared", LabelAgentID.L(spec.ID), LabelAgentName.L(spec.Name))
	return spec.ID, nil
}

// Link gives src an outbound endpoint bound to the inbound endpoint of dst.
func (sim *Simulation) Link(src, dst UniqueID) error {
	sim.lk.Lock()
	defer sim.lk.Unlock()
	if sim.started {
		return ErrAlreadyStarted
	}

	srcEnt, err := sim.dir.lookup(src)
	if err != nil {
		return fmt.Errorf("%w: %s", err, src)
	}
	dstEnt, err := sim.dir.lookup(dst)
	if err != nil {
		return fmt.Errorf("%w: %s", err, dst)
	}

	for _, out := range srcEnt.outbound {
		if out.peer == dst {
			return fmt.Errorf("%w: %s -> %s", ErrLinkConflict, src, dst)
		}
	}

	srcEnt.outbound = append(srcEnt.outbound, &outboundEndpoint{
		owner: src,
		peer:  dst,
		dst:   dstEnt.inbound,
		tel:   sim.tel,
	})
	dstEnt.writers++
	return nil
}

// SetAttrs replaces the configuration attributes of a declared agent.
func (sim *Simulation) SetAttrs(id UniqueID, attrs Attrs) error {
	sim.lk.Lock()
	defer sim.lk.Unlock()
	if sim.started {
		return ErrAlreadyStarted
	}

	ent, err := sim.dir.lookup(id)
	if err != nil {
		return fmt.Errorf("%w: %s", err, id)
	}
	ent.spec.Attrs = maps.Clone(attrs)
	return nil
}

// Resolve returns the identifier of the agent called name.
func (sim *Simulation) Resolve(name string) (UniqueID, error) {
	ent, err := sim.dir.resolve(name)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", err, name)
	}
	return ent.spec.ID, nil
}

// Scan lists, in lexical order, the names starting with prefix.
func (sim *Simulation) Scan(prefix string) ([]string, error) {
	return sim.dir.scan(prefix)
}

// Agents returns a snapshot of every agent in declaration order.
func (sim *Simulation) Agents() []AgentInfo {
	sim.lk.Lock()
	defer sim.lk.Unlock()

	infos := make([]AgentInfo, 0, len(sim.agents))
	for _, ent := range sim.agents {
		infos = append(infos, ent.info())
	}
	return infos
}

// Shutdown cancels a running simulation. Agents observe the cancellation at
// their next suspension point and Run returns. Before Run, it makes Run
// return immediately.
func (sim *Simulation) Shutdown() {
	sim.lk.Lock()
	sim.stopped = true
	cancel := sim.cancel
	sim.lk.Unlock()
	if cancel != nil {
		cancel(ErrSimulationStopped)
	}
}

// Run constructs every agent, then runs them all concurrently until they
// all return. Any construction failure aborts the run before a single agent
// starts. The first agent failing fatally stops the others and its error is
// returned. Cancelling ctx, or calling Shutdown, is a clean stop.
//
// A Simulation runs at most once.
func (sim *Simulation) Run(ctx context.Context) error {
	sim.lk.Lock()
	if sim.started {
		sim.lk.Unlock()
		return ErrAlreadyStarted
	}
	sim.started = true
	if sim.stopped {
		sim.lk.Unlock()
		sim.logger.Info("simulation stopped before it started")
		return nil
	}
	ctx, cancel := context.WithCancelCause(ctx)
	sim.cancel = cancel
	entries := slices.Clone(sim.agents)
	sim.lk.Unlock()
	defer cancel(nil)
	defer sim.closeAll(entries)

	for _, ent := range entries {
		if err := sim.construct(ent); err != nil {
			ent.setState(StateFailed, err)
			ent.logger.Error("failed to construct agent", LabelError.L(err))
			return fmt.Errorf("%w: agent %q: %w", ErrInvalidCfg, ent.spec.Name, err)
		}
	}

	// Nobody will ever write to those.
	sim.lk.Lock()
	for _, ent := range entries {
		if ent.writers == 0 {
			ent.inbound.close()
		}
	}
	sim.lk.Unlock()

	start := time.Now()
	sim.logger.Info("simulation started", "agents", len(entries))

	group, groupCtx := errgroup.WithContext(ctx)
	for _, ent := range entries {
		group.Go(func() error {
			return sim.runAgent(groupCtx, ent)
		})
	}
	err := group.Wait()

	sim.logger.Info("simulation completed", LabelDuration.L(time.Since(start)), LabelError.L(err))
	return err
}

func (sim *Simulation) construct(ent *agentEntry) error {
	outbound := make([]Outbound, 0, len(ent.outbound))
	for _, out := range ent.outbound {
		outbound = append(outbound, out)
	}

	agent, err := sim.config.registry.Build(ent.spec.Kind, Params{
		ID:       ent.spec.ID,
		Inbound:  ent.inbound,
		Outbound: outbound,
		Attrs:    maps.Clone(ent.spec.Attrs),
		Logger:   ent.logger,
	})
	if err != nil {
		return err
	}
	if agent.ID() != ent.spec.ID {
		return fmt.Errorf("%w: agent reports id %s", ErrInvalidID, agent.ID())
	}
	ent.agent = agent
	return nil
}

func (sim *Simulation) runAgent(ctx context.Context, ent *agentEntry) error {
	ent.setState(StateRunning, nil)
	sim.config.msink.SetGaugeWithLabels(MetricAgentRunning, float32(sim.running.Add(1)), sim.tel.labels)

	err := ent.agent.Run(ctx)

	sim.config.msink.SetGaugeWithLabels(MetricAgentRunning, float32(sim.running.Add(-1)), sim.tel.labels)
	sim.release(ent)

	stopped := ctx.Err() != nil &&
		(errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
	if err == nil || stopped {
		ent.setState(StateTerminated, nil)
		ent.logger.Info("agent terminated")
		return nil
	}

	ent.setState(StateFailed, err)
	sim.config.msink.IncrCounterWithLabels(
		MetricAgentFailed,
		1.0,
		sim.tel.withLabels(LabelAgentKind.M(ent.spec.Kind)),
	)
	ent.logger.Error("agent failed", LabelError.L(err))
	return fmt.Errorf("agent %q (%s): %w", ent.spec.Name, ent.spec.ID, err)
}

// release closes the inbound endpoints ent was the last writer of.
func (sim *Simulation) release(ent *agentEntry) {
	sim.lk.Lock()
	defer sim.lk.Unlock()
	for _, out := range ent.outbound {
		peer, err := sim.dir.lookup(out.peer)
		if err != nil {
			continue
		}
		peer.writers--
		if peer.writers == 0 {
			peer.logger.Debug("every writer returned, closing inbound endpoint")
			peer.inbound.close()
		}
	}
}

func (sim *Simulation) closeAll(entries []*agentEntry) {
	for _, ent := range entries {
		ent.inbound.close()
	}
}
