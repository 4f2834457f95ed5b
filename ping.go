package netagents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const KindPing = "ping"

var _ Agent = (*PingAgent)(nil)

// PingAgent sends a numbered greeting to its target every interval until it
// is cancelled or the target endpoint goes away.
type PingAgent struct {
	id     UniqueID
	cfg    PingConfig
	out    Outbound
	logger *slog.Logger
}

// NewPingAgent is the Factory of the "ping" kind. It requires the "target"
// and "interval" attributes and an outbound endpoint bound to the target.
func NewPingAgent(params Params) (Agent, error) {
	cfg, err := ParsePingConfig(params.Attrs)
	if err != nil {
		return nil, err
	}
	agent, err := NewPingAgentWithConfig(params, cfg)
	if err != nil {
		return nil, err
	}
	return agent, nil
}

// NewPingAgentWithConfig skips attribute parsing.
func NewPingAgentWithConfig(params Params, cfg PingConfig) (*PingAgent, error) {
	if cfg.Interval < 0 {
		return nil, fmt.Errorf("%w: %q: must not be negative", ErrInvalidAttr, AttrInterval)
	}
	out, err := params.outboundTo(cfg.Target)
	if err != nil {
		return nil, err
	}
	return &PingAgent{
		id:     params.ID,
		cfg:    cfg,
		out:    out,
		logger: params.logger().With(LabelTarget.L(cfg.Target)),
	}, nil
}

func (p *PingAgent) ID() UniqueID {
	return p.id
}

func (p *PingAgent) Config() PingConfig {
	return p.cfg
}

// PingPayload is the payload of the count-th ping sent by agent id.
func PingPayload(count uint64, id UniqueID) []byte {
	return fmt.Appendf(nil, "Hello #%d from Ping agent %s", count, id)
}

func (p *PingAgent) Run(ctx context.Context) error {
	p.logger.Info("starting ping agent", LabelInterval.L(p.cfg.Interval))

	timer := time.NewTimer(p.cfg.Interval)
	timer.Stop()
	defer timer.Stop()

	for count := uint64(0); ; count++ {
		msg := NetworkMessage{
			Src:     p.id,
			Dst:     p.cfg.Target,
			Payload: PingPayload(count, p.id),
		}

		if err := p.out.Send(ctx, msg); err != nil {
			if errors.Is(err, ErrEndpointClosed) {
				p.logger.Error("target endpoint closed, aborting", LabelError.L(err))
				return fmt.Errorf("%w: to %s: %w", ErrSendFailed, p.cfg.Target, err)
			}
			return err
		}
		p.logger.Debug("ping sent", LabelSeq.L(count))

		timer.Reset(p.cfg.Interval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
}
