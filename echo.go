package netagents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

const KindEcho = "echo"

var _ Agent = (*EchoAgent)(nil)

// EchoAgent passively logs every message it receives and never replies.
// It terminates when its inbound endpoint is closed.
type EchoAgent struct {
	id     UniqueID
	in     Inbound
	logger *slog.Logger
}

// NewEchoAgent is the Factory of the "echo" kind.
func NewEchoAgent(params Params) (Agent, error) {
	if _, err := ParseEchoConfig(params.Attrs); err != nil {
		return nil, err
	}
	if params.Inbound == nil {
		return nil, fmt.Errorf("%w: echo agent needs an inbound endpoint", ErrInvalidCfg)
	}
	return &EchoAgent{
		id:     params.ID,
		in:     params.Inbound,
		logger: params.logger(),
	}, nil
}

func (e *EchoAgent) ID() UniqueID {
	return e.id
}

func (e *EchoAgent) Run(ctx context.Context) error {
	e.logger.Info("starting echo agent")
	for {
		msg, err := e.in.Recv(ctx)
		if errors.Is(err, ErrEndpointClosed) {
			e.logger.Info("inbound endpoint closed, echo agent terminated")
			return nil
		}
		if err != nil {
			return err
		}

		if msg.Dst != e.id {
			routingErr := &RoutingError{Agent: e.id, Msg: msg}
			e.logger.Error("routing violation, aborting", LabelError.L(routingErr))
			return routingErr
		}

		e.logger.Info(
			"echo agent received a message",
			LabelPeer.L(msg.Src),
			LabelPayload.L(string(msg.Payload)),
		)
	}
}
