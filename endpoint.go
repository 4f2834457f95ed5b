package netagents

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hashicorp/go-metrics"
	"github.com/raskyld/netagents/pkg/flow"
)

var _ Inbound = (*inboundEndpoint)(nil)
var _ Outbound = (*outboundEndpoint)(nil)

// telemetry is shared by every endpoint of a simulation.
type telemetry struct {
	runID    string
	logger   *slog.Logger
	msink    metrics.MetricSink
	labels   []metrics.Label
	recorder Recorder
}

func (tel *telemetry) withLabels(labels ...metrics.Label) []metrics.Label {
	all := make([]metrics.Label, 0, len(tel.labels)+len(labels))
	all = append(all, tel.labels...)
	return append(all, labels...)
}

func (tel *telemetry) record(kind EventKind, msg NetworkMessage) {
	if tel.recorder == nil {
		return
	}
	err := tel.recorder.Record(TraceEvent{
		Kind:  kind,
		At:    time.Now(),
		RunID: tel.runID,
		Msg:   msg,
	})
	if err != nil {
		tel.logger.Warn("failed to record trace event", LabelError.L(err), "event", kind.String())
	}
}

// inboundEndpoint is the receive side owned by a single agent. Every
// outbound endpoint bound to this agent writes into the same flow.
type inboundEndpoint struct {
	owner UniqueID
	fl    *flow.Local[NetworkMessage]
	tel   *telemetry
}

func newInboundEndpoint(owner UniqueID, bufferSize uint, tel *telemetry) *inboundEndpoint {
	return &inboundEndpoint{
		owner: owner,
		fl:    flow.NewLocal[NetworkMessage](bufferSize),
		tel:   tel,
	}
}

func (in *inboundEndpoint) Recv(ctx context.Context) (NetworkMessage, error) {
	msg, err := in.fl.Recv(ctx)
	if err != nil {
		return msg, err
	}

	in.tel.msink.IncrCounterWithLabels(
		MetricMessageDelivered,
		1.0,
		in.tel.withLabels(LabelAgentID.M(in.owner), LabelPeer.M(msg.Src)),
	)
	in.tel.record(EventDelivered, msg)
	return msg, nil
}

func (in *inboundEndpoint) close() error {
	return in.fl.Close()
}

// outboundEndpoint is a send side owned by owner and bound to peer.
type outboundEndpoint struct {
	owner UniqueID
	peer  UniqueID
	dst   *inboundEndpoint
	tel   *telemetry
}

func (out *outboundEndpoint) Peer() UniqueID {
	return out.peer
}

func (out *outboundEndpoint) Send(ctx context.Context, msg NetworkMessage) error {
	labels := out.tel.withLabels(LabelAgentID.M(out.owner), LabelPeer.M(out.peer))

	start := time.Now()
	err := out.dst.fl.Send(ctx, msg)
	if err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			out.tel.msink.IncrCounterWithLabels(MetricMessageSendError, 1.0, labels)
		}
		return err
	}

	out.tel.msink.AddSampleWithLabels(
		MetricMessageSendWait,
		float32(time.Since(start).Seconds()*1000),
		labels,
	)
	out.tel.msink.IncrCounterWithLabels(MetricMessageSent, 1.0, labels)
	out.tel.record(EventSent, msg)
	return nil
}
