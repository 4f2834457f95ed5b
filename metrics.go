package netagents

import (
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-metrics"
)

var (
	MetricMessageSent      = []string{"netagents", "message", "sent"}
	MetricMessageDelivered = []string{"netagents", "message", "delivered"}
	MetricMessageSendError = []string{"netagents", "message", "send", "error"}
	// MetricMessageSendWait samples how long a sender was held back by a
	// full destination endpoint, in milliseconds.
	MetricMessageSendWait = []string{"netagents", "message", "send", "wait", "ms"}
	MetricAgentRunning    = []string{"netagents", "agent", "running"}
	MetricAgentFailed     = []string{"netagents", "agent", "failed"}
)

type TelemetryLabel string

var (
	LabelRunID     TelemetryLabel = "run_id"
	LabelAgentID   TelemetryLabel = "agent_id"
	LabelAgentName TelemetryLabel = "agent_name"
	LabelAgentKind TelemetryLabel = "agent_kind"
	LabelPeer      TelemetryLabel = "peer"
	LabelTarget    TelemetryLabel = "target"
	LabelPayload   TelemetryLabel = "payload"
	LabelInterval  TelemetryLabel = "interval"
	LabelSeq       TelemetryLabel = "seq"
	LabelState     TelemetryLabel = "state"
	LabelError     TelemetryLabel = "error"
	LabelDuration  TelemetryLabel = "duration"
)

// M builds a metric label.
func (lab TelemetryLabel) M(val any) metrics.Label {
	return metrics.Label{Name: string(lab), Value: fmt.Sprint(val)}
}

// L builds a log attribute.
func (lab TelemetryLabel) L(val any) slog.Attr {
	return slog.Attr{
		Key:   string(lab),
		Value: slog.AnyValue(val),
	}
}
