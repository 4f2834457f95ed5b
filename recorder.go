package netagents

import "time"

// EventKind tells at which end of an endpoint a TraceEvent was observed.
type EventKind uint8

const (
	EventUnknown EventKind = iota
	EventSent
	EventDelivered
)

func (kind EventKind) String() string {
	switch kind {
	case EventSent:
		return "sent"
	case EventDelivered:
		return "delivered"
	default:
		return "unknown"
	}
}

// ParseEventKind is the inverse of EventKind.String.
func ParseEventKind(s string) EventKind {
	switch s {
	case "sent":
		return EventSent
	case "delivered":
		return EventDelivered
	default:
		return EventUnknown
	}
}

// TraceEvent is one observation of a message crossing an endpoint.
type TraceEvent struct {
	Kind  EventKind
	At    time.Time
	RunID string
	Msg   NetworkMessage
}

// Recorder persists trace events. Record is called concurrently from every
// agent's goroutine.
type Recorder interface {
	Record(TraceEvent) error
	Close() error
}
