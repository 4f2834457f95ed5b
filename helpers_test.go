package netagents

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/raskyld/netagents/pkg/flow"
)

// logBuffer is a concurrency-safe sink for slog handlers.
type logBuffer struct {
	lk  sync.Mutex
	buf bytes.Buffer
}

func (lb *logBuffer) Write(p []byte) (int, error) {
	lb.lk.Lock()
	defer lb.lk.Unlock()
	return lb.buf.Write(p)
}

func (lb *logBuffer) String() string {
	lb.lk.Lock()
	defer lb.lk.Unlock()
	return lb.buf.String()
}

func newTestLogger(t *testing.T) (*slog.Logger, *logBuffer) {
	t.Helper()
	lb := &logBuffer{}
	handler := slog.NewTextHandler(lb, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(handler), lb
}

// testOutbound wraps a flow and records when each Send was attempted.
type testOutbound struct {
	peer UniqueID
	fl   *flow.Local[NetworkMessage]

	lk       sync.Mutex
	attempts []time.Time
}

func newTestOutbound(peer UniqueID, bufferSize uint) *testOutbound {
	return &testOutbound{
		peer: peer,
		fl:   flow.NewLocal[NetworkMessage](bufferSize),
	}
}

func (out *testOutbound) Peer() UniqueID {
	return out.peer
}

func (out *testOutbound) Send(ctx context.Context, msg NetworkMessage) error {
	out.lk.Lock()
	out.attempts = append(out.attempts, time.Now())
	out.lk.Unlock()
	return out.fl.Send(ctx, msg)
}

func (out *testOutbound) sendAttempts() []time.Time {
	out.lk.Lock()
	defer out.lk.Unlock()
	return append([]time.Time(nil), out.attempts...)
}

// memRecorder keeps trace events in memory.
type memRecorder struct {
	lk     sync.Mutex
	events []TraceEvent
}

func (rec *memRecorder) Record(evt TraceEvent) error {
	rec.lk.Lock()
	defer rec.lk.Unlock()
	rec.events = append(rec.events, evt)
	return nil
}

func (rec *memRecorder) Close() error {
	return nil
}

func (rec *memRecorder) snapshot() []TraceEvent {
	rec.lk.Lock()
	defer rec.lk.Unlock()
	return append([]TraceEvent(nil), rec.events...)
}
