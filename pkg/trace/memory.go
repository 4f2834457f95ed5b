package trace

import (
	"slices"
	"sync"

	"github.com/raskyld/netagents"
)

var _ netagents.Recorder = (*MemoryRecorder)(nil)

// MemoryRecorder keeps every event in memory. The zero value is ready to
// use.
type MemoryRecorder struct {
	lk     sync.Mutex
	events []netagents.TraceEvent
}

func (rec *MemoryRecorder) Record(evt netagents.TraceEvent) error {
	evt.Msg = evt.Msg.Clone()

	rec.lk.Lock()
	defer rec.lk.Unlock()
	rec.events = append(rec.events, evt)
	return nil
}

// Events returns a copy of what was recorded so far.
func (rec *MemoryRecorder) Events() []netagents.TraceEvent {
	rec.lk.Lock()
	defer rec.lk.Unlock()
	return slices.Clone(rec.events)
}

func (rec *MemoryRecorder) Close() error {
	return nil
}
