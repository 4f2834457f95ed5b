// Package trace persists the messages crossing the endpoints of a
// simulation, so a run can be inspected after the fact.
//
// Three recorders are provided: [FileRecorder] appends length-prefixed
// frames to a file, [SQLiteRecorder] batches events into an SQLite database
// and [MemoryRecorder] keeps them in memory.
package trace

import (
	"errors"
	"fmt"
	"time"

	"github.com/raskyld/netagents"
	"google.golang.org/protobuf/encoding/protowire"
)

var ErrInvalidEvent = errors.New("trace: invalid event")

const (
	evtFieldKind  protowire.Number = 1
	evtFieldAt    protowire.Number = 2
	evtFieldRunID protowire.Number = 3
	evtFieldMsg   protowire.Number = 4
)

// MarshalEvent encodes evt using the protobuf wire format.
func MarshalEvent(evt netagents.TraceEvent) ([]byte, error) {
	msg, err := evt.Msg.MarshalBinary()
	if err != nil {
		return nil, err
	}

	var buf []byte
	buf = protowire.AppendTag(buf, evtFieldKind, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(evt.Kind))
	buf = protowire.AppendTag(buf, evtFieldAt, protowire.VarintType)
	buf = protowire.AppendVarint(buf, protowire.EncodeZigZag(evt.At.UnixNano()))
	buf = protowire.AppendTag(buf, evtFieldRunID, protowire.BytesType)
	buf = protowire.AppendString(buf, evt.RunID)
	buf = protowire.AppendTag(buf, evtFieldMsg, protowire.BytesType)
	buf = protowire.AppendBytes(buf, msg)
	return buf, nil
}

// UnmarshalEvent decodes what MarshalEvent produced.
func UnmarshalEvent(buf []byte) (evt netagents.TraceEvent, err error) {
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if err := protowire.ParseError(n); err != nil {
			return evt, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
		}
		buf = buf[n:]

		switch {
		case num == evtFieldKind && typ == protowire.VarintType:
			var v uint64
			v, n = protowire.ConsumeVarint(buf)
			evt.Kind = netagents.EventKind(v)
		case num == evtFieldAt && typ == protowire.VarintType:
			var v uint64
			v, n = protowire.ConsumeVarint(buf)
			evt.At = time.Unix(0, protowire.DecodeZigZag(v))
		case num == evtFieldRunID && typ == protowire.BytesType:
			evt.RunID, n = protowire.ConsumeString(buf)
		case num == evtFieldMsg && typ == protowire.BytesType:
			var v []byte
			v, n = protowire.ConsumeBytes(buf)
			if n >= 0 {
				if err := evt.Msg.UnmarshalBinary(v); err != nil {
					return evt, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
				}
			}
		default:
			n = protowire.ConsumeFieldValue(num, typ, buf)
		}

		if err := protowire.ParseError(n); err != nil {
			return evt, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
		}
		buf = buf[n:]
	}
	return evt, nil
}
