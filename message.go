package netagents

import (
	"fmt"
	"log/slog"

	"google.golang.org/protobuf/encoding/protowire"
)

const (
	msgFieldSrc     protowire.Number = 1
	msgFieldDst     protowire.Number = 2
	msgFieldPayload protowire.Number = 3
)

// NetworkMessage is the envelope carried by every endpoint.
type NetworkMessage struct {
	Src     UniqueID
	Dst     UniqueID
	Payload []byte
}

// Clone deep-copies the payload so sender and receiver never share it.
func (m NetworkMessage) Clone() NetworkMessage {
	cloned := m
	if m.Payload != nil {
		cloned.Payload = make([]byte, len(m.Payload))
		copy(cloned.Payload, m.Payload)
	}
	return cloned
}

func (m NetworkMessage) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("src", m.Src.String()),
		slog.String("dst", m.Dst.String()),
		slog.String("payload", string(m.Payload)),
	)
}

// MarshalBinary encodes the message using the protobuf wire format.
func (m NetworkMessage) MarshalBinary() ([]byte, error) {
	var buf []byte
	buf = protowire.AppendTag(buf, msgFieldSrc, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(m.Src))
	buf = protowire.AppendTag(buf, msgFieldDst, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(m.Dst))
	buf = protowire.AppendTag(buf, msgFieldPayload, protowire.BytesType)
	buf = protowire.AppendBytes(buf, m.Payload)
	return buf, nil
}

// UnmarshalBinary decodes what MarshalBinary produced. Unknown fields are
// skipped.
func (m *NetworkMessage) UnmarshalBinary(buf []byte) error {
	*m = NetworkMessage{}
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if err := protowire.ParseError(n); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidFrame, err)
		}
		buf = buf[n:]

		switch {
		case num == msgFieldSrc && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(buf)
			if err := protowire.ParseError(n); err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidFrame, err)
			}
			m.Src = UniqueID(v)
			buf = buf[n:]
		case num == msgFieldDst && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(buf)
			if err := protowire.ParseError(n); err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidFrame, err)
			}
			m.Dst = UniqueID(v)
			buf = buf[n:]
		case num == msgFieldPayload && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(buf)
			if err := protowire.ParseError(n); err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidFrame, err)
			}
			m.Payload = append([]byte(nil), v...)
			buf = buf[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, buf)
			if err := protowire.ParseError(n); err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidFrame, err)
			}
			buf = buf[n:]
		}
	}
	return nil
}
