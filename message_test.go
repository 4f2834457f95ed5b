package netagents

import (
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestParseUniqueID(t *testing.T) {
	id, err := ParseUniqueID(" 7 ")
	require.NoError(t, err)
	require.Equal(t, UniqueID(7), id)
	require.Equal(t, "7", id.String())

	for _, raw := range []string{"", "0", "-1", "seven", "18446744073709551616"} {
		_, err := ParseUniqueID(raw)
		require.ErrorIs(t, err, ErrInvalidID, "%q must be rejected", raw)
	}

	require.Equal(t, -1, UniqueID(1).Compare(2))
	require.Equal(t, 0, UniqueID(2).Compare(2))
	require.Equal(t, 1, UniqueID(3).Compare(2))
}

func TestIDGenerator_SkipsClaimed(t *testing.T) {
	gen := newIDGenerator()
	require.NoError(t, gen.claim(2))
	require.ErrorIs(t, gen.claim(2), ErrIDConflict)
	require.ErrorIs(t, gen.claim(0), ErrInvalidID)

	require.Equal(t, UniqueID(1), gen.generate())
	require.Equal(t, UniqueID(3), gen.generate(), "2 was claimed explicitly")
	require.ErrorIs(t, gen.claim(3), ErrIDConflict)
}

func TestNetworkMessage_Binary(t *testing.T) {
	msg := NetworkMessage{Src: 3, Dst: 300, Payload: []byte("Hello #0 from Ping agent 3")}
	buf, err := msg.MarshalBinary()
	require.NoError(t, err)

	// Unknown fields must be tolerated.
	buf = protowire.AppendTag(buf, 15, protowire.BytesType)
	buf = protowire.AppendBytes(buf, []byte("future"))

	var decoded NetworkMessage
	require.NoError(t, decoded.UnmarshalBinary(buf))
	require.Equal(t, msg, decoded)

	require.ErrorIs(t, decoded.UnmarshalBinary([]byte{0x08}), ErrInvalidFrame)
}

func TestNetworkMessage_Clone(t *testing.T) {
	msg := NetworkMessage{Src: 1, Dst: 2, Payload: []byte("abc")}
	cloned := msg.Clone()
	msg.Payload[0] = 'x'
	require.Equal(t, "abc", string(cloned.Payload))
	require.Nil(t, NetworkMessage{}.Clone().Payload)
}
