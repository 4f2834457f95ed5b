package flow

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestFrames(t *testing.T) {
	var buf bytes.Buffer
	fw := NewFrameWriter(&buf)

	large := bytes.Repeat([]byte{0xAB}, 300)
	require.NoError(t, fw.WriteFrame([]byte("hello")))
	require.NoError(t, fw.WriteFrame(nil))
	require.NoError(t, fw.WriteFrame(large))

	fr := NewFrameReader(&buf)
	got, err := fr.ReadFrame()
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))

	got, err = fr.ReadFrame()
	require.NoError(t, err)
	require.Empty(t, got)

	got, err = fr.ReadFrame()
	require.NoError(t, err)
	require.Equal(t, large, got)

	_, err = fr.ReadFrame()
	require.ErrorIs(t, err, io.EOF)
}

func TestFrames_Truncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFrameWriter(&buf).WriteFrame([]byte("truncated")))
	raw := buf.Bytes()

	_, err := NewFrameReader(bytes.NewReader(raw[:4])).ReadFrame()
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestFrames_RejectsOversizedPrefix(t *testing.T) {
	raw := protowire.AppendVarint(nil, MaxFrameSize+1)
	_, err := NewFrameReader(bytes.NewReader(raw)).ReadFrame()
	require.ErrorIs(t, err, ErrFrameTooLarge)
}
