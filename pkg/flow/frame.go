package flow

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protowire"
)

// MaxFrameSize bounds a single decoded frame.
const MaxFrameSize = 16 << 20

var ErrFrameTooLarge = errors.New("flow: frame too large")

// FrameWriter writes length-prefixed frames: a protobuf varint holding the
// payload size followed by the payload itself.
type FrameWriter struct {
	w io.Writer
}

func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w}
}

func (fw *FrameWriter) WriteFrame(buf []byte) error {
	if len(buf) > MaxFrameSize {
		return ErrFrameTooLarge
	}
	prefixed := protowire.AppendVarint(make([]byte, 0, binary.MaxVarintLen64+len(buf)), uint64(len(buf)))
	prefixed = append(prefixed, buf...)
	_, err := fw.w.Write(prefixed)
	return err
}

// FrameReader is the counterpart of FrameWriter.
type FrameReader struct {
	r *bufio.Reader
}

func NewFrameReader(r io.Reader) *FrameReader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &FrameReader{r: br}
}

// ReadFrame returns io.EOF when the stream ends on a frame boundary and
// io.ErrUnexpectedEOF when it ends in the middle of one.
func (fr *FrameReader) ReadFrame() ([]byte, error) {
	prefix := make([]byte, 0, binary.MaxVarintLen64)
	for {
		b, err := fr.r.ReadByte()
		if err != nil {
			if err == io.EOF && len(prefix) > 0 {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		prefix = append(prefix, b)
		if b < 0x80 {
			break
		}
		if len(prefix) == binary.MaxVarintLen64 {
			return nil, fmt.Errorf("flow: invalid frame prefix: %w", protowire.ParseError(-1))
		}
	}

	size, n := protowire.ConsumeVarint(prefix)
	if err := protowire.ParseError(n); err != nil {
		return nil, err
	}
	if size > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}

	buf := make([]byte, size)
	if _, err := io.ReadFull(fr.r, buf); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return buf, nil
}
