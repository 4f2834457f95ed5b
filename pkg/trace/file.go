package trace

import (
	"bufio"
	"errors"
	"io"
	"os"
	"sync"

	"github.com/raskyld/netagents"
	"github.com/raskyld/netagents/pkg/flow"
)

var ErrRecorderClosed = errors.New("trace: recorder closed")

var _ netagents.Recorder = (*FileRecorder)(nil)

// FileRecorder appends every event as a length-prefixed frame.
type FileRecorder struct {
	lk     sync.Mutex
	buf    *bufio.Writer
	fw     *flow.FrameWriter
	closer io.Closer
	closed bool
}

// NewFileRecorder writes to w. If w is an io.Closer, Close closes it.
func NewFileRecorder(w io.Writer) *FileRecorder {
	buf := bufio.NewWriter(w)
	rec := &FileRecorder{
		buf: buf,
		fw:  flow.NewFrameWriter(buf),
	}
	if closer, ok := w.(io.Closer); ok {
		rec.closer = closer
	}
	return rec
}

// CreateFile truncates or creates the trace file at path.
func CreateFile(path string) (*FileRecorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return NewFileRecorder(f), nil
}

func (rec *FileRecorder) Record(evt netagents.TraceEvent) error {
	frame, err := MarshalEvent(evt)
	if err != nil {
		return err
	}

	rec.lk.Lock()
	defer rec.lk.Unlock()
	if rec.closed {
		return ErrRecorderClosed
	}
	return rec.fw.WriteFrame(frame)
}

func (rec *FileRecorder) Flush() error {
	rec.lk.Lock()
	defer rec.lk.Unlock()
	if rec.closed {
		return ErrRecorderClosed
	}
	return rec.buf.Flush()
}

// Close flushes buffered frames. It is idempotent.
func (rec *FileRecorder) Close() error {
	rec.lk.Lock()
	defer rec.lk.Unlock()
	if rec.closed {
		return nil
	}
	rec.closed = true

	err := rec.buf.Flush()
	if rec.closer != nil {
		err = errors.Join(err, rec.closer.Close())
	}
	return err
}

// Reader decodes a stream written by a FileRecorder.
type Reader struct {
	fr *flow.FrameReader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{fr: flow.NewFrameReader(r)}
}

// Next returns io.EOF once every event was read.
func (r *Reader) Next() (netagents.TraceEvent, error) {
	frame, err := r.fr.ReadFrame()
	if err != nil {
		return netagents.TraceEvent{}, err
	}
	return UnmarshalEvent(frame)
}

// ReadAll decodes every event of r.
func ReadAll(r io.Reader) (events []netagents.TraceEvent, err error) {
	reader := NewReader(r)
	for {
		evt, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, evt)
	}
}

// ReadFile decodes the trace file at path.
func ReadFile(path string) ([]netagents.TraceEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadAll(f)
}
