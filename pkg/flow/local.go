package flow

import (
	"context"
	"sync"
)

var _ Sender[int] = (*Local[int])(nil)
var _ Receiver[int] = (*Local[int])(nil)

// Local is a multi-writer, single-reader bounded flow backed by a Go channel.
type Local[T any] struct {
	data    chan T
	lk      sync.Mutex
	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// NewLocal allocates a flow buffering up to bufferSize messages. A zero
// bufferSize makes every Send rendezvous with a Recv.
func NewLocal[T any](bufferSize uint) *Local[T] {
	return &Local[T]{
		data:    make(chan T, bufferSize),
		closeCh: make(chan struct{}),
	}
}

// Recv returns the next message in send order. Once the flow is closed,
// buffered messages are still delivered before ErrFlowClosed.
func (fl *Local[T]) Recv(ctx context.Context) (msg T, err error) {
	// Prefer data already buffered over a concurrent cancellation.
	select {
	case elem, ok := <-fl.data:
		if !ok {
			return msg, ErrFlowClosed
		}
		return elem, nil
	default:
	}

	select {
	case <-ctx.Done():
		return msg, ctx.Err()
	case elem, ok := <-fl.data:
		if !ok {
			return msg, ErrFlowClosed
		}
		return elem, nil
	}
}

// Send enqueues msg, blocking while the buffer is full. It fails with
// ErrFlowClosed if the flow is closed before or while waiting.
func (fl *Local[T]) Send(ctx context.Context, msg T) error {
	fl.lk.Lock()
	if fl.closed {
		fl.lk.Unlock()
		return ErrFlowClosed
	}
	fl.wg.Add(1)
	defer fl.wg.Done()
	fl.lk.Unlock()

	if clonable, ok := any(msg).(Clonable[T]); ok {
		msg = clonable.Clone()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-fl.closeCh:
		return ErrFlowClosed
	case fl.data <- msg:
		return nil
	}
}

// Len is the number of buffered messages.
func (fl *Local[T]) Len() int {
	return len(fl.data)
}

// Cap is the buffer capacity.
func (fl *Local[T]) Cap() int {
	return cap(fl.data)
}

// Closed reports whether Close was called.
func (fl *Local[T]) Closed() bool {
	fl.lk.Lock()
	defer fl.lk.Unlock()
	return fl.closed
}

// Close is idempotent. Pending writers are released with ErrFlowClosed.
func (fl *Local[T]) Close() error {
	fl.lk.Lock()
	defer fl.lk.Unlock()
	if fl.closed {
		return nil
	}
	fl.closed = true
	close(fl.closeCh)
	fl.wg.Wait()
	close(fl.data)
	return nil
}
