// Package flow provides the in-process conduits agents talk through.
//
// A [Local] flow is a bounded FIFO: writers block once the buffer is full
// (backpressure) and the reader drains whatever was buffered before observing
// [ErrFlowClosed]. Closure is reported distinctly from context cancellation so
// callers can tell "no more messages will ever arrive" apart from "I was asked
// to stop".
package flow

import (
	"context"
	"errors"
)

var (
	ErrFlowClosed = errors.New("flow closed")
)

// Sender is the write side of a flow.
type Sender[T any] interface {
	Send(ctx context.Context, msg T) error
}

// Receiver is the read side of a flow.
//
// Recv MUST NOT be called concurrently.
type Receiver[T any] interface {
	Recv(ctx context.Context) (T, error)
}

// Clonable values are copied before crossing a flow so the reader never
// shares memory with the writer.
type Clonable[T any] interface {
	Clone() T
}
