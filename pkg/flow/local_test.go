package flow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type box struct {
	buf []byte
}

func (b box) Clone() box {
	cloned := make([]byte, len(b.buf))
	copy(cloned, b.buf)
	return box{buf: cloned}
}

func TestLocal_FIFO(t *testing.T) {
	fl := NewLocal[int](8)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		require.NoError(t, fl.Send(ctx, i))
	}
	require.Equal(t, 8, fl.Len())

	for i := 0; i < 8; i++ {
		got, err := fl.Recv(ctx)
		require.NoError(t, err)
		require.Equal(t, i, got, "messages must come out in send order")
	}
}

func TestLocal_Backpressure(t *testing.T) {
	fl := NewLocal[int](1)
	ctx := context.Background()
	require.NoError(t, fl.Send(ctx, 1))

	sent := make(chan error, 1)
	go func() {
		sent <- fl.Send(ctx, 2)
	}()

	select {
	case <-sent:
		t.Fatal("send should block while the buffer is full")
	case <-time.After(50 * time.Millisecond):
	}

	got, err := fl.Recv(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, got)
	require.NoError(t, <-sent)

	got, err = fl.Recv(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, got)
}

func TestLocal_CloseDrainsThenReportsClosed(t *testing.T) {
	fl := NewLocal[string](4)
	ctx := context.Background()
	require.NoError(t, fl.Send(ctx, "a"))
	require.NoError(t, fl.Send(ctx, "b"))
	require.NoError(t, fl.Close())
	require.NoError(t, fl.Close(), "close is idempotent")
	require.True(t, fl.Closed())

	got, err := fl.Recv(ctx)
	require.NoError(t, err)
	require.Equal(t, "a", got)
	got, err = fl.Recv(ctx)
	require.NoError(t, err)
	require.Equal(t, "b", got)

	_, err = fl.Recv(ctx)
	require.ErrorIs(t, err, ErrFlowClosed)
	require.ErrorIs(t, fl.Send(ctx, "c"), ErrFlowClosed)
}

func TestLocal_CloseReleasesBlockedWriters(t *testing.T) {
	fl := NewLocal[int](0)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = fl.Send(ctx, i)
		}()
	}

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, fl.Close())
	wg.Wait()

	for _, err := range errs {
		require.ErrorIs(t, err, ErrFlowClosed)
	}
}

func TestLocal_CancellationIsNotClosure(t *testing.T) {
	fl := NewLocal[int](0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fl.Recv(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.NotErrorIs(t, err, ErrFlowClosed)

	err = fl.Send(ctx, 1)
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, fl.Closed())
}

func TestLocal_ClonesOnSend(t *testing.T) {
	fl := NewLocal[box](1)
	ctx := context.Background()
	original := box{buf: []byte("hello")}
	require.NoError(t, fl.Send(ctx, original))
	original.buf[0] = 'j'

	got, err := fl.Recv(ctx)
	require.NoError(t, err)
	require.Equal(t, "hello", string(got.buf))
}
