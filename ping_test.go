package netagents

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParsePingConfig(t *testing.T) {
	cfg, err := ParsePingConfig(Attrs{"target": "7", "interval": " 50 "})
	require.NoError(t, err)
	require.Equal(t, PingConfig{Target: 7, Interval: 50 * time.Millisecond}, cfg)

	tests := []struct {
		name  string
		attrs Attrs
		want  error
	}{
		{"missing target", Attrs{"interval": "50"}, ErrMissingAttr},
		{"missing interval", Attrs{"target": "7"}, ErrMissingAttr},
		{"bad target", Attrs{"target": "seven", "interval": "50"}, ErrInvalidAttr},
		{"zero target", Attrs{"target": "0", "interval": "50"}, ErrInvalidAttr},
		{"bad interval", Attrs{"target": "7", "interval": "1s"}, ErrInvalidAttr},
		{"overflowing interval", Attrs{"target": "7", "interval": "9223372036855"}, ErrInvalidAttr},
		{"negative interval", Attrs{"target": "7", "interval": "-1"}, ErrInvalidAttr},
		{"nil attrs", nil, ErrMissingAttr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePingConfig(tt.attrs)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParsePingConfig_Intervals(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Duration
	}{
		{"0", 0},
		{"4294967296", 4294967296 * time.Millisecond},
		{"9223372036854", 9223372036854 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			cfg, err := ParsePingConfig(Attrs{"target": "7", "interval": tt.raw})
			require.NoError(t, err)
			require.Equal(t, tt.want, cfg.Interval)
		})
	}

	_, err := NewPingAgentWithConfig(Params{
		ID:       1,
		Outbound: []Outbound{newTestOutbound(7, 1)},
	}, PingConfig{Target: 7, Interval: -time.Millisecond})
	require.ErrorIs(t, err, ErrInvalidAttr)
}

func TestPing_ZeroIntervalStillObservesCancellation(t *testing.T) {
	out := newTestOutbound(7, 0)
	agent, err := NewPingAgent(Params{
		ID:       1,
		Outbound: []Outbound{out},
		Attrs:    Attrs{"target": "7", "interval": "0"},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- agent.Run(ctx)
	}()

	for i := range 3 {
		msg, err := out.fl.Recv(context.Background())
		require.NoError(t, err)
		require.Equal(t, fmt.Sprintf("Hello #%d from Ping agent 1", i), string(msg.Payload))
	}

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("ping with a zero interval ignored cancellation")
	}
}

func TestPing_FirstMessages(t *testing.T) {
	const interval = 50 * time.Millisecond
	out := newTestOutbound(7, 0)
	logger, _ := newTestLogger(t)

	agent, err := NewPingAgent(Params{
		ID:       1,
		Outbound: []Outbound{out},
		Attrs:    Attrs{"target": "7", "interval": "50"},
		Logger:   logger,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- agent.Run(ctx)
	}()

	for i := range 3 {
		msg, err := out.fl.Recv(context.Background())
		require.NoError(t, err)
		require.Equal(t, UniqueID(1), msg.Src)
		require.Equal(t, UniqueID(7), msg.Dst)
		require.Equal(t, fmt.Sprintf("Hello #%d from Ping agent 1", i), string(msg.Payload))
	}

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("ping ignored cancellation")
	}

	attempts := out.sendAttempts()
	require.GreaterOrEqual(t, len(attempts), 3)
	for i := 1; i < len(attempts); i++ {
		require.GreaterOrEqual(t, attempts[i].Sub(attempts[i-1]), interval,
			"sends %d and %d are too close", i-1, i)
	}
}

func TestPing_MissingTargetFailsConstruction(t *testing.T) {
	out := newTestOutbound(7, 4)
	agent, err := NewPingAgent(Params{
		ID:       1,
		Outbound: []Outbound{out},
		Attrs:    Attrs{"interval": "50"},
	})
	require.ErrorIs(t, err, ErrMissingAttr)
	require.Nil(t, agent)
	require.Empty(t, out.sendAttempts())
	require.Zero(t, out.fl.Len())
}

func TestPing_TargetMustBeLinked(t *testing.T) {
	out := newTestOutbound(8, 4)
	_, err := NewPingAgent(Params{
		ID:       1,
		Outbound: []Outbound{out},
		Attrs:    Attrs{"target": "7", "interval": "50"},
	})
	require.ErrorIs(t, err, ErrNotLinked)
}

func TestPing_PicksTheTargetEndpoint(t *testing.T) {
	other := newTestOutbound(8, 4)
	target := newTestOutbound(7, 4)
	agent, err := NewPingAgent(Params{
		ID:       1,
		Outbound: []Outbound{other, target},
		Attrs:    Attrs{"target": "7", "interval": "10"},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go agent.Run(ctx)

	require.Eventually(t, func() bool {
		return target.fl.Len() > 0
	}, time.Second, 5*time.Millisecond)
	require.Zero(t, other.fl.Len())
}

func TestPing_ClosedPeerIsFatal(t *testing.T) {
	out := newTestOutbound(7, 1)
	logger, logs := newTestLogger(t)
	agent, err := NewPingAgent(Params{
		ID:       1,
		Outbound: []Outbound{out},
		Attrs:    Attrs{"target": "7", "interval": "10"},
		Logger:   logger,
	})
	require.NoError(t, err)
	require.NoError(t, out.fl.Close())

	err = agent.Run(context.Background())
	require.ErrorIs(t, err, ErrSendFailed)
	require.ErrorIs(t, err, ErrEndpointClosed)
	require.Contains(t, logs.String(), "target endpoint closed")
}

func TestPing_BackpressureThenCancel(t *testing.T) {
	out := newTestOutbound(7, 1)
	agent, err := NewPingAgent(Params{
		ID:       1,
		Outbound: []Outbound{out},
		Attrs:    Attrs{"target": "7", "interval": "1"},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- agent.Run(ctx)
	}()

	// The buffer holds one message, the second send stays blocked.
	require.Eventually(t, func() bool {
		return len(out.sendAttempts()) == 2
	}, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	require.Len(t, out.sendAttempts(), 2)

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("a blocked ping must observe cancellation")
	}
}
