package netagents

import (
	"errors"
	"log/slog"

	"github.com/hashicorp/go-metrics"
)

// DefaultBufferSize is the capacity of an inbound endpoint.
const DefaultBufferSize = 64

type config struct {
	logHandler   slog.Handler
	msink        metrics.MetricSink
	metricLabels []metrics.Label
	bufferSize   uint
	recorder     Recorder
	registry     *Registry
}

// Option to pass to `Create`
type Option func(*config) error

// WithLog specifies which `slog.Handler` to use.
func WithLog(handler slog.Handler) Option {
	return func(c *config) error {
		c.logHandler = handler
		return nil
	}
}

// WithMetricSink allows you to chose how to collect the metrics emitted by
// the simulation. A nil sink discards them.
func WithMetricSink(ms metrics.MetricSink) Option {
	return func(c *config) error {
		if ms == nil {
			ms = &metrics.BlackholeSink{}
		}
		c.msink = ms
		return nil
	}
}

// WithMetricLabels adds static labels to all metrics produced by the
// simulation.
func WithMetricLabels(labels []metrics.Label) Option {
	return func(c *config) error {
		c.metricLabels = labels
		return nil
	}
}

// WithBufferSize sets how many messages an inbound endpoint holds before
// senders are held back. Zero makes every send a rendezvous.
func WithBufferSize(size uint) Option {
	return func(c *config) error {
		c.bufferSize = size
		return nil
	}
}

// WithRecorder traces every message sent and delivered.
func WithRecorder(rec Recorder) Option {
	return func(c *config) error {
		if rec == nil {
			return errors.New("nil recorder")
		}
		c.recorder = rec
		return nil
	}
}

// WithRegistry replaces the default registry, typically to add agent kinds.
func WithRegistry(reg *Registry) Option {
	return func(c *config) error {
		if reg == nil {
			return errors.New("nil registry")
		}
		c.registry = reg
		return nil
	}
}
