package netagents

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Attrs is the string-keyed configuration an orchestrator hands to an agent.
// It is only read during construction.
type Attrs map[string]string

const (
	AttrTarget   = "target"
	AttrInterval = "interval"
)

func (attrs Attrs) require(key string) (string, error) {
	val, ok := attrs[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrMissingAttr, key)
	}
	return val, nil
}

// UniqueID parses a required identifier attribute.
func (attrs Attrs) UniqueID(key string) (UniqueID, error) {
	raw, err := attrs.require(key)
	if err != nil {
		return 0, err
	}
	id, err := ParseUniqueID(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidAttr, key, err)
	}
	return id, nil
}

// maxMillis is the largest millisecond count a time.Duration can hold.
const maxMillis = math.MaxInt64 / int64(time.Millisecond)

// Millis parses a required duration expressed in milliseconds. Zero is
// valid.
func (attrs Attrs) Millis(key string) (time.Duration, error) {
	raw, err := attrs.require(key)
	if err != nil {
		return 0, err
	}
	ms, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidAttr, key, err)
	}
	if ms > uint64(maxMillis) {
		return 0, fmt.Errorf("%w: %q: %d ms overflows a duration", ErrInvalidAttr, key, ms)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// EchoConfig is empty: echo agents need no configuration.
type EchoConfig struct{}

func ParseEchoConfig(Attrs) (EchoConfig, error) {
	return EchoConfig{}, nil
}

// PingConfig is the validated configuration of a ping agent.
type PingConfig struct {
	// Target receives every ping.
	Target UniqueID
	// Interval separates two consecutive sends.
	Interval time.Duration
}

func ParsePingConfig(attrs Attrs) (cfg PingConfig, err error) {
	cfg.Target, err = attrs.UniqueID(AttrTarget)
	if err != nil {
		return cfg, err
	}
	cfg.Interval, err = attrs.Millis(AttrInterval)
	if err != nil {
		return cfg, err
	}
	return cfg, nil
}
