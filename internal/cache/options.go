package cache

import (
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// Config controls expiration, capacity and maintenance behavior.
//
// Zero values:
//   - TTL == 0 means entries set without an explicit TTL never expire
//   - MaxEntries == 0 means "unbounded" (no eviction)
//   - CleanupInterval == 0 disables background cleanup (lazy expiration still works)
//
// Negative values are rejected by New.
type Config[K comparable, V any] struct {
	TTL             time.Duration
	MaxEntries      int
	CleanupInterval time.Duration

	// OnEvict is called for entries dropped by capacity or expiration.
	// It runs after the cache lock is released, so it may call back into the cache.
	OnEvict func(key K, value V, reason EvictReason)
}

func (cfg Config[K, V]) validate() error {
	if cfg.TTL < 0 {
		return invalidConfig("ttl", cfg.TTL)
	}
	if cfg.MaxEntries < 0 {
		return invalidConfig("max_entries", cfg.MaxEntries)
	}
	if cfg.CleanupInterval < 0 {
		return invalidConfig("cleanup_interval", cfg.CleanupInterval)
	}
	return nil
}

type options struct {
	clock   clock.Clock
	logger  *zap.Logger
	metrics Metrics
}

var nopLogger = zap.NewNop()

func defaultOptions() options {
	return options{
		clock:   clock.New(),
		logger:  nopLogger,
		metrics: NoopMetrics{},
	}
}

// Option customizes collaborators of a Cache.
type Option func(*options)

// WithClock sets the time source used for deadlines and the cleanup ticker.
//
// Example:
//
//	mock := clock.NewMock()
//	c, _ := cache.New(cache.Config[string, int]{TTL: time.Minute}, cache.WithClock(mock))
func WithClock(clk clock.Clock) Option {
	return func(o *options) {
		if clk != nil {
			o.clock = clk
		}
	}
}

// WithLogger sets the logger. Evictions and sweeps are logged at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics plugs a metrics sink, e.g. the Prometheus adapter.
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}
