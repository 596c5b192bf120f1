package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"simplecache/internal/cache"
	"simplecache/internal/config"
	"simplecache/internal/fetch"
	"simplecache/internal/metrics"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	fetchURL := flag.String("fetch", "", "URL to fetch twice through the cache")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	// Signal-aware context is the root of ownership for long-lived background work.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *fetchURL, logger); err != nil {
		logger.Error("demo failed", zap.Error(err))
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

func run(ctx context.Context, cfg config.Config, fetchURL string, logger *zap.Logger) error {
	reg := prometheus.NewRegistry()
	m := metrics.NewPrometheus(reg, "simplecache")

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info("serving metrics", zap.String("addr", cfg.MetricsAddr))
	}

	onEvict := func(key string, _ string, reason cache.EvictReason) {
		logger.Info("evicted", zap.String("key", key), zap.Stringer("reason", reason))
	}

	c, err := cache.New(cache.Config[string, string]{
		TTL:             cfg.TTL,
		MaxEntries:      cfg.MaxEntries,
		CleanupInterval: cfg.CleanupInterval,
		OnEvict:         onEvict,
	}, cache.WithLogger(logger.Named("cache")), cache.WithMetrics(m))
	if err != nil {
		return err
	}
	defer func() {
		// Close is idempotent; safe to call in defer.
		if err := c.Close(); err != nil {
			logger.Warn("cache close", zap.Error(err))
		}
	}()

	logger.Info("simplecache demo starting",
		zap.Duration("ttl", cfg.TTL),
		zap.Int("max_entries", cfg.MaxEntries),
		zap.Duration("cleanup_interval", cfg.CleanupInterval))

	// -------------------------------------------------------------------
	// 1) FIFO eviction demo
	// -------------------------------------------------------------------
	c.Set("a", "A")
	c.Set("b", "B")

	// Reading "a" does not protect it: eviction follows insertion order.
	if v, err := c.Get("a"); err == nil {
		logger.Info("GET a", zap.String("value", v))
	}

	// Insert "c" => with capacity 2 the oldest insertion ("a") is evicted.
	c.Set("c", "C")
	if _, err := c.Get("a"); err != nil {
		logger.Info("GET a", zap.Error(err))
	}
	logger.Info("after eviction", zap.Stringer("cache", c))

	// -------------------------------------------------------------------
	// 2) TTL expiration demo (shows background cleanup)
	// -------------------------------------------------------------------
	// We intentionally do NOT read the key after it expires; the cleanup
	// goroutine should remove it during its periodic scan.
	c.SetWithTTL("ttl", "short", 200*time.Millisecond)
	logger.Info("after ttl set", zap.Strings("keys", c.Keys()))

	wait := time.NewTimer(500 * time.Millisecond)
	defer wait.Stop()

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
		return nil
	case <-wait.C:
	}

	logger.Info("after ttl + cleanup", zap.Strings("keys", c.Keys()), zap.Int("len", c.Len()))
	logger.Info("GET ttl", zap.String("value", c.GetOr("ttl", "<missing>")))

	// -------------------------------------------------------------------
	// 3) Memoized fetch
	// -------------------------------------------------------------------
	if fetchURL != "" {
		bodies, err := cache.New(cache.Config[string, []byte]{TTL: cfg.TTL},
			cache.WithLogger(logger.Named("fetch-cache")))
		if err != nil {
			return err
		}
		defer bodies.Close()

		f := fetch.New(bodies, &http.Client{Timeout: 10 * time.Second}, logger.Named("fetch"))
		for i := range 2 {
			start := time.Now()
			body, err := f.Fetch(ctx, fetchURL)
			if err != nil {
				return err
			}
			logger.Info("fetched",
				zap.Int("attempt", i+1),
				zap.Int("bytes", len(body)),
				zap.Duration("took", time.Since(start)))
		}
	}

	fmt.Println("Done. Press Ctrl+C to exit immediately next time.")
	return nil
}
