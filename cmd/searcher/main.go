// Command searcher builds the keyword index from the configured corpus and
// serves top-k keyword queries over HTTP.
//
// Usage:
//
//	go run ./cmd/searcher [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port, "manifest_source", cfg.Corpus.ManifestSource)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, prometheus.DefaultGatherer)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdownMetrics(shutdownCtx)
		}()
	}

	var pg *postgres.Client
	if cfg.Corpus.ManifestSource == config.ManifestSourcePostgres {
		pg, err = postgres.Connect(ctx, cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
	}

	sources, err := indexer.SourcesFromConfig(cfg.Corpus, pg)
	if err != nil {
		slog.Error("invalid corpus configuration", "error", err)
		os.Exit(1)
	}
	engine := indexer.NewEngine(sources, m)
	snap, err := engine.Build(ctx)
	if err != nil {
		slog.Error("index build failed", "error", err)
		os.Exit(1)
	}

	exec := executor.New(snap, cfg.Search.MaxResults, m)
	exec.SetDefaultLimit(cfg.Search.DefaultLimit)
	opts := handler.Options{Metrics: m, Build: engine.Report()}

	checker := health.NewChecker(2 * time.Second)
	// An empty corpus is a valid index, so it only degrades readiness.
	checker.RegisterOptional("index", func(context.Context) error {
		if snap.Stats().Documents == 0 {
			return fmt.Errorf("index holds no documents")
		}
		return nil
	})
	if pg != nil {
		checker.RegisterOptional("postgres", pg.Ping)
	}

	if cfg.Redis.Enabled {
		var rc *pkgredis.Client
		err := resilience.Retry(ctx, "redis-connect", resilience.Backoff{}, func(ctx context.Context) error {
			var err error
			rc, err = pkgredis.NewClient(ctx, cfg.Redis)
			return err
		})
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer func() {
				rc.LogPoolStats(slog.Default())
				rc.Close()
			}()
			opts.Cache = cache.New(rc, cfg.Redis.CacheTTL, snap.Fingerprint(), m)
			checker.RegisterOptional("redis", rc.Ping)
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL, "namespace", snap.Fingerprint())
		}
	}

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.QueryEvents)
		collector := analytics.NewCollector(producer, analytics.CollectorConfig{
			BufferSize:    cfg.Analytics.BufferSize,
			BatchSize:     cfg.Analytics.BatchSize,
			FlushInterval: cfg.Analytics.FlushInterval,
		})
		collector.Start()
		defer producer.Close()
		defer collector.Close()
		opts.Tracker = collector
		checker.RegisterOptional("query_events", func(context.Context) error {
			if _, failed, _ := collector.Counts(); failed > 0 {
				return fmt.Errorf("%d query events failed to publish", failed)
			}
			return nil
		})
		slog.Info("query event publishing enabled", "topic", cfg.Kafka.Topics.QueryEvents)
	}

	h := handler.New(exec, engine.Normalizer(), opts)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	limiter := middleware.NewClientLimiter(cfg.Search.RequestsPerSecond, cfg.Search.Burst)
	go sweepLimiter(ctx, limiter)

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.CORS(middleware.DefaultCORSConfig())(chain)
	chain = middleware.RateLimit(limiter, m)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.AccessLog(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// ListenAndServe returns as soon as Shutdown starts; main waits on
	// drained so deferred cleanup never races in-flight handlers.
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	stats := snap.Stats()
	slog.Info("search service listening",
		"addr", server.Addr,
		"documents", stats.Documents,
		"keywords", stats.Keywords,
	)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	<-drained

	slog.Info("search service stopped")
}

// sweepLimiter drops idle per-client limiters once a minute.
func sweepLimiter(ctx context.Context, l *middleware.ClientLimiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			slog.Debug("rate limiter swept", "active_clients", l.Sweep())
		}
	}
}
