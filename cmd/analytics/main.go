// Command analytics consumes query events from Kafka, aggregates them in
// memory (query volume, outcomes, cache hit rate, latency percentiles, top
// keywords) and serves the aggregate at GET /api/v1/analytics.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/analytics/snapshot"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/postgres"
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
	slog.Info("starting analytics service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, nil)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdownMetrics(shutdownCtx)
		}()
	}

	aggregator := analytics.NewAggregator(cfg.Analytics.TopN)
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.QueryEvents, aggregator.Handle)

	consumerErr := make(chan error, 1)
	go func() {
		err := consumer.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("query event consumer stopped", "error", err)
		}
		consumerErr <- err
	}()
	slog.Info("query event consumer started", "topic", cfg.Kafka.Topics.QueryEvents, "group", cfg.Kafka.ConsumerGroup)

	checker := health.NewChecker(2 * time.Second)
	checker.Register("kafka", func(context.Context) error {
		select {
		case err := <-consumerErr:
			consumerErr <- err
			if err == nil {
				return errors.New("consumer stopped")
			}
			return fmt.Errorf("consumer stopped: %w", err)
		default:
			return nil
		}
	})

	var history analytics.History
	if cfg.Analytics.PersistSnapshots {
		pg, err := postgres.Connect(ctx, cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pg.Close()

		store := snapshot.NewStore(pg)
		if err := store.EnsureSchema(ctx); err != nil {
			slog.Error("failed to prepare snapshot table", "error", err)
			os.Exit(1)
		}
		if last, err := store.Latest(ctx); err != nil {
			slog.Warn("could not read previous snapshot", "error", err)
		} else if last != nil {
			slog.Info("previous analytics snapshot found", "total_queries", last.TotalQueries)
		}
		checker.RegisterOptional("postgres", pg.Ping)
		history = store
		go store.Run(ctx, aggregator, cfg.Analytics.SnapshotInterval)
	}

	mux := http.NewServeMux()
	analytics.NewHandler(aggregator, history).Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.CORS(middleware.DefaultCORSConfig())(chain)
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

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	<-drained

	st := consumer.Stats()
	slog.Info("analytics service stopped", "messages", st.Messages, "fetch_errors", st.Errors, "lag", st.Lag)
}
