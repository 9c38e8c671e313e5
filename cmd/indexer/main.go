// Command indexer builds the keyword index from the configured corpus once and
// prints the build report as JSON, so a corpus can be checked before the
// searcher serves it. It exits non-zero when the build fails, and with
// -require-docs when the corpus indexes no documents.
//
// Usage:
//
//	go run ./cmd/indexer [-config configs/development.yaml] [-require-docs]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	requireDocs := flag.Bool("require-docs", false, "fail when the corpus indexes no documents")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting index build", "manifest_source", cfg.Corpus.ManifestSource)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pg *postgres.Client
	if cfg.Corpus.ManifestSource == config.ManifestSourcePostgres {
		pg, err = postgres.Connect(ctx, cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
	}

	src, err := indexer.SourcesFromConfig(cfg.Corpus, pg)
	if err != nil {
		slog.Error("invalid corpus configuration", "error", err)
		os.Exit(1)
	}
	engine := indexer.NewEngine(src, nil)
	snap, err := engine.Build(ctx)
	if err != nil {
		slog.Error("index build failed", "error", err)
		os.Exit(1)
	}
	report := engine.Report()
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		slog.Error("failed to print build report", "error", err)
		os.Exit(1)
	}
	slog.Info("index build checked", "fingerprint", snap.Fingerprint(), "documents", report.Documents)
	if *requireDocs && report.Documents == 0 {
		slog.Error("corpus indexed no documents")
		os.Exit(3)
	}
}
