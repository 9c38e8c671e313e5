// Command cli builds a keyword index from local files and answers queries
// typed on standard input, printing the top documents for each.
//
// Usage:
//
//	go run ./cmd/cli [-manifest docs.txt] [-noise noisewords.txt] [-k 5] [-relative] [query]
//	go run ./cmd/cli load [-config configs/development.yaml] [-name default] docs.txt
//
// Without -manifest the file name is prompted for. With a query argument the
// CLI answers it and exits; otherwise it reads one query per line until EOF.
// The load subcommand copies a manifest file into Postgres for the searcher's
// postgres manifest source.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/indexer/source"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	if len(os.Args) > 1 && os.Args[1] == "load" {
		err = runLoad(ctx, os.Args[2:])
	} else {
		err = runSearch(ctx, os.Args[1:], os.Stdin, os.Stdout)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runSearch(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet("cli", flag.ContinueOnError)
	manifest := fs.String("manifest", "", "manifest file listing whitespace-separated document names")
	noise := fs.String("noise", "noisewords.txt", "noise-word file")
	k := fs.Int("k", 5, "documents to return per query")
	relative := fs.Bool("relative", false, "resolve documents against the manifest's directory")
	level := fs.String("log-level", "warn", "log level")
	if err := fs.Parse(args); err != nil {
		return err
	}
	logger.SetupWriter(os.Stderr, *level, "text")

	lines := bufio.NewScanner(in)
	if *manifest == "" {
		fmt.Fprintln(out, "Enter file name:")
		if !lines.Scan() {
			return errors.New("no manifest file name given")
		}
		*manifest = strings.TrimSpace(lines.Text())
	}
	snap, n, err := build(ctx, *manifest, *noise, *relative)
	if err != nil {
		return err
	}
	exec := executor.New(snap, 0, nil)

	if q := strings.Join(fs.Args(), " "); q != "" {
		return answer(ctx, out, exec, n, q, *k)
	}
	for {
		fmt.Fprint(out, "> ")
		if !lines.Scan() {
			fmt.Fprintln(out)
			return lines.Err()
		}
		q := strings.TrimSpace(lines.Text())
		if q == "" {
			continue
		}
		if err := answer(ctx, out, exec, n, q, *k); err != nil {
			if !errors.Is(err, apperrors.ErrInvalidQuery) {
				return err
			}
			fmt.Fprintf(out, "invalid query: %v\n", err)
		}
	}
}

func build(ctx context.Context, manifest, noise string, relative bool) (*index.Snapshot, parser.Normalizer, error) {
	src, err := indexer.SourcesFromConfig(config.CorpusConfig{
		ManifestSource:  config.ManifestSourceFile,
		ManifestPath:    manifest,
		NoiseWordsPath:  noise,
		ResolveRelative: relative,
	}, nil)
	if err != nil {
		return nil, nil, err
	}
	engine := indexer.NewEngine(src, nil)
	snap, err := engine.Build(ctx)
	if err != nil {
		return nil, nil, err
	}
	report := engine.Report()
	slog.Info("index built", "documents", report.Documents, "keywords", report.Keywords, "duration", report.Duration)
	return snap, engine.Normalizer(), nil
}

func answer(ctx context.Context, out io.Writer, exec *executor.Executor, n parser.Normalizer, query string, k int) error {
	plan, err := parser.Parse(n, query)
	if err != nil {
		return err
	}
	res, err := exec.Execute(ctx, plan, k)
	if err != nil {
		return err
	}
	if len(res.Results) == 0 {
		fmt.Fprintln(out, "no documents")
		return nil
	}
	for i, hit := range res.Results {
		fmt.Fprintf(out, "%d. %s (%s x%d)\n", i+1, hit.DocID, hit.Keyword, hit.Frequency)
	}
	return nil
}

func runLoad(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("load", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to config file")
	name := fs.String("name", "", "manifest name (defaults to corpus.manifestName)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: cli load [-config file] [-name manifest] <manifest file>")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logger.SetupWriter(os.Stderr, cfg.Logging.Level, "text")
	if *name == "" {
		*name = cfg.Corpus.ManifestName
	}

	docs, err := source.ManifestFile{Path: fs.Arg(0)}.List(ctx)
	if err != nil {
		return err
	}
	pg, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer pg.Close()

	m := source.NewPostgresManifest(pg, *name)
	if err := m.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := m.Replace(ctx, docs); err != nil {
		return err
	}
	slog.Info("manifest loaded", "manifest", *name, "documents", len(docs))
	return nil
}
