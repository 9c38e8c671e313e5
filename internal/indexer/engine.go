// Package indexer builds the keyword index from a corpus: it loads the noise
// words and the manifest, then counts and merges every listed document in
// manifest order.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/indexer/source"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/tracing"
)

// Sources bundles the inputs of a build.
type Sources struct {
	Manifest   source.ManifestSource
	NoiseWords source.NoiseWordSource
	Documents  source.TokenSource
}

// BuildReport summarizes a finished build.
type BuildReport struct {
	Documents   int           `json:"documents"`
	Skipped     []string      `json:"skipped,omitempty"`
	Keywords    int           `json:"keywords"`
	Occurrences int           `json:"occurrences"`
	Probes      int           `json:"probes"`
	NoiseWords  int           `json:"noise_words"`
	Duration    time.Duration `json:"duration"`
	BuiltAt     time.Time     `json:"built_at"`

	// Phases holds the wall time of noise_words, manifest, documents and
	// freeze.
	Phases map[string]time.Duration `json:"phases"`
}

// Engine runs index builds. It holds no index itself; every Build starts from
// an empty MemoryIndex.
type Engine struct {
	src     Sources
	metrics *metrics.Metrics
	logger  *slog.Logger

	normalizer *tokenizer.Normalizer
	report     BuildReport
}

// NewEngine creates an Engine over src. m may be nil.
func NewEngine(src Sources, m *metrics.Metrics) *Engine {
	return &Engine{
		src:     src,
		metrics: m,
		logger:  slog.Default().With("component", "indexer"),
	}
}

// Build indexes every manifest document in order and returns the frozen
// index. The first failure aborts the build and no index is returned.
func (e *Engine) Build(ctx context.Context) (*index.Snapshot, error) {
	start := time.Now()
	traceID := logger.RequestID(ctx)
	if traceID == "" {
		traceID = fmt.Sprintf("build-%d", start.UnixNano())
	}
	ctx, root := tracing.StartSpan(ctx, "index_build", traceID)
	defer func() {
		root.End()
		root.Log(e.logger)
	}()

	_, span := tracing.StartChildSpan(ctx, "noise_words")
	noise, err := e.src.NoiseWords.Load(ctx)
	span.End()
	if err != nil {
		return nil, fmt.Errorf("loading noise words: %w", err)
	}
	normalizer := tokenizer.NewNormalizer(noise)

	_, span = tracing.StartChildSpan(ctx, "manifest")
	docs, err := e.src.Manifest.List(ctx)
	span.End()
	if err != nil {
		return nil, fmt.Errorf("listing manifest: %w", err)
	}
	e.logger.Info("index build started",
		"documents", len(docs),
		"noise_words", normalizer.NoiseWords(),
	)

	mem := index.NewMemoryIndex()
	if e.metrics != nil {
		mem.OnProbe(func(n int) { e.metrics.InsertProbes.Observe(float64(n)) })
	}

	report := BuildReport{NoiseWords: normalizer.NoiseWords()}
	_, span = tracing.StartChildSpan(ctx, "documents")
	for _, docID := range docs {
		if err := ctx.Err(); err != nil {
			span.End()
			return nil, fmt.Errorf("index build interrupted: %w", err)
		}
		dk, err := e.countDocument(ctx, docID, normalizer)
		if err != nil {
			span.End()
			return nil, err
		}
		stats, err := mem.MergeDocument(dk)
		if errors.Is(err, apperrors.ErrDocumentExists) {
			e.logger.Warn("duplicate manifest entry skipped", "doc_id", docID)
			report.Skipped = append(report.Skipped, docID)
			continue
		}
		if err != nil {
			span.End()
			return nil, fmt.Errorf("merging %s: %w", docID, err)
		}
		report.Probes += stats.Probes
		if e.metrics != nil {
			e.metrics.DocsIndexedTotal.Inc()
		}
		e.logger.Debug("document indexed",
			"doc_id", docID,
			"keywords", stats.Keywords,
			"new_keywords", stats.NewKeywords,
			"probes", stats.Probes,
		)
	}

	span.SetAttr("documents", mem.DocCount())
	span.End()

	_, span = tracing.StartChildSpan(ctx, "freeze")
	snap := mem.Freeze()
	span.End()
	root.End()
	st := snap.Stats()
	report.Documents = st.Documents
	report.Keywords = st.Keywords
	report.Occurrences = st.Occurrences
	report.Duration = time.Since(start)
	report.BuiltAt = time.Now().UTC()
	report.Phases = root.Phases()

	if e.metrics != nil {
		e.metrics.BuildDuration.Observe(report.Duration.Seconds())
		e.metrics.KeywordsIndexed.Set(float64(st.Keywords))
		e.metrics.OccurrencesIndexed.Set(float64(st.Occurrences))
	}
	e.normalizer = normalizer
	e.report = report

	e.logger.Info("index build completed",
		"documents", st.Documents,
		"keywords", st.Keywords,
		"occurrences", st.Occurrences,
		"skipped", len(report.Skipped),
		"duration", report.Duration,
	)
	return snap, nil
}

func (e *Engine) countDocument(ctx context.Context, docID string, n *tokenizer.Normalizer) (*index.DocumentKeywords, error) {
	stream, err := e.src.Documents.Open(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", docID, err)
	}
	defer stream.Close()
	return index.CountKeywords(docID, stream, n)
}

// Normalizer returns the normalizer of the last successful build, so queries
// normalize keywords with the same noise words. It is nil before Build.
func (e *Engine) Normalizer() *tokenizer.Normalizer {
	return e.normalizer
}

// Report returns the summary of the last successful build.
func (e *Engine) Report() BuildReport {
	return e.report
}
