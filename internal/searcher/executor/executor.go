// Package executor answers query plans against a built index snapshot.
package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/metrics"
)

// SearchResult is the answer to one query.
type SearchResult struct {
	Query     string         `json:"query"`
	Keywords  []string       `json:"keywords"`
	Limit     int            `json:"limit"`
	Results   []merger.Hit   `json:"results"`
	TermStats map[string]int `json:"term_stats"`
}

// Executor runs queries. The snapshot is shared and never modified, so one
// Executor serves any number of concurrent requests.
type Executor struct {
	snap       *index.Snapshot
	defaultK   int
	maxResults int
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// New creates an Executor over snap. maxResults caps the k of any query; zero
// means no cap. m may be nil.
func New(snap *index.Snapshot, maxResults int, m *metrics.Metrics) *Executor {
	return &Executor{
		snap:       snap,
		defaultK:   merger.DefaultK,
		maxResults: maxResults,
		metrics:    m,
		logger:     slog.Default().With("component", "query-executor"),
	}
}

// SetDefaultLimit changes the k used for requests that name none. Call it
// before serving queries.
func (e *Executor) SetDefaultLimit(k int) {
	if k > 0 {
		e.defaultK = k
	}
}

// Limit returns the number of results a request for k will return at most.
func (e *Executor) Limit(k int) int {
	if k <= 0 {
		k = e.defaultK
	}
	if e.maxResults > 0 && k > e.maxResults {
		k = e.maxResults
	}
	return k
}

// Execute returns the top documents for plan. A keyword missing from the
// index contributes nothing; it is not an error.
func (e *Executor) Execute(ctx context.Context, plan *parser.QueryPlan, k int) (*SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	limit := e.Limit(k)
	t1 := e.term(plan.Keyword1)
	t2 := e.term(plan.Keyword2)

	termStats := make(map[string]int, 2)
	for _, t := range []merger.Term{t1, t2} {
		if t.Keyword != "" {
			termStats[t.Keyword] = len(t.Occurrences)
		}
	}

	hits := merger.TopK(t1, t2, limit)
	if e.metrics != nil {
		resultType := "hit"
		if len(hits) == 0 {
			resultType = "zero_result"
		}
		e.metrics.QueriesTotal.WithLabelValues(resultType).Inc()
		e.metrics.QueryResultsCount.Observe(float64(len(hits)))
	}
	e.logger.Debug("query executed",
		"request_id", logger.RequestID(ctx),
		"query", plan.RawQuery,
		"keywords", plan.Keywords(),
		"limit", limit,
		"results", len(hits),
	)
	return &SearchResult{
		Query:     plan.RawQuery,
		Keywords:  plan.Keywords(),
		Limit:     limit,
		Results:   hits,
		TermStats: termStats,
	}, nil
}

func (e *Executor) term(keyword string) merger.Term {
	if keyword == "" {
		return merger.Term{}
	}
	return merger.Term{Keyword: keyword, Occurrences: e.snap.Occurrences(keyword)}
}

// Occurrences returns a copy of the ranked list for keyword.
func (e *Executor) Occurrences(keyword string) index.OccurrenceList {
	list := e.snap.Occurrences(keyword)
	if list == nil {
		return nil
	}
	out := make(index.OccurrenceList, len(list))
	copy(out, list)
	return out
}

// Stats returns the snapshot's size.
func (e *Executor) Stats() index.Stats {
	return e.snap.Stats()
}
