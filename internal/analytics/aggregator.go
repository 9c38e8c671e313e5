package analytics

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/kafka"
)

const latencyWindow = 10000

// Stats is the aggregate view of all consumed query events.
type Stats struct {
	TotalQueries      int64          `json:"total_queries"`
	CacheHits         int64          `json:"cache_hits"`
	ZeroResults       int64          `json:"zero_results"`
	Invalid           int64          `json:"invalid"`
	Errors            int64          `json:"errors"`
	AvgLatencyUs      float64        `json:"avg_latency_us"`
	P50LatencyUs      int64          `json:"p50_latency_us"`
	P95LatencyUs      int64          `json:"p95_latency_us"`
	P99LatencyUs      int64          `json:"p99_latency_us"`
	TopKeywords       []KeywordCount `json:"top_keywords"`
	ZeroResultQueries []KeywordCount `json:"zero_result_queries"`
	QueriesPerMinute  float64        `json:"queries_per_minute"`
	Since             time.Time      `json:"since"`
}

// KeywordCount is a keyword or query with how often it was seen.
type KeywordCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// Aggregator folds QueryEvents into running totals. Latency percentiles are
// computed over the most recent events only.
type Aggregator struct {
	mu          sync.Mutex
	stats       Stats
	latencies   []int64
	next        int
	keywords    map[string]int64
	zeroQueries map[string]int64
	topN        int
	now         func() time.Time
	logger      *slog.Logger
}

// NewAggregator creates an empty Aggregator reporting topN terms per list.
func NewAggregator(topN int) *Aggregator {
	if topN <= 0 {
		topN = 10
	}
	a := &Aggregator{
		latencies:   make([]int64, 0, latencyWindow),
		keywords:    make(map[string]int64),
		zeroQueries: make(map[string]int64),
		topN:        topN,
		now:         time.Now,
		logger:      slog.Default().With("component", "analytics-aggregator"),
	}
	a.stats.Since = a.now().UTC()
	return a
}

// Handle is a kafka.Handler. Undecodable or foreign messages are logged and
// acknowledged so they are not redelivered forever.
func (a *Aggregator) Handle(ctx context.Context, msg kafka.Message) error {
	if msg.Type != "" && msg.Type != EventTypeQuery {
		return nil
	}
	ev, err := kafka.DecodeJSON[QueryEvent](msg.Value)
	if err != nil {
		a.logger.Warn("skipping undecodable analytics event", "error", err)
		return nil
	}
	a.Record(ev)
	return nil
}

// Record adds one event.
func (a *Aggregator) Record(ev QueryEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stats.TotalQueries++
	switch ev.Outcome {
	case OutcomeInvalid:
		a.stats.Invalid++
		return
	case OutcomeError:
		a.stats.Errors++
		return
	case OutcomeZeroResult:
		a.stats.ZeroResults++
		a.zeroQueries[ev.Query]++
	}
	if ev.CacheHit {
		a.stats.CacheHits++
	}
	for _, kw := range ev.Keywords {
		a.keywords[kw]++
	}
	if len(a.latencies) < latencyWindow {
		a.latencies = append(a.latencies, ev.LatencyUs)
	} else {
		a.latencies[a.next] = ev.LatencyUs
		a.next = (a.next + 1) % latencyWindow
	}
}

// Stats returns a copy of the current aggregate.
func (a *Aggregator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := a.stats
	if len(a.latencies) > 0 {
		sorted := slices.Clone(a.latencies)
		slices.Sort(sorted)
		var sum int64
		for _, l := range sorted {
			sum += l
		}
		out.AvgLatencyUs = float64(sum) / float64(len(sorted))
		out.P50LatencyUs = percentile(sorted, 50)
		out.P95LatencyUs = percentile(sorted, 95)
		out.P99LatencyUs = percentile(sorted, 99)
	}
	out.TopKeywords = topN(a.keywords, a.topN)
	out.ZeroResultQueries = topN(a.zeroQueries, a.topN)
	if minutes := a.now().Sub(a.stats.Since).Minutes(); minutes > 0 {
		out.QueriesPerMinute = float64(out.TotalQueries) / minutes
	}
	return out
}

// KeywordCount returns how many answered queries used kw.
func (a *Aggregator) KeywordCount(kw string) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.keywords[kw]
}

func percentile(sorted []int64, pct int) int64 {
	idx := pct * len(sorted) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN orders by count, then term, so equal counts list deterministically.
func topN(counts map[string]int64, n int) []KeywordCount {
	out := make([]KeywordCount, 0, len(counts))
	for term, c := range counts {
		out = append(out, KeywordCount{Term: term, Count: c})
	}
	slices.SortFunc(out, func(x, y KeywordCount) int {
		if c := cmp.Compare(y.Count, x.Count); c != 0 {
			return c
		}
		return cmp.Compare(x.Term, y.Term)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
