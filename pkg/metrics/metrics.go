// Package metrics defines the Prometheus collectors for index builds, keyword
// queries, the result cache and the HTTP layer, and serves them for scraping.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors for the search service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	RateLimitedTotal     prometheus.Counter
	QueriesTotal         *prometheus.CounterVec
	QueryLatency         *prometheus.HistogramVec
	QueryResultsCount    prometheus.Histogram
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	DocsIndexedTotal     prometheus.Counter
	KeywordsIndexed      prometheus.Gauge
	OccurrencesIndexed   prometheus.Gauge
	InsertProbes         prometheus.Histogram
	BuildDuration        prometheus.Histogram
}

// New creates all collectors and registers them with reg. Passing
// prometheus.DefaultRegisterer exposes them through StartServer with a nil
// gatherer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		RateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "http_requests_rate_limited_total",
				Help: "Requests rejected by the per-client rate limiter.",
			},
		),
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keyword_queries_total",
				Help: "Total keyword queries by result type (hit, zero_result, invalid, error).",
			},
			[]string{"result_type"},
		),
		QueryLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "keyword_query_latency_seconds",
				Help:    "Keyword query latency in seconds.",
				Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
			},
			[]string{"cache_status"},
		),
		QueryResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "keyword_query_results_count",
				Help:    "Number of documents returned per keyword query.",
				Buckets: []float64{0, 1, 2, 3, 4, 5, 10, 25, 50},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "query_cache_hits_total",
				Help: "Total number of query cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "query_cache_misses_total",
				Help: "Total number of query cache misses.",
			},
		),
		DocsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docs_indexed_total",
				Help: "Total documents folded into the keyword index.",
			},
		),
		KeywordsIndexed: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_keywords",
				Help: "Distinct keywords in the built index.",
			},
		),
		OccurrencesIndexed: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_occurrences",
				Help: "Keyword occurrences (keyword, document pairs) in the built index.",
			},
		),
		InsertProbes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "index_insert_probes",
				Help:    "Binary-search probes per occurrence insertion.",
				Buckets: prometheus.LinearBuckets(0, 1, 16),
			},
		),
		BuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "index_build_duration_seconds",
				Help:    "Wall time of a full index build.",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.RateLimitedTotal,
		m.QueriesTotal,
		m.QueryLatency,
		m.QueryResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.DocsIndexedTotal,
		m.KeywordsIndexed,
		m.OccurrencesIndexed,
		m.InsertProbes,
		m.BuildDuration,
	)

	return m
}
