// Package handler exposes the keyword index over HTTP: two-keyword search,
// per-keyword inspection, index statistics and query cache control.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/metrics"
)

// Searcher answers queries over a built index.
type Searcher interface {
	Execute(ctx context.Context, plan *parser.QueryPlan, k int) (*executor.SearchResult, error)
	Limit(k int) int
	Occurrences(keyword string) index.OccurrenceList
	Stats() index.Stats
}

// ResultCache caches search results.
type ResultCache interface {
	GetOrCompute(ctx context.Context, plan *parser.QueryPlan, limit int,
		compute func() (*executor.SearchResult, error)) (*executor.SearchResult, bool, error)
	Invalidate(ctx context.Context) (int64, error)
	Stats() cache.Stats
}

// Tracker receives one analytics event per search request.
type Tracker interface {
	Track(ev analytics.QueryEvent)
}

// Options carries the optional collaborators of a Handler. Nil fields are
// skipped.
type Options struct {
	Cache   ResultCache
	Tracker Tracker
	Metrics *metrics.Metrics
	Build   indexer.BuildReport
}

type Handler struct {
	searcher   Searcher
	normalizer parser.Normalizer
	opts       Options
	logger     *slog.Logger
}

func New(s Searcher, n parser.Normalizer, opts Options) *Handler {
	return &Handler{
		searcher:   s,
		normalizer: n,
		opts:       opts,
		logger:     slog.Default().With("component", "search-handler"),
	}
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/keywords/{keyword}", h.Keyword)
	mux.HandleFunc("GET /api/v1/index/stats", h.IndexStats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// Search handles GET /api/v1/search. The keywords come either from q
// ("alice", "alice rabbit", "alice OR rabbit") or from kw1 and kw2; k bounds
// the result count.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	q := r.URL.Query()

	k, err := parseK(q.Get("k"))
	if err != nil {
		h.reject(w, r, q.Get("q"), err)
		return
	}

	var plan *parser.QueryPlan
	if q.Has("q") {
		plan, err = parser.Parse(h.normalizer, q.Get("q"))
	} else {
		plan, err = parser.FromKeywords(h.normalizer, q.Get("kw1"), q.Get("kw2"))
	}
	if err != nil {
		h.reject(w, r, q.Get("q"), err)
		return
	}

	limit := h.searcher.Limit(k)
	compute := func() (*executor.SearchResult, error) {
		return h.searcher.Execute(ctx, plan, limit)
	}
	var (
		result   *executor.SearchResult
		cacheHit bool
	)
	if h.opts.Cache != nil && !plan.Empty() {
		result, cacheHit, err = h.opts.Cache.GetOrCompute(ctx, plan, limit, compute)
	} else {
		result, err = compute()
	}
	elapsed := time.Since(start)
	if err != nil {
		logger.FromContext(ctx).Error("search failed", "query", plan.RawQuery, "error", err)
		h.track(ctx, analytics.QueryEvent{Query: plan.RawQuery, Keywords: plan.Keywords(), Limit: limit, Outcome: analytics.OutcomeError}, elapsed)
		if h.opts.Metrics != nil {
			h.opts.Metrics.QueriesTotal.WithLabelValues("error").Inc()
		}
		h.writeError(w, err)
		return
	}

	if h.opts.Metrics != nil {
		status := "miss"
		switch {
		case h.opts.Cache == nil:
			status = "disabled"
		case cacheHit:
			status = "hit"
		}
		h.opts.Metrics.QueryLatency.WithLabelValues(status).Observe(elapsed.Seconds())
	}
	outcome := analytics.OutcomeHit
	if len(result.Results) == 0 {
		outcome = analytics.OutcomeZeroResult
	}
	h.track(ctx, analytics.QueryEvent{
		Query:    plan.RawQuery,
		Keywords: plan.Keywords(),
		Limit:    limit,
		Returned: len(result.Results),
		Outcome:  outcome,
		CacheHit: cacheHit,
	}, elapsed)
	logger.FromContext(ctx).Info("search completed",
		"query", plan.RawQuery,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency", elapsed,
	)

	w.Header().Set("X-Cache", strconv.FormatBool(cacheHit))
	h.writeJSON(w, http.StatusOK, result)
}

// KeywordResponse is the ranked occurrence list of one keyword.
type KeywordResponse struct {
	Raw         string               `json:"raw"`
	Keyword     string               `json:"keyword"`
	Indexed     bool                 `json:"indexed"`
	Occurrences index.OccurrenceList `json:"occurrences"`
}

// Keyword handles GET /api/v1/keywords/{keyword}.
func (h *Handler) Keyword(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("keyword")
	kw, ok := h.normalizer.Keyword(raw)
	if !ok {
		h.writeError(w, apperrors.Newf(apperrors.ErrInvalidQuery, http.StatusBadRequest,
			"%q is not a keyword", raw))
		return
	}
	occs := h.searcher.Occurrences(kw)
	if occs == nil {
		occs = index.OccurrenceList{}
	}
	h.writeJSON(w, http.StatusOK, KeywordResponse{
		Raw:         raw,
		Keyword:     kw,
		Indexed:     len(occs) > 0,
		Occurrences: occs,
	})
}

// IndexStatsResponse describes the served index.
type IndexStatsResponse struct {
	index.Stats
	Build indexer.BuildReport `json:"build"`
}

// IndexStats handles GET /api/v1/index/stats.
func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, IndexStatsResponse{Stats: h.searcher.Stats(), Build: h.opts.Build})
}

// CacheStats handles GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.opts.Cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	st := h.opts.Cache.Stats()
	var hitRate float64
	if total := st.Hits + st.Misses; total > 0 {
		hitRate = float64(st.Hits) / float64(total)
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":   "enabled",
		"hits":     st.Hits,
		"misses":   st.Misses,
		"errors":   st.Errors,
		"hit_rate": hitRate,
		"breaker":  st.Breaker,
	})
}

// CacheInvalidate handles POST /api/v1/cache/invalidate.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.opts.Cache == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "caching is disabled"})
		return
	}
	n, err := h.opts.Cache.Invalidate(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("cache invalidation failed", "error", err)
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": n})
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request, query string, err error) {
	if h.opts.Metrics != nil {
		h.opts.Metrics.QueriesTotal.WithLabelValues("invalid").Inc()
	}
	h.track(r.Context(), analytics.QueryEvent{Query: query, Outcome: analytics.OutcomeInvalid}, 0)
	h.writeError(w, err)
}

func (h *Handler) track(ctx context.Context, ev analytics.QueryEvent, elapsed time.Duration) {
	if h.opts.Tracker == nil {
		return
	}
	ev.LatencyUs = elapsed.Microseconds()
	ev.Timestamp = time.Now().UTC()
	ev.RequestID = logger.RequestID(ctx)
	h.opts.Tracker.Track(ev)
}

func parseK(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	k, err := strconv.Atoi(s)
	if err != nil || k < 1 {
		return 0, apperrors.New(apperrors.ErrInvalidQuery, http.StatusBadRequest, "k must be a positive integer")
	}
	return k, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status, body := apperrors.Response(err)
	h.writeJSON(w, status, body)
}
