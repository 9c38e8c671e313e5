// Package cache keeps query results in Redis so repeated queries skip the
// merge. Keys are namespaced by index build, and concurrent misses for the
// same key are collapsed into one computation.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/resilience"
)

const keyPrefix = "kwsearch:"

// Store is the subset of the Redis client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Stats reports cache effectiveness.
type Stats struct {
	Hits    int64             `json:"hits"`
	Misses  int64             `json:"misses"`
	Errors  int64             `json:"errors"`
	Breaker resilience.Counts `json:"breaker"`
}

// QueryCache caches SearchResults by keyword pair and limit.
type QueryCache struct {
	store     Store
	ttl       time.Duration
	namespace string
	breaker   *resilience.Breaker
	metrics   *metrics.Metrics
	group     singleflight.Group
	logger    *slog.Logger
	hits      atomic.Int64
	misses    atomic.Int64
	errors    atomic.Int64
}

// New creates a QueryCache. namespace separates results of different index
// builds; m may be nil.
func New(store Store, ttl time.Duration, namespace string, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		store:     store,
		ttl:       ttl,
		namespace: namespace,
		breaker: resilience.NewBreaker("query-cache", resilience.BreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     10 * time.Second,
			IsFailure:        func(err error) bool { return err != nil && !pkgredis.IsNil(err) },
		}),
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// Get returns the cached result for plan and limit, if any. Store failures
// are logged and reported as a miss.
func (c *QueryCache) Get(ctx context.Context, plan *parser.QueryPlan, limit int) (*executor.SearchResult, bool) {
	key := c.Key(plan, limit)
	var data string
	err := c.breaker.Do(func() error {
		var err error
		data, err = c.store.Get(ctx, key)
		return err
	})
	if err != nil {
		if !pkgredis.IsNil(err) {
			c.errors.Add(1)
			c.logger.Warn("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return nil, false
	}
	var result executor.SearchResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.errors.Add(1)
		c.logger.Error("cache entry undecodable", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	// Keys hold normalized keywords, so the entry may have been stored by a
	// differently spelled query.
	result.Query = plan.RawQuery
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	return &result, true
}

// Set stores result for plan and limit. Failures are logged, not returned.
func (c *QueryCache) Set(ctx context.Context, plan *parser.QueryPlan, limit int, result *executor.SearchResult) {
	key := c.Key(plan, limit)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Do(func() error {
		return c.store.Set(ctx, key, data, c.ttl)
	})
	if err != nil {
		c.errors.Add(1)
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result or computes, stores and returns it.
// The bool reports a cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	plan *parser.QueryPlan,
	limit int,
	compute func() (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	if result, ok := c.Get(ctx, plan, limit); ok {
		return result, true, nil
	}
	val, err, _ := c.group.Do(c.Key(plan, limit), func() (any, error) {
		result, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, plan, limit, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	shared := val.(*executor.SearchResult)
	if shared.Query == plan.RawQuery {
		return shared, false, nil
	}
	own := *shared
	own.Query = plan.RawQuery
	return &own, false, nil
}

// Invalidate removes every entry of this cache's namespace.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	pattern := keyPrefix + c.namespace + ":*"
	deleted, err := c.store.FlushByPattern(ctx, pattern)
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	// The store answered, so stop short-circuiting to the executor.
	c.breaker.Reset()
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Errors:  c.errors.Load(),
		Breaker: c.breaker.Counts(),
	}
}

// Key returns the store key for plan and limit. Keyword order is part of the
// key because it decides ties.
func (c *QueryCache) Key(plan *parser.QueryPlan, limit int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s\x00%s\x00%d", plan.Keyword1, plan.Keyword2, limit)))
	return fmt.Sprintf("%s%s:%x", keyPrefix, c.namespace, sum[:16])
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}
