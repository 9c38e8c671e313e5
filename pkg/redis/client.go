// Package redis wraps go-redis/v9 for the query result cache: string get/set
// with TTL, prefix invalidation and pool statistics.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/config"
)

const scanBatch = 200

// Client wraps a go-redis client.
type Client struct {
	rdb *redis.Client
}

// NewClient connects to Redis and verifies the connection with a PING bounded
// by ctx.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return &Client{rdb: rdb}, nil
}

// Get returns the value stored at key. A missing key yields an error for which
// IsNil reports true.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return c.rdb.Get(ctx, key).Result()
}

func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// FlushByPattern deletes every key matching the glob pattern, one SCAN page
// at a time, and returns how many were removed.
func (c *Client) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	var (
		deleted int64
		cursor  uint64
	)
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return deleted, fmt.Errorf("scanning %s: %w", pattern, err)
		}
		if len(keys) > 0 {
			n, err := c.rdb.Unlink(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("unlinking %d keys: %w", len(keys), err)
			}
			deleted += n
		}
		if next == 0 {
			return deleted, nil
		}
		cursor = next
	}
}

// PoolStats reports connection pool usage.
func (c *Client) PoolStats() *redis.PoolStats {
	return c.rdb.PoolStats()
}

// LogPoolStats writes the pool's lifetime counters to logger.
func (c *Client) LogPoolStats(logger *slog.Logger) {
	st := c.PoolStats()
	logger.Info("redis pool",
		"hits", st.Hits,
		"misses", st.Misses,
		"timeouts", st.Timeouts,
		"total_conns", st.TotalConns,
		"idle_conns", st.IdleConns,
	)
}

// IsNil reports whether err means the key does not exist.
func IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
