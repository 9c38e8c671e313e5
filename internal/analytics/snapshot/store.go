// Package snapshot persists periodic copies of the query analytics aggregate
// to PostgreSQL, so totals survive restarts of the analytics service.
package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS query_analytics_snapshots (
    id          BIGSERIAL   PRIMARY KEY,
    data        JSONB       NOT NULL,
    captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Source yields the aggregate to persist.
type Source interface {
	Stats() analytics.Stats
}

type Store struct {
	client *postgres.Client
	logger *slog.Logger
}

func NewStore(client *postgres.Client) *Store {
	return &Store{
		client: client,
		logger: slog.Default().With("component", "analytics-snapshots"),
	}
}

// EnsureSchema creates the snapshot table if needed.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.client.EnsureTable(ctx, "query_analytics_snapshots", schema)
}

func (s *Store) Save(ctx context.Context, stats analytics.Stats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encoding analytics snapshot: %w", err)
	}
	if _, err := s.client.DB.ExecContext(ctx,
		`INSERT INTO query_analytics_snapshots (data, captured_at) VALUES ($1, $2)`,
		data, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("saving analytics snapshot: %w", err)
	}
	s.logger.Debug("analytics snapshot saved", "total_queries", stats.TotalQueries)
	return nil
}

// Latest returns the newest snapshot, or nil when none has been saved.
func (s *Store) Latest(ctx context.Context) (*analytics.Stats, error) {
	var data []byte
	err := s.client.DB.QueryRowContext(ctx,
		`SELECT data FROM query_analytics_snapshots ORDER BY captured_at DESC, id DESC LIMIT 1`,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading latest analytics snapshot: %w", err)
	}
	var stats analytics.Stats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("decoding analytics snapshot: %w", err)
	}
	return &stats, nil
}

// Run saves src every interval until ctx ends, then saves once more.
func (s *Store) Run(ctx context.Context, src Source, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.logger.Info("periodic analytics snapshots started", "interval", interval)
	for {
		select {
		case <-ticker.C:
			if err := s.Save(ctx, src.Stats()); err != nil {
				s.logger.Error("periodic snapshot failed", "error", err)
			}
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := s.Save(final, src.Stats()); err != nil {
				s.logger.Error("final snapshot failed", "error", err)
			}
			cancel()
			return
		}
	}
}
