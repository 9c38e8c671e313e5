// Package postgres opens a pooled lib/pq connection and runs transactional
// work against it.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/resilience"
)

const connectTimeout = 5 * time.Second

type Client struct {
	DB     *sql.DB
	cfg    config.PostgresConfig
	logger *slog.Logger
}

// New opens the pool and pings the server before returning. The ping gives
// up after connectTimeout or when ctx ends, whichever is first.
func New(ctx context.Context, cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres at %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	logger := slog.Default().With("component", "postgres", "database", cfg.Database)
	logger.Info("postgres connected", "host", cfg.Host, "max_open_conns", cfg.MaxOpenConns)
	return &Client{DB: db, cfg: cfg, logger: logger}, nil
}

// Connect calls New with backoff, for services that may start before the
// database. Errors retrying cannot fix end the attempts early.
func Connect(ctx context.Context, cfg config.PostgresConfig) (*Client, error) {
	var c *Client
	err := resilience.Retry(ctx, "postgres-connect", resilience.Backoff{Attempts: 5}, func(ctx context.Context) error {
		var err error
		c, err = New(ctx, cfg)
		if IsPermanent(err) {
			return resilience.Permanent(err)
		}
		return err
	})
	return c, err
}

// IsPermanent reports whether err is a server answer that a reconnect will
// not change: rejected credentials (class 28) or an unknown database
// (class 3D).
func IsPermanent(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch pqErr.Code.Class() {
	case "28", "3D":
		return true
	}
	return false
}

// Close logs the pool's lifetime counters and closes it.
func (c *Client) Close() error {
	st := c.DB.Stats()
	c.logger.Info("closing postgres pool",
		"open", st.OpenConnections,
		"wait_count", st.WaitCount,
		"wait_duration", st.WaitDuration,
	)
	return c.DB.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// EnsureTable runs ddl, which must be idempotent, on behalf of table.
func (c *Client) EnsureTable(ctx context.Context, table, ddl string) error {
	if _, err := c.DB.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("creating %s: %w", table, err)
	}
	c.logger.Debug("table ready", "table", table)
	return nil
}

// QueryStrings runs a single-column query and collects the column in row
// order.
func (c *Client) QueryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := c.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return out, nil
}

// InTx runs fn inside a transaction, committing on success and rolling back
// when fn fails.
func (c *Client) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back transaction after error %v: %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}
