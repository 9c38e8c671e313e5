package snapshot

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/postgres"
)

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func testClient(t *testing.T) *postgres.Client {
	t.Helper()
	port, _ := strconv.Atoi(envOrDefault("TEST_POSTGRES_PORT", "5432"))
	client, err := postgres.New(context.Background(), config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            port,
		Database:        envOrDefault("TEST_POSTGRES_DB", "keywordsearch_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "keywordsearch"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	})
	if err != nil {
		t.Skipf("skipping: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestSaveAndLatest(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()
	store := NewStore(client)
	require.NoError(t, store.EnsureSchema(ctx))

	agg := analytics.NewAggregator(5)
	agg.Record(analytics.QueryEvent{Query: "alice", Keywords: []string{"alice"}, Outcome: analytics.OutcomeHit})
	require.NoError(t, store.Save(ctx, agg.Stats()))

	agg.Record(analytics.QueryEvent{Query: "rabbit", Keywords: []string{"rabbit"}, Outcome: analytics.OutcomeHit})
	require.NoError(t, store.Save(ctx, agg.Stats()))

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, int64(2), latest.TotalQueries)
}
