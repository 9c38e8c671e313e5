package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, ManifestSourceFile, cfg.Corpus.ManifestSource)
	assert.Equal(t, "noisewords.txt", cfg.Corpus.NoiseWordsPath)
	assert.Equal(t, 5, cfg.Search.DefaultLimit)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, 100, cfg.Analytics.BatchSize)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9999
corpus:
  manifestPath: /data/docs.txt
  noiseWordsPath: /data/noise.txt
  resolveRelative: true
search:
  defaultLimit: 3
  maxResults: 10
redis:
  enabled: true
  cacheTTL: 2m
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "/data/docs.txt", cfg.Corpus.ManifestPath)
	assert.True(t, cfg.Corpus.ResolveRelative)
	assert.Equal(t, 3, cfg.Search.DefaultLimit)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 2*time.Minute, cfg.Redis.CacheTTL)
	// untouched sections keep their defaults
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("KS_SERVER_PORT", "7070")
	t.Setenv("KS_CORPUS_MANIFEST_PATH", "/env/docs.txt")
	t.Setenv("KS_KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("KS_REDIS_ENABLED", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "/env/docs.txt", cfg.Corpus.ManifestPath)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Redis.Enabled)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown manifest source", func(c *Config) { c.Corpus.ManifestSource = "s3" }},
		{"missing manifest path", func(c *Config) { c.Corpus.ManifestPath = "" }},
		{"postgres without name", func(c *Config) {
			c.Corpus.ManifestSource = ManifestSourcePostgres
			c.Corpus.ManifestName = ""
		}},
		{"missing noise words", func(c *Config) { c.Corpus.NoiseWordsPath = "" }},
		{"zero default limit", func(c *Config) { c.Search.DefaultLimit = 0 }},
		{"max below default", func(c *Config) { c.Search.MaxResults = 1 }},
		{"negative rate", func(c *Config) { c.Search.RequestsPerSecond = -1 }},
		{"buffer below batch", func(c *Config) { c.Analytics.BufferSize = c.Analytics.BatchSize - 1 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, defaultConfig().Validate())
}

func TestLoadDevelopmentConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "development.yaml"))
	require.NoError(t, err)
	assert.True(t, cfg.Corpus.ResolveRelative)
	assert.Equal(t, "query-events", cfg.Kafka.Topics.QueryEvents)
	assert.Equal(t, 2*time.Second, cfg.Analytics.FlushInterval)
}

func TestLoadRejectsMalformedEnv(t *testing.T) {
	t.Setenv("KS_SERVER_PORT", "eighty")
	t.Setenv("KS_REDIS_ENABLED", "maybe")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KS_SERVER_PORT")
	assert.Contains(t, err.Error(), "KS_REDIS_ENABLED")
}

func TestLoadNumericEnvOverrides(t *testing.T) {
	t.Setenv("KS_SEARCH_REQUESTS_PER_SECOND", "2.5")
	t.Setenv("KS_METRICS_ENABLED", "false")
	t.Setenv("KS_METRICS_PORT", "9191")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 2.5, cfg.Search.RequestsPerSecond)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9191, cfg.Metrics.Port)
}
