// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for the
// corpus sources, the search service and its backing services (Postgres,
// Redis, Kafka), logging and metrics.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Manifest source kinds accepted in CorpusConfig.ManifestSource.
const (
	ManifestSourceFile     = "file"
	ManifestSourcePostgres = "postgres"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Search    SearchConfig    `yaml:"search"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// CorpusConfig describes where the document manifest and the noise-word list
// come from.
type CorpusConfig struct {
	ManifestPath    string `yaml:"manifestPath"`
	NoiseWordsPath  string `yaml:"noiseWordsPath"`
	ManifestSource  string `yaml:"manifestSource"`
	ManifestName    string `yaml:"manifestName"`
	ResolveRelative bool   `yaml:"resolveRelative"`
}

// SearchConfig controls query limits and request throttling.
type SearchConfig struct {
	DefaultLimit      int     `yaml:"defaultLimit"`
	MaxResults        int     `yaml:"maxResults"`
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
	Burst             int     `yaml:"burst"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	QueryEvents string `yaml:"queryEvents"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// AnalyticsConfig controls query event batching and the aggregator's
// snapshot persistence.
type AnalyticsConfig struct {
	BufferSize       int           `yaml:"bufferSize"`
	BatchSize        int           `yaml:"batchSize"`
	FlushInterval    time.Duration `yaml:"flushInterval"`
	PersistSnapshots bool          `yaml:"persistSnapshots"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
	TopN             int           `yaml:"topN"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. Missing values keep their defaults. The result is validated.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate reports the first configuration problem that would prevent the
// index from being built or queried.
func (c *Config) Validate() error {
	switch c.Corpus.ManifestSource {
	case ManifestSourceFile:
		if c.Corpus.ManifestPath == "" {
			return errors.New("corpus.manifestPath is required for the file manifest source")
		}
	case ManifestSourcePostgres:
		if c.Corpus.ManifestName == "" {
			return errors.New("corpus.manifestName is required for the postgres manifest source")
		}
	default:
		return fmt.Errorf("corpus.manifestSource %q is not one of %q, %q",
			c.Corpus.ManifestSource, ManifestSourceFile, ManifestSourcePostgres)
	}
	if c.Corpus.NoiseWordsPath == "" {
		return errors.New("corpus.noiseWordsPath is required")
	}
	if c.Search.DefaultLimit < 1 {
		return fmt.Errorf("search.defaultLimit must be positive, got %d", c.Search.DefaultLimit)
	}
	if c.Search.MaxResults < c.Search.DefaultLimit {
		return fmt.Errorf("search.maxResults (%d) must be at least search.defaultLimit (%d)",
			c.Search.MaxResults, c.Search.DefaultLimit)
	}
	if c.Analytics.BatchSize < 1 || c.Analytics.BufferSize < c.Analytics.BatchSize {
		return fmt.Errorf("analytics.bufferSize (%d) must be at least analytics.batchSize (%d) and both positive",
			c.Analytics.BufferSize, c.Analytics.BatchSize)
	}
	if c.Search.RequestsPerSecond < 0 {
		return fmt.Errorf("search.requestsPerSecond must not be negative, got %v", c.Search.RequestsPerSecond)
	}
	return nil
}

// defaultConfig returns a Config with defaults for local development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Corpus: CorpusConfig{
			ManifestPath:   "docs.txt",
			NoiseWordsPath: "noisewords.txt",
			ManifestSource: ManifestSourceFile,
			ManifestName:   "default",
		},
		Search: SearchConfig{
			DefaultLimit:      5,
			MaxResults:        50,
			RequestsPerSecond: 100,
			Burst:             200,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "keywordsearch",
			User:            "keywordsearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "keywordsearch-analytics",
			Topics: KafkaTopics{
				QueryEvents: "query-events",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Analytics: AnalyticsConfig{
			BufferSize:       10000,
			BatchSize:        100,
			FlushInterval:    2 * time.Second,
			SnapshotInterval: time.Minute,
			TopN:             10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// envOverride binds one KS_* variable to a config field.
type envOverride struct {
	name  string
	apply func(cfg *Config, v string) error
}

func envString(field func(*Config) *string) func(*Config, string) error {
	return func(cfg *Config, v string) error {
		*field(cfg) = v
		return nil
	}
}

func envInt(field func(*Config) *int) func(*Config, string) error {
	return func(cfg *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("not an integer: %q", v)
		}
		*field(cfg) = n
		return nil
	}
}

func envBool(field func(*Config) *bool) func(*Config, string) error {
	return func(cfg *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("not a boolean: %q", v)
		}
		*field(cfg) = b
		return nil
	}
}

func envFloat(field func(*Config) *float64) func(*Config, string) error {
	return func(cfg *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("not a number: %q", v)
		}
		*field(cfg) = f
		return nil
	}
}

var envOverrides = []envOverride{
	{"KS_SERVER_PORT", envInt(func(c *Config) *int { return &c.Server.Port })},
	{"KS_CORPUS_MANIFEST_PATH", envString(func(c *Config) *string { return &c.Corpus.ManifestPath })},
	{"KS_CORPUS_NOISE_WORDS_PATH", envString(func(c *Config) *string { return &c.Corpus.NoiseWordsPath })},
	{"KS_CORPUS_MANIFEST_SOURCE", envString(func(c *Config) *string { return &c.Corpus.ManifestSource })},
	{"KS_CORPUS_MANIFEST_NAME", envString(func(c *Config) *string { return &c.Corpus.ManifestName })},
	{"KS_SEARCH_DEFAULT_LIMIT", envInt(func(c *Config) *int { return &c.Search.DefaultLimit })},
	{"KS_SEARCH_MAX_RESULTS", envInt(func(c *Config) *int { return &c.Search.MaxResults })},
	{"KS_SEARCH_REQUESTS_PER_SECOND", envFloat(func(c *Config) *float64 { return &c.Search.RequestsPerSecond })},
	{"KS_POSTGRES_HOST", envString(func(c *Config) *string { return &c.Postgres.Host })},
	{"KS_POSTGRES_PORT", envInt(func(c *Config) *int { return &c.Postgres.Port })},
	{"KS_POSTGRES_DATABASE", envString(func(c *Config) *string { return &c.Postgres.Database })},
	{"KS_POSTGRES_USER", envString(func(c *Config) *string { return &c.Postgres.User })},
	{"KS_POSTGRES_PASSWORD", envString(func(c *Config) *string { return &c.Postgres.Password })},
	{"KS_KAFKA_ENABLED", envBool(func(c *Config) *bool { return &c.Kafka.Enabled })},
	{"KS_KAFKA_BROKERS", func(c *Config, v string) error {
		c.Kafka.Brokers = strings.Split(v, ",")
		return nil
	}},
	{"KS_REDIS_ENABLED", envBool(func(c *Config) *bool { return &c.Redis.Enabled })},
	{"KS_REDIS_ADDR", envString(func(c *Config) *string { return &c.Redis.Addr })},
	{"KS_REDIS_PASSWORD", envString(func(c *Config) *string { return &c.Redis.Password })},
	{"KS_ANALYTICS_PERSIST_SNAPSHOTS", envBool(func(c *Config) *bool { return &c.Analytics.PersistSnapshots })},
	{"KS_METRICS_ENABLED", envBool(func(c *Config) *bool { return &c.Metrics.Enabled })},
	{"KS_METRICS_PORT", envInt(func(c *Config) *int { return &c.Metrics.Port })},
	{"KS_LOGGING_LEVEL", envString(func(c *Config) *string { return &c.Logging.Level })},
	{"KS_LOGGING_FORMAT", envString(func(c *Config) *string { return &c.Logging.Format })},
}

// applyEnvOverrides copies every set KS_* variable over the file values. A
// value that does not parse is an error rather than silently ignored.
func applyEnvOverrides(cfg *Config) error {
	var errs []error
	for _, o := range envOverrides {
		v, ok := os.LookupEnv(o.name)
		if !ok || v == "" {
			continue
		}
		if err := o.apply(cfg, v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.name, err))
		}
	}
	return errors.Join(errs...)
}
