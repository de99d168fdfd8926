// Package config loads application configuration from YAML files with
// environment-variable overrides. It provides typed structs for every
// subsystem (Server, Search, Source, Postgres, Redis, Kafka, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Source kinds understood by the searcher.
const (
	SourceWikipedia = "wikipedia"
	SourceFile      = "file"
	SourcePostgres  = "postgres"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Search   SearchConfig   `yaml:"search"`
	Source   SourceConfig   `yaml:"source"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	// RateLimitRPS is the per-client request budget; 0 disables limiting.
	RateLimitRPS   float64 `yaml:"rateLimitRPS"`
	RateLimitBurst int     `yaml:"rateLimitBurst"`
}

// SearchConfig controls ranked-result limits.
type SearchConfig struct {
	DefaultTopK int `yaml:"defaultTopK"`
	MaxTopK     int `yaml:"maxTopK"`
}

// SourceConfig selects where the corpus comes from and how it is fetched.
type SourceConfig struct {
	Kind          string        `yaml:"kind"`
	Topics        []string      `yaml:"topics"`
	BaseURL       string        `yaml:"baseURL"`
	UserAgent     string        `yaml:"userAgent"`
	FetchInterval time.Duration `yaml:"fetchInterval"`
	FetchTimeout  time.Duration `yaml:"fetchTimeout"`
	MaxAttempts   int           `yaml:"maxAttempts"`
	FilePath      string        `yaml:"filePath"`
	Table         string        `yaml:"table"`
	LoadTimeout   time.Duration `yaml:"loadTimeout"`
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

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds Kafka broker and topic settings for analytics events.
type KafkaConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Brokers        []string      `yaml:"brokers"`
	AnalyticsTopic string        `yaml:"analyticsTopic"`
	ConsumerGroup  string        `yaml:"consumerGroup"`
	BatchSize      int           `yaml:"batchSize"`
	FlushInterval  time.Duration `yaml:"flushInterval"`
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

// DefaultTopics are the Wikipedia articles crawled when none are configured.
var DefaultTopics = []string{
	"Information_retrieval",
	"Machine_learning",
	"Natural_language_processing",
	"Data_mining",
	"Search_engine",
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. Missing values keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Default returns a Config suitable for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RequestTimeout:  5 * time.Second,
			RateLimitRPS:    50,
			RateLimitBurst:  100,
		},
		Search: SearchConfig{
			DefaultTopK: 10,
			MaxTopK:     100,
		},
		Source: SourceConfig{
			Kind:          SourceWikipedia,
			Topics:        append([]string(nil), DefaultTopics...),
			BaseURL:       "https://en.wikipedia.org/wiki/",
			UserAgent:     "irsearch/1.0",
			FetchInterval: time.Second,
			FetchTimeout:  15 * time.Second,
			MaxAttempts:   3,
			Table:         "documents",
			LoadTimeout:   5 * time.Minute,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "irsearch",
			User:            "irsearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Enabled:  false,
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Kafka: KafkaConfig{
			Enabled:        false,
			Brokers:        []string{"localhost:9092"},
			AnalyticsTopic: "search-analytics",
			ConsumerGroup:  "irsearch-analytics",
			BatchSize:      100,
			FlushInterval:  5 * time.Second,
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

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	switch c.Source.Kind {
	case SourceWikipedia, SourceFile, SourcePostgres:
	default:
		return fmt.Errorf("unknown source kind %q", c.Source.Kind)
	}
	if c.Source.Kind == SourceFile && c.Source.FilePath == "" {
		return fmt.Errorf("source.filePath is required for the file source")
	}
	if c.Search.DefaultTopK < 1 {
		return fmt.Errorf("search.defaultTopK must be positive, got %d", c.Search.DefaultTopK)
	}
	if c.Search.MaxTopK < c.Search.DefaultTopK {
		return fmt.Errorf("search.maxTopK (%d) must be at least defaultTopK (%d)", c.Search.MaxTopK, c.Search.DefaultTopK)
	}
	return nil
}

// applyEnvOverrides reads IRS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("IRS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("IRS_SOURCE_KIND"); v != "" {
		cfg.Source.Kind = v
	}
	if v := os.Getenv("IRS_SOURCE_TOPICS"); v != "" {
		cfg.Source.Topics = strings.Split(v, ",")
	}
	if v := os.Getenv("IRS_SOURCE_FILE"); v != "" {
		cfg.Source.FilePath = v
	}
	if v := os.Getenv("IRS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("IRS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("IRS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("IRS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("IRS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("IRS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("IRS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("IRS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
		cfg.Kafka.Enabled = true
	}
	if v := os.Getenv("IRS_KAFKA_GROUP"); v != "" {
		cfg.Kafka.ConsumerGroup = v
	}
	if v := os.Getenv("IRS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("IRS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
