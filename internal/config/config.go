// Package config loads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"metar_parser/internal/storage"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string        `validate:"required"`
	LogLevel        string        `validate:"oneof=debug info warn error"`
	LogFormat       string        `validate:"oneof=json text"`
	ShutdownTimeout time.Duration `validate:"gt=0"`
	APIKey          string

	SQLitePath string

	Postgres   storage.PostgresConfig
	ClickHouse storage.ClickHouseConfig

	NATSURL        string `validate:"required,url"`
	RawSubject     string `validate:"required"`
	DecodedSubject string `validate:"required"`
	QueueGroup     string

	KafkaBrokers []string `validate:"dive,hostname_port"`
	KafkaTopic   string   `validate:"required_with=KafkaBrokers"`

	Workers int `validate:"gte=1,lte=256"`

	StaleAfter         time.Duration `validate:"gt=0"`
	StaleSweepInterval time.Duration `validate:"gte=1m"`
}

var validate = validator.New()

// Load reads configuration from a .env file if present and then from the
// environment, applying defaults where unset.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	shutdownTimeout, err := envDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	staleAfter, err := envDuration("STALE_AFTER", "2h")
	if err != nil {
		return nil, err
	}
	staleSweep, err := envDuration("STALE_SWEEP_INTERVAL", "5m")
	if err != nil {
		return nil, err
	}

	defaults := storage.DefaultConfig()
	pgPort, err := envInt("POSTGRES_PORT", defaults.Postgres.Port)
	if err != nil {
		return nil, err
	}
	chPort, err := envInt("CLICKHOUSE_PORT", defaults.ClickHouse.Port)
	if err != nil {
		return nil, err
	}
	workers, err := envInt("WORKERS", 4)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        strings.ToLower(envOrDefault("LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(envOrDefault("LOG_FORMAT", "json")),
		ShutdownTimeout: shutdownTimeout,
		APIKey:          os.Getenv("API_KEY"),

		SQLitePath: envOrDefault("SQLITE_PATH", "metar.db"),

		Postgres: storage.PostgresConfig{
			Host:     envOrDefault("POSTGRES_HOST", defaults.Postgres.Host),
			Port:     pgPort,
			Database: envOrDefault("POSTGRES_DB", defaults.Postgres.Database),
			User:     envOrDefault("POSTGRES_USER", defaults.Postgres.User),
			Password: envOrDefault("POSTGRES_PASSWORD", defaults.Postgres.Password),
		},
		ClickHouse: storage.ClickHouseConfig{
			Host:     envOrDefault("CLICKHOUSE_HOST", defaults.ClickHouse.Host),
			Port:     chPort,
			Database: envOrDefault("CLICKHOUSE_DB", defaults.ClickHouse.Database),
			User:     envOrDefault("CLICKHOUSE_USER", defaults.ClickHouse.User),
			Password: envOrDefault("CLICKHOUSE_PASSWORD", defaults.ClickHouse.Password),
		},

		NATSURL:        envOrDefault("NATS_URL", "nats://localhost:4222"),
		RawSubject:     envOrDefault("NATS_RAW_SUBJECT", "metar.raw"),
		DecodedSubject: envOrDefault("NATS_DECODED_SUBJECT", "metar.decoded"),
		QueueGroup:     envOrDefault("NATS_QUEUE_GROUP", "metar-ingest"),

		KafkaBrokers: parseList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "metar-decoded"),

		Workers: workers,

		StaleAfter:         staleAfter,
		StaleSweepInterval: staleSweep,
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Storage returns the database settings for storage.Open.
func (c *Config) Storage() storage.Config {
	return storage.Config{ClickHouse: c.ClickHouse, Postgres: c.Postgres}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

// parseList splits a comma-separated list, dropping empty entries.
func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
