package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every runtime setting for the chat core. Values come from the
// environment; a .env file is honored in development so local runs need no
// exported shell state.
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`
	Env  string `env:"ENV" envDefault:"development"`

	DatabaseURL string `env:"DB_URL"`
	RedisURL    string `env:"REDIS_URL"`

	// Event bus (Redis Streams) settings. Partitions bounds the worker pool
	// that preserves per-room ordering; Group identifies this service in the
	// consumer group, Consumer names the running instance.
	BusGroup      string        `env:"BUS_GROUP" envDefault:"chat-core"`
	BusConsumer   string        `env:"BUS_CONSUMER"`
	BusPartitions int           `env:"BUS_PARTITIONS" envDefault:"8"`
	BusClaimIdle  time.Duration `env:"BUS_CLAIM_IDLE" envDefault:"1m"`

	// Background job processing (asynq).
	QueueConcurrency int `env:"QUEUE_CONCURRENCY" envDefault:"10"`

	// AI providers. The secondary is optional; with no secondary configured the
	// orchestrator fails terminal after the primary's retry budget.
	AIPrimaryURL     string        `env:"AI_PRIMARY_URL"`
	AIPrimaryKey     string        `env:"AI_PRIMARY_KEY"`
	AIPrimaryModel   string        `env:"AI_PRIMARY_MODEL" envDefault:"gpt-4o-mini"`
	AISecondaryURL   string        `env:"AI_SECONDARY_URL"`
	AISecondaryKey   string        `env:"AI_SECONDARY_KEY"`
	AISecondaryModel string        `env:"AI_SECONDARY_MODEL"`
	AIMaxAttempts    int           `env:"AI_MAX_ATTEMPTS" envDefault:"3"`
	AIBackoff        time.Duration `env:"AI_BACKOFF" envDefault:"500ms"`
	AITimeout        time.Duration `env:"AI_TIMEOUT" envDefault:"30s"`
}

// Load parses configuration from the environment. In development it first
// loads a .env file when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}

	if cfg.Env == "production" {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("config: DB_URL is required in production")
		}
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("config: REDIS_URL is required in production")
		}
	}
	return cfg, nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
