package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// External scoring service (OpenAI-compatible chat completions).
	ScoringAPIKey      string `envconfig:"SCORING_API_KEY" default:""`
	ScoringBaseURL     string `envconfig:"SCORING_BASE_URL" default:""`
	ScoringModel       string `envconfig:"SCORING_MODEL" default:"gpt-4o"`
	ScoringTimeoutSecs int    `envconfig:"SCORING_TIMEOUT_SECONDS" default:"30"`
	ScoringConcurrency int    `envconfig:"SCORING_CONCURRENCY" default:"8"`

	// Shared score cache.
	RedisURL     string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	CacheTTLDays int    `envconfig:"SCORE_CACHE_TTL_DAYS" default:"7"`

	// Primary sink: bitable-style HTTP record service.
	SinkBaseURL   string `envconfig:"SINK_BASE_URL" default:""`
	SinkAppID     string `envconfig:"SINK_APP_ID" default:""`
	SinkAppSecret string `envconfig:"SINK_APP_SECRET" default:""`
	SinkAppToken  string `envconfig:"SINK_APP_TOKEN" default:""`
	SinkTableID   string `envconfig:"SINK_TABLE_ID" default:""`

	// Fallback durable store (SQLite file).
	FallbackDBPath        string `envconfig:"FALLBACK_DB_PATH" default:"fallback.db"`
	FallbackRetentionDays int    `envconfig:"FALLBACK_RETENTION_DAYS" default:"7"`

	// Outbound notification webhook.
	WebhookURL    string `envconfig:"NOTIFY_WEBHOOK_URL" default:""`
	WebhookSecret string `envconfig:"NOTIFY_WEBHOOK_SECRET" default:""`
	TableViewURL  string `envconfig:"NOTIFY_TABLE_VIEW_URL" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.ScoringTimeoutSecs < 1 {
		return fmt.Errorf("SCORING_TIMEOUT_SECONDS must be >= 1")
	}
	if c.ScoringConcurrency < 1 {
		return fmt.Errorf("SCORING_CONCURRENCY must be >= 1")
	}
	if c.CacheTTLDays < 1 {
		return fmt.Errorf("SCORE_CACHE_TTL_DAYS must be >= 1")
	}
	if c.FallbackRetentionDays < 1 {
		return fmt.Errorf("FALLBACK_RETENTION_DAYS must be >= 1")
	}
	if strings.TrimSpace(c.FallbackDBPath) == "" {
		return fmt.Errorf("FALLBACK_DB_PATH is required")
	}
	return nil
}

// SinkConfigured reports whether the primary record service is usable.
func (c *Config) SinkConfigured() bool {
	return strings.TrimSpace(c.SinkAppID) != "" &&
		strings.TrimSpace(c.SinkAppSecret) != "" &&
		strings.TrimSpace(c.SinkAppToken) != "" &&
		strings.TrimSpace(c.SinkTableID) != ""
}
