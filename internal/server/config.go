// Package server provides configuration helpers that define runtime defaults,
// validation, and rate-limiting parameters for the relay.
package server

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the relay configuration. Every field can be overridden through
// the environment variable named in its tag; unset variables keep the default.
type Config struct {
	Port                    string        `envconfig:"SERVER_PORT"`
	AllowedOrigins          []string      `envconfig:"ALLOWED_ORIGINS"`
	MaxMessageSize          int64         `envconfig:"MAX_MESSAGE_SIZE"`
	RateLimitBurst          int           `envconfig:"RATE_LIMIT_BURST"`
	RateLimitRefillInterval time.Duration `envconfig:"RATE_LIMIT_REFILL_INTERVAL"`
	HistoryLimit            int           `envconfig:"HISTORY_LIMIT"`
	DisconnectGrace         time.Duration `envconfig:"DISCONNECT_GRACE"`
	PublicBaseURL           string        `envconfig:"PUBLIC_BASE_URL"`
	LogLevel                slog.Level    `envconfig:"LOG_LEVEL"`
}

// RateLimit bundles the rate-limiting fields for the per-client limiter.
func (c Config) RateLimit() RateLimitConfig {
	return RateLimitConfig{Burst: c.RateLimitBurst, RefillInterval: c.RateLimitRefillInterval}
}

// NewConfig returns a Config populated with default values for all settings.
func NewConfig() Config {
	return Config{
		Port:                    ":8080",
		AllowedOrigins:          []string{"http://localhost:8080"},
		MaxMessageSize:          64 * 1024,
		RateLimitBurst:          10,
		RateLimitRefillInterval: time.Second,
		HistoryLimit:            300,
		DisconnectGrace:         3 * time.Second,
		PublicBaseURL:           "http://localhost:8080",
		LogLevel:                slog.LevelInfo,
	}
}

// NewConfigFromEnv layers environment variables over the defaults and
// sanitizes the result.
func NewConfigFromEnv() (Config, error) {
	cfg := NewConfig()
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config from environment: %w", err)
	}
	return cfg.sanitize(), nil
}

// sanitize replaces out-of-range values with defaults so a misconfigured
// environment degrades to a working relay instead of a crash.
func (c Config) sanitize() Config {
	defaults := NewConfig()

	if c.Port == "" {
		c.Port = defaults.Port
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = defaults.MaxMessageSize
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = defaults.RateLimitBurst
	}
	if c.RateLimitRefillInterval <= 0 {
		c.RateLimitRefillInterval = defaults.RateLimitRefillInterval
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = defaults.HistoryLimit
	}
	if c.DisconnectGrace <= 0 {
		c.DisconnectGrace = defaults.DisconnectGrace
	}
	if c.PublicBaseURL == "" {
		c.PublicBaseURL = defaults.PublicBaseURL
	}
	c.AllowedOrigins = append([]string(nil), c.AllowedOrigins...)
	return c
}
