package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConfigSanitizeRestoresDefaults(t *testing.T) {
	req := require.New(t)

	cfg := Config{
		Port:                    "",
		MaxMessageSize:          -1,
		RateLimitBurst:          0,
		RateLimitRefillInterval: 0,
		HistoryLimit:            -5,
		DisconnectGrace:         0,
	}.sanitize()

	defaults := NewConfig()
	req.Equal(defaults.Port, cfg.Port)
	req.Equal(defaults.MaxMessageSize, cfg.MaxMessageSize)
	req.Equal(defaults.RateLimitBurst, cfg.RateLimitBurst)
	req.Equal(defaults.RateLimitRefillInterval, cfg.RateLimitRefillInterval)
	req.Equal(defaults.HistoryLimit, cfg.HistoryLimit)
	req.Equal(defaults.DisconnectGrace, cfg.DisconnectGrace)
}

func TestConfigFromEnvOverrides(t *testing.T) {
	req := require.New(t)

	t.Setenv("SERVER_PORT", ":9090")
	t.Setenv("HISTORY_LIMIT", "50")
	t.Setenv("DISCONNECT_GRACE", "500ms")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example,http://b.example")

	cfg, err := NewConfigFromEnv()
	req.NoError(err)
	req.Equal(":9090", cfg.Port)
	req.Equal(50, cfg.HistoryLimit)
	req.Equal(500*time.Millisecond, cfg.DisconnectGrace)
	req.Equal([]string{"http://a.example", "http://b.example"}, cfg.AllowedOrigins)
}
