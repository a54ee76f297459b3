package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HTTP_PORT", "")
	t.Setenv("ACCESS_TTL", "")
	cfg := Load()
	assert.Equal(t, "5000", cfg.HTTPPort)
	assert.Equal(t, 24*time.Hour, cfg.AccessTTL)
	assert.Equal(t, "redis", cfg.QueueBackend)
	assert.False(t, cfg.Production())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("RATE_LIMIT_PER_MIN", "oops")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("NOTICE_SWEEP_INTERVAL", "bogus")

	cfg := Load()
	assert.True(t, cfg.Production())
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, 240, cfg.RateLimitPerMin)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, time.Hour, cfg.NoticeSweepInterval)
}
