package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "API_ADDR", "PUBLIC_DIR", "CORS_ALLOWED_ORIGINS", "REDIS_ADDR", "ROSTER_TTL_SEC", "MAX_MESSAGE_SIZE", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, ":3000", cfg.APIAddr)
	assert.Equal(t, "public", cfg.PublicDir)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigin)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, 3600, cfg.RosterTTL)
	assert.Equal(t, int64(4096), cfg.MaxMessageSize)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("API_ADDR", "")
	t.Setenv("PUBLIC_DIR", "/srv/www")
	t.Setenv("CORS_ALLOWED_ORIGINS", " http://a.example , ,http://b.example")
	t.Setenv("REDIS_ADDR", " redis:6379 ")
	t.Setenv("ROSTER_TTL_SEC", "120")
	t.Setenv("MAX_MESSAGE_SIZE", "1024")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()

	assert.Equal(t, ":8081", cfg.APIAddr)
	assert.Equal(t, "/srv/www", cfg.PublicDir)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.AllowedOrigin)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 120, cfg.RosterTTL)
	assert.Equal(t, int64(1024), cfg.MaxMessageSize)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestAPIAddrOverridesPort(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("API_ADDR", "127.0.0.1:9000")

	assert.Equal(t, "127.0.0.1:9000", Load().APIAddr)
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("ROSTER_TTL_SEC", "abc")
	t.Setenv("MAX_MESSAGE_SIZE", "-5")
	t.Setenv("LOG_LEVEL", "loud")
	t.Setenv("CORS_ALLOWED_ORIGINS", " , ")

	cfg := Load()

	assert.Equal(t, 3600, cfg.RosterTTL)
	assert.Equal(t, int64(4096), cfg.MaxMessageSize)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigin)
}
