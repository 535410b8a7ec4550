package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresPostgresDSN(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost/scc")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 15, cfg.SlotIntervalMinutes)
	assert.Equal(t, "shared", cfg.SlotCategoryMode)
	assert.Equal(t, "127.0.0.1:6379", cfg.RedisAddr)
}

func TestLoadRejectsBadInterval(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost/scc")
	t.Setenv("SLOT_INTERVAL_MINUTES", "20")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRedisURLWins(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost/scc")
	t.Setenv("REDIS_ADDR", "ignored:1")
	t.Setenv("REDIS_URL", "redis://user:pw@redis.example.com:6380")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "redis.example.com:6380", cfg.RedisAddr)
	assert.Equal(t, "user", cfg.RedisUsername)
	assert.Equal(t, "pw", cfg.RedisPassword)
}
