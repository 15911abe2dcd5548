package testsupport

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDatabaseConfigsFromEnv(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "localhost")
	t.Setenv("POSTGRES_PORT", "5543")
	t.Setenv("POSTGRES_DB", "db")
	t.Setenv("CLICKHOUSE_HOST", "click")
	t.Setenv("CLICKHOUSE_PORT", "8123")
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "not-a-number")
	t.Setenv("REDIS_DB", "2")

	cfg := LoadDatabaseConfigsFromEnv(t)

	assert.Equal(t, "localhost", cfg.Postgres.Host)
	assert.Equal(t, 5543, cfg.Postgres.Port)
	assert.Equal(t, "db", cfg.Postgres.Database)
	assert.Equal(t, "stockwatch", cfg.Postgres.User)
	assert.Equal(t, "click", cfg.ClickHouse.Host)
	assert.Equal(t, 8123, cfg.ClickHouse.Port)
	assert.Equal(t, "redis", cfg.Redis.Host)
	assert.Equal(t, 6379, cfg.Redis.Port, "unparsable port falls back")
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.True(t, strings.HasPrefix(cfg.Redis.KeyPrefix, "test_"))
}

func TestRequireEnv_SkipsWhenMissing(t *testing.T) {
	t.Setenv("STOCKWATCH_SURELY_UNSET", "")

	skipped := true
	t.Run("inner", func(t *testing.T) {
		RequireEnv(t, "STOCKWATCH_SURELY_UNSET")
		skipped = false
	})
	assert.True(t, skipped)
}
