package testsupport

import (
	"os"
	"strconv"
	"testing"

	"stockwatch/internal/adapters/config"
)

// init sets ENV=test so config loading picks test defaults
func init() {
	if os.Getenv("ENV") == "" {
		_ = os.Setenv("ENV", "test")
	}
}

// DatabaseConfigs bundles config sections required for integration tests.
type DatabaseConfigs struct {
	Postgres   config.PostgresConfig
	ClickHouse config.ClickHouseConfig
	Redis      config.RedisConfig
}

// RequireEnv skips the test unless every key is set
func RequireEnv(t *testing.T, keys ...string) {
	t.Helper()

	missing := make([]string, 0)
	for _, key := range keys {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		t.Skipf("integration environment missing, set %v to run", missing)
	}
}

// LoadDatabaseConfigsFromEnv reads the connection settings for integration tests.
// Backends whose host is unset keep zero values; callers gate with RequireEnv.
func LoadDatabaseConfigsFromEnv(t *testing.T) DatabaseConfigs {
	t.Helper()

	return DatabaseConfigs{
		Postgres: config.PostgresConfig{
			Host:     os.Getenv("POSTGRES_HOST"),
			Port:     intValue("POSTGRES_PORT", 5432),
			User:     valueWithDefault("POSTGRES_USER", "stockwatch"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			Database: valueWithDefault("POSTGRES_DB", "stockwatch_test"),
			SSLMode:  valueWithDefault("POSTGRES_SSL_MODE", "disable"),
			MaxConns: 4,
		},
		ClickHouse: config.ClickHouseConfig{
			Host:     os.Getenv("CLICKHOUSE_HOST"),
			Port:     intValue("CLICKHOUSE_PORT", 9000),
			User:     valueWithDefault("CLICKHOUSE_USER", "default"),
			Password: os.Getenv("CLICKHOUSE_PASSWORD"),
			Database: valueWithDefault("CLICKHOUSE_DB", "stockwatch_test"),
		},
		Redis: config.RedisConfig{
			Host:      os.Getenv("REDIS_HOST"),
			Port:      intValue("REDIS_PORT", 6379),
			Password:  os.Getenv("REDIS_PASSWORD"),
			DB:        intValue("REDIS_DB", 0),
			KeyPrefix: UniqueName("test") + ":",
		},
	}
}

func valueWithDefault(key string, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func intValue(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}
