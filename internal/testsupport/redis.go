package testsupport

import (
	"context"
	"testing"

	redisadapter "stockwatch/internal/adapters/redis"
)

// NewTestRedis connects to the integration Redis under a unique key prefix
// and removes that prefix's keys afterwards
func NewTestRedis(t *testing.T) *redisadapter.Client {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	RequireEnv(t, "REDIS_HOST")

	cfg := LoadDatabaseConfigsFromEnv(t).Redis
	client, err := redisadapter.NewClient(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to connect to redis: %v", err)
	}

	t.Cleanup(func() {
		ctx := context.Background()
		rdb := client.Client()
		iter := rdb.Scan(ctx, 0, cfg.KeyPrefix+"*", 100).Iterator()
		for iter.Next(ctx) {
			_ = rdb.Del(ctx, iter.Val()).Err()
		}
		_ = client.Close()
	})

	return client
}
