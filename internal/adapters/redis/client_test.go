package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch/internal/testsupport"
)

func TestClient_StoreRoundTrip(t *testing.T) {
	client := testsupport.NewTestRedis(t)
	ctx := context.Background()

	type payload struct {
		Symbol string  `json:"symbol"`
		Score  float64 `json:"score"`
	}
	require.NoError(t, client.Set(ctx, "pipeline:u:AAPL", payload{Symbol: "AAPL", Score: 71.5}, time.Minute))

	var got payload
	found, err := client.Get(ctx, "pipeline:u:AAPL", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 71.5, got.Score)

	require.NoError(t, client.Delete(ctx, "pipeline:u:AAPL"))
	found, err = client.Get(ctx, "pipeline:u:AAPL", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestClient_LockIsExclusive(t *testing.T) {
	client := testsupport.NewTestRedis(t)
	ctx := context.Background()

	ok, err := client.TryLock(ctx, "alert_sweep", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.TryLock(ctx, "alert_sweep", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, client.Unlock(ctx, "alert_sweep"))
	ok, err = client.TryLock(ctx, "alert_sweep", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
