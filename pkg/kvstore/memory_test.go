package kvstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedReport struct {
	Symbol string  `json:"symbol"`
	Score  float64 `json:"score"`
}

func TestMemory_SetGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	require.NoError(t, store.Set(ctx, "pipeline:u1:AAPL", cachedReport{Symbol: "AAPL", Score: 61.5}, time.Minute))

	var got cachedReport
	found, err := store.Get(ctx, "pipeline:u1:AAPL", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "AAPL", got.Symbol)
	assert.InDelta(t, 61.5, got.Score, 1e-9)
}

func TestMemory_ExpiredEntryIsMissing(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemory().WithClock(func() time.Time { return now })

	require.NoError(t, store.Set(ctx, "k", 1, 15*time.Minute))

	now = now.Add(14 * time.Minute)
	var v int
	found, err := store.Get(ctx, "k", &v)
	require.NoError(t, err)
	assert.True(t, found)

	now = now.Add(time.Minute)
	found, err = store.Get(ctx, "k", &v)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 0, store.Len())
}

func TestMemory_ZeroTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	store := NewMemory().WithClock(func() time.Time { return now })

	require.NoError(t, store.Set(ctx, "k", "v", 0))
	now = now.Add(365 * 24 * time.Hour)

	var v string
	found, err := store.Get(ctx, "k", &v)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v", v)
}

func TestMemory_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	require.NoError(t, store.Set(ctx, "a", 1, 0))
	require.NoError(t, store.Set(ctx, "b", 2, 0))

	require.NoError(t, store.Delete(ctx, "a", "b", "missing"))
	assert.Equal(t, 0, store.Len())
}

func TestMemory_TryLock(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	store := NewMemory().WithClock(func() time.Time { return now })

	ok, err := store.TryLock(ctx, "alert_sweep", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.TryLock(ctx, "alert_sweep", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "lease is still held")

	require.NoError(t, store.Unlock(ctx, "alert_sweep"))
	ok, err = store.TryLock(ctx, "alert_sweep", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	// an abandoned lease lapses after its ttl
	now = now.Add(2 * time.Minute)
	ok, err = store.TryLock(ctx, "alert_sweep", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
