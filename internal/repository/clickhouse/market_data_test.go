package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch/internal/domain/market_data"
	"stockwatch/internal/testsupport"
)

func newRepo(t *testing.T) (*MarketDataRepository, *testsupport.ClickHouseTestHelper) {
	t.Helper()

	helper := testsupport.NewTestClickHouse(t)
	repo := NewMarketDataRepository(helper.Client().Conn())
	require.NoError(t, repo.EnsureSchema(context.Background()))
	return repo, helper
}

func TestMarketDataRepository_UpsertOHLCVIsIdempotent(t *testing.T) {
	repo, helper := newRepo(t)
	ctx := context.Background()

	symbol := testsupport.UniqueSymbol("CH")
	helper.RegisterSymbolCleanup(t, "ohlcv", symbol)

	end := time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC)
	bars := testsupport.NewOHLCVFixture().WithSymbol(symbol).WithDate(end).WithClose(100).BuildMany(5)

	require.NoError(t, repo.UpsertOHLCV(ctx, bars))

	// re-collecting the last bar with a corrected close replaces it
	corrected := bars[4]
	corrected.Close = 99
	require.NoError(t, repo.UpsertOHLCV(ctx, []market_data.OHLCV{corrected}))

	got, err := repo.GetOHLCV(ctx, symbol, end.AddDate(0, 0, -10), end)
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.True(t, got[0].Date.Before(got[4].Date), "oldest first")
	assert.Equal(t, float64(99), got[4].Close)
}

func TestMarketDataRepository_RecentNews(t *testing.T) {
	repo, helper := newRepo(t)
	ctx := context.Background()

	symbol := testsupport.UniqueSymbol("NW")
	helper.RegisterSymbolCleanup(t, "news", symbol)

	base := time.Date(2026, 3, 6, 12, 0, 0, 0, time.UTC)
	articles := []market_data.Article{
		{Symbol: symbol, Title: "older", URL: "https://example.com/1", Sentiment: market_data.SentimentNeutral, PublishedAt: base.Add(-time.Hour)},
		{Symbol: symbol, Title: "newer", URL: "https://example.com/2", Sentiment: market_data.SentimentPositive, PublishedAt: base},
	}
	require.NoError(t, repo.UpsertNews(ctx, articles))
	require.NoError(t, repo.UpsertNews(ctx, articles[:1]))

	got, err := repo.GetRecentNews(ctx, symbol, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "newer", got[0].Title)
	assert.Equal(t, market_data.SentimentPositive, got[0].Sentiment)
}

func TestMarketDataRepository_EmptyBatchesAreNoops(t *testing.T) {
	repo := NewMarketDataRepository(nil)

	assert.NoError(t, repo.UpsertOHLCV(context.Background(), nil))
	assert.NoError(t, repo.UpsertNews(context.Background(), nil))
}
