package sentiment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch/internal/domain/analysis"
	"stockwatch/internal/domain/market_data"
)

func article(title string, label market_data.SentimentLabel, hoursAgo int) market_data.Article {
	return market_data.Article{
		Title:       title,
		Sentiment:   label,
		PublishedAt: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC).Add(-time.Duration(hoursAgo) * time.Hour),
	}
}

func TestFearGreedBands(t *testing.T) {
	tests := []struct {
		index float64
		want  analysis.FearGreedCategory
		sig   analysis.Signal
	}{
		{100, analysis.ExtremeGreed, analysis.SignalSell},
		{75, analysis.ExtremeGreed, analysis.SignalSell},
		{74.9, analysis.Greed, analysis.SignalSell},
		{55, analysis.Greed, analysis.SignalSell},
		{54.9, analysis.NeutralMood, analysis.SignalHold},
		{45, analysis.NeutralMood, analysis.SignalHold},
		{44.9, analysis.Fear, analysis.SignalBuy},
		{25, analysis.Fear, analysis.SignalBuy},
		{24.9, analysis.ExtremeFear, analysis.SignalBuy},
		{0, analysis.ExtremeFear, analysis.SignalBuy},
	}
	for _, tt := range tests {
		c := Category(tt.index)
		assert.Equal(t, tt.want, c, "index %v", tt.index)
		assert.Equal(t, tt.sig, ContrarianSignal(c), "index %v", tt.index)
	}
}

func TestFearGreedIndex(t *testing.T) {
	// neutral news, flat market
	fg := FearGreedIndex(0.5, 0)
	assert.Equal(t, 50.0, fg.Index)
	assert.Equal(t, analysis.NeutralMood, fg.Category)

	// +10% day saturates the market component
	fg = FearGreedIndex(0.8, 10)
	assert.Equal(t, 100.0, fg.MarketScore)
	assert.InDelta(t, 92.0, fg.Index, 1e-9)

	fg = FearGreedIndex(0.2, -8)
	assert.Equal(t, 0.0, fg.MarketScore)
	assert.InDelta(t, 8.0, fg.Index, 1e-9)
	assert.Equal(t, analysis.ExtremeFear, fg.Category)
}

func TestNewsSentiment_Empty(t *testing.T) {
	ns := NewsSentiment(nil)
	assert.Equal(t, 0.5, ns.Score)
	assert.Equal(t, analysis.NewsNeutral, ns.Label)
	assert.Zero(t, ns.Confidence)
	assert.Empty(t, ns.KeyTopics)
}

func TestNewsSentiment_Aggregate(t *testing.T) {
	articles := []market_data.Article{
		article("Apple earnings beat", market_data.SentimentPositive, 1),
		article("Apple launches product", market_data.SentimentPositive, 2),
		article("Apple faces lawsuit", market_data.SentimentNegative, 3),
	}
	ns := NewsSentiment(articles)
	assert.Equal(t, 0.6, ns.Score)
	assert.Equal(t, analysis.NewsNeutral, ns.Label)
	assert.Equal(t, 0.3, ns.Confidence)
	assert.Equal(t, 3, ns.ArticleCount)
	assert.Equal(t, 2, ns.Counts["positive"])
	assert.Equal(t, 1, ns.Counts["negative"])
	assert.Equal(t, "Apple", ns.KeyTopics[0])
}

func TestNewsSentiment_ClassifiesUnlabeled(t *testing.T) {
	ns := NewsSentiment([]market_data.Article{
		article("Shares drop on weak guidance", "", 1),
	})
	assert.Equal(t, 0.2, ns.Score)
	assert.Equal(t, analysis.NewsNegative, ns.Label)
}

func TestTrend(t *testing.T) {
	improving := []market_data.Article{
		article("a", market_data.SentimentPositive, 1),
		article("b", market_data.SentimentPositive, 2),
		article("c", market_data.SentimentNegative, 10),
		article("d", market_data.SentimentNegative, 11),
	}
	assert.Equal(t, analysis.SentimentImproving, Trend(improving))

	deteriorating := []market_data.Article{
		article("a", market_data.SentimentNegative, 1),
		article("b", market_data.SentimentNeutral, 2),
		article("c", market_data.SentimentPositive, 10),
		article("d", market_data.SentimentPositive, 11),
	}
	assert.Equal(t, analysis.SentimentDeteriorating, Trend(deteriorating))

	assert.Equal(t, analysis.SentimentStable, Trend(improving[:3]))
}

func TestKeyTopics(t *testing.T) {
	articles := []market_data.Article{
		{Title: "Tesla deliveries surge, Tesla stock jumps"},
		{Title: "Analysts upgrade Tesla after deliveries"},
		{Title: "What would this mean for the market?"},
	}
	topics := KeyTopics(articles, 3)
	require.Len(t, topics, 3)
	assert.Equal(t, []string{"Tesla", "Deliveries", "Surge"}, topics)
}

func TestRun(t *testing.T) {
	snap := market_data.Snapshot{
		Symbol:   "AAPL",
		Horizons: []market_data.HorizonStat{{Days: 1, ChangePercent: -3}},
	}
	out, err := New().Run(context.Background(), snap)
	require.NoError(t, err)
	s := out.(*analysis.Sentiment)
	// 0.4*50 + 0.6*20 = 32
	assert.Equal(t, 32.0, s.FearGreed.Index)
	assert.Equal(t, analysis.Fear, s.FearGreed.Category)
	assert.Equal(t, analysis.SignalBuy, s.Signal)
}
