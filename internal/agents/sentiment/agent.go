// Package sentiment implements the emotional analysis branch: aggregate news
// sentiment and a fear & greed index with a contrarian signal.
package sentiment

import (
	"context"
	"sort"

	"stockwatch/internal/agents/stats"
	"stockwatch/internal/domain/analysis"
	"stockwatch/internal/domain/market_data"
	"stockwatch/pkg/logger"
)

const (
	positiveScore = 0.8
	negativeScore = 0.2
	neutralScore  = 0.5

	// minTrendArticles is the fewest articles that can show a sentiment trend
	minTrendArticles = 4
	trendDelta       = 0.1
)

type Agent struct {
	log *logger.Logger
}

func New() *Agent {
	return &Agent{log: logger.Get().With("component", "sentiment_agent")}
}

func (a *Agent) Name() string { return string(analysis.KindSentiment) }

func (a *Agent) Run(ctx context.Context, snap market_data.Snapshot) (analysis.Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return a.Analyze(snap), nil
}

// Analyze scores the snapshot's news and one-day price change
func (a *Agent) Analyze(snap market_data.Snapshot) *analysis.Sentiment {
	news := NewsSentiment(snap.News)
	fg := FearGreedIndex(news.Score, snap.ChangePercent(1))

	a.log.Debugw("sentiment analyzed",
		"symbol", snap.Symbol,
		"articles", news.ArticleCount,
		"news_score", news.Score,
		"fear_greed", fg.Index,
	)

	return &analysis.Sentiment{
		News:      news,
		FearGreed: fg,
		Signal:    ContrarianSignal(fg.Category),
	}
}

// Score maps an article label to its scalar. Unknown labels count as neutral.
func Score(label market_data.SentimentLabel) float64 {
	switch label {
	case market_data.SentimentPositive:
		return positiveScore
	case market_data.SentimentNegative:
		return negativeScore
	default:
		return neutralScore
	}
}

func labelOf(a market_data.Article) market_data.SentimentLabel {
	if a.Sentiment.Valid() {
		return a.Sentiment
	}
	return market_data.ClassifySentiment(a.Title + " " + a.Content)
}

// NewsSentiment aggregates per-article labels. No articles yields a neutral 0.5.
func NewsSentiment(articles []market_data.Article) analysis.NewsSentiment {
	out := analysis.NewsSentiment{
		Score: neutralScore,
		Label: analysis.NewsNeutral,
		Counts: map[string]int{
			string(market_data.SentimentPositive): 0,
			string(market_data.SentimentNegative): 0,
			string(market_data.SentimentNeutral):  0,
		},
		Trend:     analysis.SentimentStable,
		KeyTopics: []string{},
	}
	if len(articles) == 0 {
		return out
	}

	scores := make([]float64, len(articles))
	for i, art := range articles {
		label := labelOf(art)
		out.Counts[string(label)]++
		scores[i] = Score(label)
	}

	out.Score = stats.Round(stats.Mean(scores), 2)
	out.ArticleCount = len(articles)
	out.Confidence = stats.Round(stats.Clamp(float64(len(articles))/10, 0, 1), 2)
	switch {
	case out.Score > 0.6:
		out.Label = analysis.NewsPositive
	case out.Score < 0.4:
		out.Label = analysis.NewsNegative
	}
	out.Trend = Trend(articles)
	out.KeyTopics = KeyTopics(articles, 5)
	return out
}

// Trend compares mean sentiment of the older and newer halves by publish time
func Trend(articles []market_data.Article) string {
	if len(articles) < minTrendArticles {
		return analysis.SentimentStable
	}
	sorted := append([]market_data.Article(nil), articles...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PublishedAt.Before(sorted[j].PublishedAt)
	})

	scores := make([]float64, len(sorted))
	for i, art := range sorted {
		scores[i] = Score(labelOf(art))
	}
	first, second := stats.HalfMeans(scores)
	switch change := second - first; {
	case change > trendDelta:
		return analysis.SentimentImproving
	case change < -trendDelta:
		return analysis.SentimentDeteriorating
	default:
		return analysis.SentimentStable
	}
}

// MarketScore centers the one-day change at 50, ten points per percent
func MarketScore(change1d float64) float64 {
	return stats.Clamp(50+change1d*10, 0, 100)
}

// FearGreedIndex blends news (40%) and market (60%) components
func FearGreedIndex(newsScore, change1d float64) analysis.FearGreed {
	market := MarketScore(change1d)
	index := stats.Clamp(stats.Round(0.4*newsScore*100+0.6*market, 1), 0, 100)
	return analysis.FearGreed{
		Index:       index,
		Category:    Category(index),
		NewsScore:   stats.Round(newsScore*100, 1),
		MarketScore: stats.Round(market, 1),
	}
}

func Category(index float64) analysis.FearGreedCategory {
	switch {
	case index >= 75:
		return analysis.ExtremeGreed
	case index >= 55:
		return analysis.Greed
	case index >= 45:
		return analysis.NeutralMood
	case index >= 25:
		return analysis.Fear
	default:
		return analysis.ExtremeFear
	}
}

// ContrarianSignal buys fear and sells greed
func ContrarianSignal(c analysis.FearGreedCategory) analysis.Signal {
	switch c {
	case analysis.Fear, analysis.ExtremeFear:
		return analysis.SignalBuy
	case analysis.Greed, analysis.ExtremeGreed:
		return analysis.SignalSell
	default:
		return analysis.SignalHold
	}
}
