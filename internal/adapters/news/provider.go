// Package news fetches recent articles about a symbol from NewsAPI, with a
// colly-based page scraper as fallback.
package news

import (
	"context"

	"stockwatch/internal/domain/market_data"
	"stockwatch/pkg/logger"
)

// Provider returns recent articles, newest first
type Provider interface {
	RecentArticles(ctx context.Context, symbol string, limit int) ([]market_data.Article, error)
}

// Fallback asks each provider in turn and returns the first non-empty answer.
// Errors are only returned when every provider failed.
type Fallback struct {
	providers []Provider
	log       *logger.Logger
}

func NewFallback(providers ...Provider) *Fallback {
	return &Fallback{providers: providers, log: logger.Get().With("component", "news_fallback")}
}

func (f *Fallback) RecentArticles(ctx context.Context, symbol string, limit int) ([]market_data.Article, error) {
	var lastErr error
	for i, p := range f.providers {
		articles, err := p.RecentArticles(ctx, symbol, limit)
		if err != nil {
			f.log.Warnw("news provider failed", "symbol", symbol, "provider", i, "error", err)
			lastErr = err
			continue
		}
		if len(articles) > 0 {
			return articles, nil
		}
	}
	return nil, lastErr
}

// classify fills in the label for articles the source did not label
func classify(articles []market_data.Article) {
	for i := range articles {
		if !articles[i].Sentiment.Valid() {
			articles[i].Sentiment = market_data.ClassifySentiment(articles[i].Title + " " + articles[i].Content)
		}
	}
}
