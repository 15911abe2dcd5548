package market_data

import (
	"context"
	"time"
)

// Repository persists collected bars and articles. Upserts are idempotent:
// writing the same (symbol, date) bar or (symbol, url) article twice keeps one row.
type Repository interface {
	UpsertOHLCV(ctx context.Context, bars []OHLCV) error
	UpsertNews(ctx context.Context, articles []Article) error
	GetOHLCV(ctx context.Context, symbol string, from, to time.Time) ([]OHLCV, error)
	GetRecentNews(ctx context.Context, symbol string, limit int) ([]Article, error)
}

// PriceSink receives collected bars for time-series dashboards
type PriceSink interface {
	WriteBars(ctx context.Context, bars []OHLCV) error
}
