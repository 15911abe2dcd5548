// Package collection builds the immutable snapshot every analysis branch reads:
// quote, daily history, per-horizon change and trend, and recent news.
package collection

import (
	"context"
	"regexp"
	"strings"
	"time"

	"stockwatch/internal/adapters/marketdata"
	"stockwatch/internal/adapters/news"
	"stockwatch/internal/agents/stats"
	"stockwatch/internal/domain/market_data"
	"stockwatch/pkg/errors"
	"stockwatch/pkg/logger"
)

const (
	maxPrice   = 1_000_000
	trendSlope = 0.1
)

var tickerPattern = regexp.MustCompile(`^[A-Z0-9.\-^=]{1,15}$`)

// SanitizeSymbol upper-cases and trims a ticker and rejects anything else
func SanitizeSymbol(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if !tickerPattern.MatchString(s) {
		return "", errors.NewValidationError("symbol", "must match "+tickerPattern.String(), symbol)
	}
	return s, nil
}

// Config holds collection tunables
type Config struct {
	HistoryDays  int
	NewsLimit    int
	MaxStaleness time.Duration
}

// Agent gathers a snapshot. Repo and Sink are optional.
type Agent struct {
	prices marketdata.Provider
	news   news.Provider
	repo   market_data.Repository
	sink   market_data.PriceSink
	cfg    Config
	now    func() time.Time
	log    *logger.Logger
}

// Option configures the Agent
type Option func(*Agent)

// WithRepository persists collected bars and articles
func WithRepository(repo market_data.Repository) Option {
	return func(a *Agent) { a.repo = repo }
}

// WithPriceSink mirrors collected bars to a time-series store
func WithPriceSink(sink market_data.PriceSink) Option {
	return func(a *Agent) { a.sink = sink }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(a *Agent) { a.now = now }
}

func New(prices marketdata.Provider, newsProvider news.Provider, cfg Config, opts ...Option) *Agent {
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = 60
	}
	if cfg.NewsLimit <= 0 {
		cfg.NewsLimit = 10
	}
	if cfg.MaxStaleness <= 0 {
		cfg.MaxStaleness = time.Hour
	}
	a := &Agent{
		prices: prices,
		news:   newsProvider,
		cfg:    cfg,
		now:    time.Now,
		log:    logger.Get().With("component", "collection_agent"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Agent) Name() string { return "collection" }

// Collect fetches and validates a snapshot. Price or history failures are
// ErrDataUnavailable; news and persistence failures are logged only.
func (a *Agent) Collect(ctx context.Context, symbol string) (market_data.Snapshot, error) {
	sym, err := SanitizeSymbol(symbol)
	if err != nil {
		return market_data.Snapshot{}, err
	}

	quote, err := a.prices.CurrentPrice(ctx, sym)
	if err != nil {
		return market_data.Snapshot{}, errors.Wrapf(errors.Join(errors.ErrDataUnavailable, err), "quote %s", sym)
	}
	if err := a.validateQuote(quote); err != nil {
		return market_data.Snapshot{}, errors.Wrapf(err, "quote %s", sym)
	}

	history, err := a.prices.History(ctx, sym, a.cfg.HistoryDays)
	if err != nil {
		return market_data.Snapshot{}, errors.Wrapf(errors.Join(errors.ErrDataUnavailable, err), "history %s", sym)
	}
	if len(history) == 0 {
		return market_data.Snapshot{}, errors.Wrapf(errors.ErrDataUnavailable, "history %s: no bars", sym)
	}

	var articles []market_data.Article
	if a.news != nil {
		articles, err = a.news.RecentArticles(ctx, sym, a.cfg.NewsLimit)
		if err != nil {
			a.log.Warnw("news unavailable, continuing without", "symbol", sym, "error", err)
			articles = nil
		}
	}

	closes := make([]float64, len(history))
	for i, bar := range history {
		closes[i] = bar.Close
	}

	snap := market_data.Snapshot{
		Symbol:       sym,
		CurrentPrice: quote.Price,
		Volume:       quote.Volume,
		MarketCap:    quote.MarketCap,
		History:      history,
		Horizons:     HorizonStats(quote.Price, closes),
		News:         articles,
		QuotedAt:     quote.AsOf,
		CollectedAt:  a.now().UTC(),
	}
	if snap.Volume == 0 {
		snap.Volume = history[len(history)-1].Volume
	}

	a.persist(ctx, snap)

	a.log.Infow("snapshot collected",
		"symbol", sym,
		"price", snap.CurrentPrice,
		"bars", len(history),
		"articles", len(articles),
	)
	return snap, nil
}

func (a *Agent) validateQuote(q market_data.Quote) error {
	if q.Price <= 0 || q.Price > maxPrice {
		return errors.Wrapf(errors.ErrDataUnavailable, "price %.4f out of range", q.Price)
	}
	if !q.AsOf.IsZero() {
		if age := a.now().Sub(q.AsOf); age > a.cfg.MaxStaleness {
			return errors.Wrapf(errors.ErrDataUnavailable, "quote is %s old", age.Round(time.Second))
		}
	}
	return nil
}

// persist upserts bars and articles; every failure here is non-fatal
func (a *Agent) persist(ctx context.Context, snap market_data.Snapshot) {
	if a.repo != nil {
		if err := a.repo.UpsertOHLCV(ctx, snap.History); err != nil {
			a.log.Warnw("failed to persist bars", "symbol", snap.Symbol, "error", err)
		}
		if len(snap.News) > 0 {
			if err := a.repo.UpsertNews(ctx, snap.News); err != nil {
				a.log.Warnw("failed to persist news", "symbol", snap.Symbol, "error", err)
			}
		}
	}
	if a.sink != nil {
		if err := a.sink.WriteBars(ctx, snap.History); err != nil {
			a.log.Warnw("failed to write bars to sink", "symbol", snap.Symbol, "error", err)
		}
	}
}

// HorizonStats computes change and trend for every standard horizon
func HorizonStats(current float64, closes []float64) []market_data.HorizonStat {
	out := make([]market_data.HorizonStat, 0, len(market_data.Horizons))
	for _, days := range market_data.Horizons {
		out = append(out, market_data.HorizonStat{
			Days:          days,
			ChangePercent: stats.Round(Change(current, closes, days), 2),
			Trend:         Trend(closes, days),
		})
	}
	return out
}

// Change is the percent move from the close n bars before the newest one,
// falling back to the oldest close when history is shorter
func Change(current float64, closes []float64, n int) float64 {
	if len(closes) == 0 {
		return 0
	}
	idx := len(closes) - 1 - n
	if idx < 0 {
		idx = 0
	}
	return stats.PercentChange(closes[idx], current)
}

// Trend labels the least-squares slope of the last n closes
func Trend(closes []float64, n int) market_data.Trend {
	if n < 2 || len(closes) < n {
		return market_data.TrendNeutral
	}
	slope := stats.Slope(closes[len(closes)-n:])
	switch {
	case slope > trendSlope:
		return market_data.TrendUp
	case slope < -trendSlope:
		return market_data.TrendDown
	default:
		return market_data.TrendNeutral
	}
}
