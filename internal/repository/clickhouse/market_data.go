package clickhouse

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"stockwatch/internal/domain/market_data"
	"stockwatch/internal/metrics"
	"stockwatch/pkg/errors"
)

// Schema creates the history tables. ReplacingMergeTree keeps the row with the
// newest version column per sorting key, so re-collected bars and articles collapse.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS ohlcv (
		symbol     LowCardinality(String),
		date       Date,
		open       Float64,
		high       Float64,
		low        Float64,
		close      Float64,
		volume     Float64,
		updated_at DateTime64(3)
	) ENGINE = ReplacingMergeTree(updated_at)
	ORDER BY (symbol, date)`,
	`CREATE TABLE IF NOT EXISTS news (
		symbol       LowCardinality(String),
		url          String,
		title        String,
		content      String,
		source       String,
		sentiment    LowCardinality(String),
		published_at DateTime64(3),
		collected_at DateTime64(3)
	) ENGINE = ReplacingMergeTree(collected_at)
	ORDER BY (symbol, url)`,
}

// Compile-time check
var _ market_data.Repository = (*MarketDataRepository)(nil)

// MarketDataRepository implements market_data.Repository using ClickHouse
type MarketDataRepository struct {
	conn driver.Conn
	now  func() time.Time
}

func NewMarketDataRepository(conn driver.Conn) *MarketDataRepository {
	return &MarketDataRepository{conn: conn, now: time.Now}
}

// EnsureSchema creates missing tables
func (r *MarketDataRepository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range Schema {
		if err := r.conn.Exec(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to create clickhouse table")
		}
	}
	return nil
}

// UpsertOHLCV writes bars stamped with the current time as their version
func (r *MarketDataRepository) UpsertOHLCV(ctx context.Context, bars []market_data.OHLCV) (err error) {
	if len(bars) == 0 {
		return nil
	}
	defer observe("upsert_ohlcv", time.Now(), &err)

	batch, err := r.conn.PrepareBatch(ctx, `
		INSERT INTO ohlcv (symbol, date, open, high, low, close, volume, updated_at)
	`)
	if err != nil {
		return errors.Wrap(err, "failed to prepare batch")
	}

	version := r.now().UTC()
	for _, bar := range bars {
		err := batch.Append(
			bar.Symbol, bar.Date.UTC(),
			bar.Open, bar.High, bar.Low, bar.Close, bar.Volume,
			version,
		)
		if err != nil {
			_ = batch.Abort()
			return errors.Wrap(err, "failed to append bar")
		}
	}

	return errors.Wrap(batch.Send(), "failed to send ohlcv batch")
}

// UpsertNews writes articles keyed by (symbol, url)
func (r *MarketDataRepository) UpsertNews(ctx context.Context, articles []market_data.Article) (err error) {
	if len(articles) == 0 {
		return nil
	}
	defer observe("upsert_news", time.Now(), &err)

	batch, err := r.conn.PrepareBatch(ctx, `
		INSERT INTO news (symbol, url, title, content, source, sentiment, published_at, collected_at)
	`)
	if err != nil {
		return errors.Wrap(err, "failed to prepare batch")
	}

	now := r.now().UTC()
	for _, a := range articles {
		collected := a.CollectedAt
		if collected.IsZero() {
			collected = now
		}
		err := batch.Append(
			a.Symbol, a.URL, a.Title, a.Content, a.Source, a.Sentiment.String(),
			a.PublishedAt.UTC(), collected.UTC(),
		)
		if err != nil {
			_ = batch.Abort()
			return errors.Wrap(err, "failed to append article")
		}
	}

	return errors.Wrap(batch.Send(), "failed to send news batch")
}

// GetOHLCV returns deduplicated bars in [from, to], oldest first
func (r *MarketDataRepository) GetOHLCV(ctx context.Context, symbol string, from, to time.Time) (bars []market_data.OHLCV, err error) {
	defer observe("get_ohlcv", time.Now(), &err)

	query := `
		SELECT symbol, date, open, high, low, close, volume, updated_at
		FROM ohlcv FINAL
		WHERE symbol = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC`

	if err := r.conn.Select(ctx, &bars, query, symbol, from.UTC(), to.UTC()); err != nil {
		return nil, errors.Wrap(err, "failed to query ohlcv")
	}
	return bars, nil
}

type articleRow struct {
	Symbol      string    `ch:"symbol"`
	URL         string    `ch:"url"`
	Title       string    `ch:"title"`
	Content     string    `ch:"content"`
	Source      string    `ch:"source"`
	Sentiment   string    `ch:"sentiment"`
	PublishedAt time.Time `ch:"published_at"`
	CollectedAt time.Time `ch:"collected_at"`
}

// GetRecentNews returns the newest articles first
func (r *MarketDataRepository) GetRecentNews(ctx context.Context, symbol string, limit int) ([]market_data.Article, error) {
	if limit <= 0 {
		limit = 10
	}

	var rows []articleRow
	query := `
		SELECT symbol, url, title, content, source, sentiment, published_at, collected_at
		FROM news FINAL
		WHERE symbol = $1
		ORDER BY published_at DESC
		LIMIT $2`

	if err := r.conn.Select(ctx, &rows, query, symbol, limit); err != nil {
		return nil, errors.Wrap(err, "failed to query news")
	}

	articles := make([]market_data.Article, 0, len(rows))
	for _, row := range rows {
		articles = append(articles, market_data.Article{
			Symbol:      row.Symbol,
			Title:       row.Title,
			Content:     row.Content,
			URL:         row.URL,
			Source:      row.Source,
			Sentiment:   market_data.SentimentLabel(row.Sentiment),
			PublishedAt: row.PublishedAt,
			CollectedAt: row.CollectedAt,
		})
	}
	return articles, nil
}

func observe(operation string, start time.Time, err *error) {
	metrics.RecordDBQuery("clickhouse", operation, time.Since(start), *err)
}
