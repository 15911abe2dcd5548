package market_data

import (
	"time"
)

// OHLCV is one daily bar. Series are ordered oldest first.
type OHLCV struct {
	Symbol    string    `ch:"symbol" json:"symbol"`
	Date      time.Time `ch:"date" json:"date"`
	Open      float64   `ch:"open" json:"open"`
	High      float64   `ch:"high" json:"high"`
	Low       float64   `ch:"low" json:"low"`
	Close     float64   `ch:"close" json:"close"`
	Volume    float64   `ch:"volume" json:"volume"`
	UpdatedAt time.Time `ch:"updated_at" json:"-"` // ReplacingMergeTree version column
}

// Quote is the latest traded price reported by the provider
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume"`
	MarketCap float64   `json:"market_cap"`
	Currency  string    `json:"currency"`
	AsOf      time.Time `json:"as_of"`
}

// SentimentLabel is the per-article classification supplied by the news provider
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNegative SentimentLabel = "negative"
	SentimentNeutral  SentimentLabel = "neutral"
)

func (l SentimentLabel) Valid() bool {
	return l == SentimentPositive || l == SentimentNegative || l == SentimentNeutral
}

func (l SentimentLabel) String() string {
	return string(l)
}

// Article is one news item about a symbol
type Article struct {
	Symbol      string         `ch:"symbol" json:"symbol"`
	Title       string         `ch:"title" json:"title"`
	Content     string         `ch:"content" json:"content"`
	URL         string         `ch:"url" json:"url"`
	Source      string         `ch:"source" json:"source"`
	Sentiment   SentimentLabel `ch:"sentiment" json:"sentiment"`
	PublishedAt time.Time      `ch:"published_at" json:"published_at"`
	CollectedAt time.Time      `ch:"collected_at" json:"collected_at"`
}

// Trend is the slope-based direction of closes over a horizon
type Trend string

const (
	TrendUp      Trend = "UP"
	TrendDown    Trend = "DOWN"
	TrendNeutral Trend = "NEUTRAL"
)

func (t Trend) String() string {
	return string(t)
}

// Horizons in trading days used for change and trend tables
var Horizons = []int{1, 7, 14, 28}

// HorizonStat is the change and trend for one horizon
type HorizonStat struct {
	Days          int     `json:"days"`
	ChangePercent float64 `json:"change_percent"`
	Trend         Trend   `json:"trend"`
}

// Snapshot is everything collected for one symbol in one pipeline run.
// Consumers must treat it as read-only.
type Snapshot struct {
	Symbol       string        `json:"symbol"`
	CurrentPrice float64       `json:"current_price"`
	Volume       float64       `json:"volume"`
	MarketCap    float64       `json:"market_cap"`
	History      []OHLCV       `json:"history"`
	Horizons     []HorizonStat `json:"horizons"`
	News         []Article     `json:"news"`
	QuotedAt     time.Time     `json:"quoted_at"`
	CollectedAt  time.Time     `json:"collected_at"`
}

// Closes returns the closing prices, oldest first
func (s Snapshot) Closes() []float64 {
	closes := make([]float64, len(s.History))
	for i, bar := range s.History {
		closes[i] = bar.Close
	}
	return closes
}

// Horizon returns the stat for the given number of days
func (s Snapshot) Horizon(days int) (HorizonStat, bool) {
	for _, h := range s.Horizons {
		if h.Days == days {
			return h, true
		}
	}
	return HorizonStat{}, false
}

// ChangePercent returns the change for a horizon, 0 when it was not computed
func (s Snapshot) ChangePercent(days int) float64 {
	h, _ := s.Horizon(days)
	return h.ChangePercent
}
