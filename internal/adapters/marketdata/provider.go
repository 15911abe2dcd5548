// Package marketdata fetches quotes and daily bars from the Yahoo Finance chart API.
package marketdata

import (
	"context"

	"stockwatch/internal/domain/market_data"
)

// Provider is the market data source used by collection and the alert sweeps
type Provider interface {
	// CurrentPrice returns the latest quote
	CurrentPrice(ctx context.Context, symbol string) (market_data.Quote, error)
	// History returns daily bars for the last days calendar days, oldest first
	History(ctx context.Context, symbol string, days int) ([]market_data.OHLCV, error)
}
