// Package technical implements the technical analysis branch: RSI, MACD,
// moving averages, trend, a multi-timeframe view and a vote-based signal.
package technical

import (
	"context"

	"stockwatch/internal/domain/analysis"
	"stockwatch/internal/domain/market_data"
	"stockwatch/pkg/logger"
)

// MinDataPoints is the shortest close series the branch analyzes
const MinDataPoints = 20

// trendWindow is the number of recent closes compared half against half
const trendWindow = 20

// Timeframe windows in trading days
const (
	ShortWindow  = 7
	MediumWindow = 14
	LongWindow   = 28
)

// Agent runs technical and fundamental scoring on a snapshot
type Agent struct {
	trueMACDSignal bool
	log            *logger.Logger
}

// Option configures the Agent
type Option func(*Agent)

// WithTrueMACDSignal uses an EMA(9) of the MACD series as the signal line
func WithTrueMACDSignal() Option {
	return func(a *Agent) { a.trueMACDSignal = true }
}

// New creates a technical analysis agent
func New(opts ...Option) *Agent {
	a := &Agent{log: logger.Get().With("component", "technical_agent")}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Agent) Name() string { return string(analysis.KindTechnical) }

// Run implements the pipeline agent contract. Short history is reported through
// InsufficientData rather than as an error.
func (a *Agent) Run(ctx context.Context, snap market_data.Snapshot) (analysis.Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return a.Analyze(snap), nil
}

// Analyze scores the snapshot
func (a *Agent) Analyze(snap market_data.Snapshot) *analysis.Technical {
	closes := snap.Closes()
	if len(closes) < MinDataPoints {
		a.log.Debugw("insufficient data for technical analysis", "symbol", snap.Symbol, "points", len(closes))
		return &analysis.Technical{
			InsufficientData: true,
			DataPoints:       len(closes),
			RSI:              50,
			MovingAverages:   map[int]float64{},
			Trend:            analysis.TrendSideways,
			Signal:           analysis.SignalHold,
		}
	}

	res := &analysis.Technical{
		DataPoints:     len(closes),
		RSI:            RSI(closes, rsiPeriod),
		MACD:           MACD(closes, a.trueMACDSignal),
		MovingAverages: MovingAverages(closes),
		Trend:          TrendLabel(lastN(closes, trendWindow)),
		MultiTimeframe: MultiTimeframeView(snap),
		Fundamentals:   Fundamentals(snap.CurrentPrice, snap.MarketCap),
	}
	res.Signal, res.Votes = Vote(res)
	res.Confidence = Confidence(res)
	return res
}

func lastN(xs []float64, n int) []float64 {
	if len(xs) <= n {
		return xs
	}
	return xs[len(xs)-n:]
}
