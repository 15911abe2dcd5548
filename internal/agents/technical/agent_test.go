package technical

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch/internal/domain/analysis"
	"stockwatch/internal/domain/market_data"
)

func snapshotFromCloses(closes []float64, marketCap float64) market_data.Snapshot {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]market_data.OHLCV, len(closes))
	for i, c := range closes {
		bars[i] = market_data.OHLCV{Symbol: "TEST", Date: start.AddDate(0, 0, i), Close: c}
	}
	snap := market_data.Snapshot{Symbol: "TEST", History: bars, MarketCap: marketCap}
	if len(closes) > 0 {
		snap.CurrentPrice = closes[len(closes)-1]
	}
	return snap
}

func TestAgent_InsufficientData(t *testing.T) {
	out, err := New().Run(context.Background(), snapshotFromCloses(series(19, 10, 1), 0))
	require.NoError(t, err)

	res, ok := out.(*analysis.Technical)
	require.True(t, ok)
	assert.True(t, res.InsufficientData)
	assert.Equal(t, 19, res.DataPoints)
	assert.Equal(t, analysis.SignalHold, res.Signal)
}

func TestAgent_RisingSeries(t *testing.T) {
	snap := snapshotFromCloses(series(60, 50, 1), 0)
	snap.Horizons = []market_data.HorizonStat{
		{Days: 7, ChangePercent: 6},
		{Days: 14, ChangePercent: 12},
		{Days: 28, ChangePercent: 25},
	}

	res := New().Analyze(snap)

	assert.False(t, res.InsufficientData)
	assert.Equal(t, 100.0, res.RSI)
	assert.Equal(t, analysis.TrendBullish, res.Trend)
	assert.Greater(t, res.MACD.Line, res.MACD.Signal)
	assert.Equal(t, analysis.TrendBullish, res.MultiTimeframe.OverallTrend)
	assert.Equal(t, analysis.StrengthStrongBullish, res.MultiTimeframe.TrendStrength)
	assert.Equal(t, analysis.DirectionUp, res.MultiTimeframe.Short.Direction)

	// RSI>70 votes SELL, trend and MACD vote BUY: 2 vs 1
	assert.Equal(t, analysis.SignalBuy, res.Signal)
	// RSI outside [30,70], no P/E, trend directional
	assert.InDelta(t, 0.6, res.Confidence, 1e-9)
}

func TestAgent_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Run(ctx, snapshotFromCloses(series(30, 1, 1), 0))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFundamentals(t *testing.T) {
	f := Fundamentals(150, 0)
	assert.Zero(t, f.PE)
	assert.Equal(t, analysis.FairValue, f.Valuation)

	// earnings = 1e8, book = 3e8 -> pe = 150/100 = 1.5, pb = 150/300 = 0.5
	f = Fundamentals(150, 1e9)
	assert.InDelta(t, 1.5, f.PE, 1e-9)
	assert.InDelta(t, 0.5, f.PB, 1e-9)
	assert.Equal(t, analysis.Undervalued, f.Valuation)

	assert.Equal(t, analysis.Overvalued, Valuation(30, 1))
	assert.Equal(t, analysis.Overvalued, Valuation(12, 3.5))
	assert.Equal(t, analysis.FairValue, Valuation(20, 2))
}

func TestVote(t *testing.T) {
	tests := []struct {
		name string
		in   analysis.Technical
		want analysis.Signal
	}{
		{
			name: "oversold bullish undervalued",
			in: analysis.Technical{RSI: 25, Trend: analysis.TrendBullish,
				MACD: analysis.MACD{Line: 1, Signal: 0.9}, Fundamentals: analysis.Fundamentals{Valuation: analysis.Undervalued}},
			want: analysis.SignalBuy,
		},
		{
			name: "single buy vote is not enough",
			in: analysis.Technical{RSI: 50, Trend: analysis.TrendSideways,
				MACD: analysis.MACD{Line: 1, Signal: 0.9}, Fundamentals: analysis.Fundamentals{Valuation: analysis.FairValue}},
			want: analysis.SignalHold,
		},
		{
			name: "overbought bearish",
			in: analysis.Technical{RSI: 80, Trend: analysis.TrendBearish,
				MACD: analysis.MACD{Line: -1, Signal: -0.9}, Fundamentals: analysis.Fundamentals{Valuation: analysis.FairValue}},
			want: analysis.SignalSell,
		},
		{
			name: "tie holds",
			in: analysis.Technical{RSI: 25, Trend: analysis.TrendBearish,
				MACD: analysis.MACD{Line: 1, Signal: 0.9}, Fundamentals: analysis.Fundamentals{Valuation: analysis.Overvalued}},
			want: analysis.SignalHold,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := Vote(&tt.in)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfidence(t *testing.T) {
	full := &analysis.Technical{RSI: 50, Trend: analysis.TrendBearish, Fundamentals: analysis.Fundamentals{PE: 20}}
	assert.InDelta(t, 0.8, Confidence(full), 1e-9)

	base := &analysis.Technical{RSI: 90, Trend: analysis.TrendSideways}
	assert.InDelta(t, 0.5, Confidence(base), 1e-9)
}

func TestTrendStrength(t *testing.T) {
	assert.Equal(t, analysis.StrengthStrongBullish, TrendStrength(1, 2, 3))
	assert.Equal(t, analysis.StrengthModerateBullish, TrendStrength(1, 2, -3))
	assert.Equal(t, analysis.StrengthStrongBearish, TrendStrength(-1, -2, -3))
	assert.Equal(t, analysis.StrengthModerateBearish, TrendStrength(-1, 0, -3))
	assert.Equal(t, analysis.StrengthNeutral, TrendStrength(1, 0, -3))
}

func TestAnalyzeWindowDefaults(t *testing.T) {
	v := AnalyzeWindow(series(10, 1, 1), LongWindow)
	assert.Equal(t, 50.0, v.RSI)
	assert.Equal(t, analysis.DirectionNeutral, v.Direction)
	assert.Equal(t, analysis.MomentumNeutral, v.Momentum)
	assert.Equal(t, analysis.VolatilityLow, v.Volatility)
}

func TestOverallTrend(t *testing.T) {
	score, label := OverallTrend(5, 5, 5)
	assert.InDelta(t, 5.0, score, 1e-9)
	assert.Equal(t, analysis.TrendBullish, label)

	_, label = OverallTrend(-5, 0, 0)
	assert.Equal(t, analysis.TrendNeutral, label)

	_, label = OverallTrend(0, 0, -8)
	assert.Equal(t, analysis.TrendBearish, label)
}
