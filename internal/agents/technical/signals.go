package technical

import (
	"stockwatch/internal/agents/stats"
	"stockwatch/internal/domain/analysis"
)

// Fundamentals estimates P/E and P/B from market cap. Unknown market cap
// yields zero ratios and a FAIR valuation.
func Fundamentals(price, marketCap float64) analysis.Fundamentals {
	f := analysis.Fundamentals{Valuation: analysis.FairValue}
	if marketCap <= 0 {
		return f
	}

	earnings := marketCap * 0.1
	book := marketCap * 0.3
	f.PE = stats.Round(price/(earnings/1e6), 2)
	f.PB = stats.Round(price/(book/1e6), 2)
	f.Valuation = Valuation(f.PE, f.PB)
	return f
}

// Valuation buckets the ratios
func Valuation(pe, pb float64) analysis.Valuation {
	switch {
	case pe > 0 && pb > 0 && pe < 15 && pb < 1.5:
		return analysis.Undervalued
	case pe > 25 || pb > 3:
		return analysis.Overvalued
	default:
		return analysis.FairValue
	}
}

// Vote tallies RSI, trend, MACD and valuation. A side wins with more votes
// than the other and at least two.
func Vote(t *analysis.Technical) (analysis.Signal, map[analysis.Signal]int) {
	votes := map[analysis.Signal]int{analysis.SignalBuy: 0, analysis.SignalSell: 0}

	switch {
	case t.RSI < 30:
		votes[analysis.SignalBuy]++
	case t.RSI > 70:
		votes[analysis.SignalSell]++
	}

	switch t.Trend {
	case analysis.TrendBullish:
		votes[analysis.SignalBuy]++
	case analysis.TrendBearish:
		votes[analysis.SignalSell]++
	}

	if t.MACD.Line > t.MACD.Signal {
		votes[analysis.SignalBuy]++
	} else {
		votes[analysis.SignalSell]++
	}

	switch t.Fundamentals.Valuation {
	case analysis.Undervalued:
		votes[analysis.SignalBuy]++
	case analysis.Overvalued:
		votes[analysis.SignalSell]++
	}

	buy, sell := votes[analysis.SignalBuy], votes[analysis.SignalSell]
	switch {
	case buy > sell && buy >= 2:
		return analysis.SignalBuy, votes
	case sell > buy && sell >= 2:
		return analysis.SignalSell, votes
	default:
		return analysis.SignalHold, votes
	}
}

// Confidence starts at 0.5 and adds 0.1 for each of: RSI in [30,70],
// P/E in [10,30], a directional trend.
func Confidence(t *analysis.Technical) float64 {
	score := 0.5
	if t.RSI >= 30 && t.RSI <= 70 {
		score += 0.1
	}
	if t.Fundamentals.PE >= 10 && t.Fundamentals.PE <= 30 {
		score += 0.1
	}
	if t.Trend.Directional() {
		score += 0.1
	}
	return stats.Round(stats.Clamp(score, 0, 1), 2)
}
