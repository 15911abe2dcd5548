package technical

import (
	"stockwatch/internal/domain/analysis"
	"stockwatch/internal/domain/market_data"
)

// AnalyzeWindow summarizes the last days closes. A window longer than the
// history yields neutral defaults.
func AnalyzeWindow(closes []float64, days int) analysis.TimeframeView {
	if len(closes) < days || days < 2 {
		return analysis.TimeframeView{
			Days:       days,
			RSI:        50,
			Direction:  analysis.DirectionNeutral,
			Momentum:   analysis.MomentumNeutral,
			Volatility: analysis.VolatilityLow,
			Signal:     analysis.SignalHold,
		}
	}

	window := closes[len(closes)-days:]
	view := analysis.TimeframeView{
		Days:       days,
		RSI:        RSI(window, rsiPeriod),
		Momentum:   Momentum(window),
		Volatility: VolatilityTier(window),
	}
	switch HalfTrend(window, 0.02) {
	case 1:
		view.Direction = analysis.DirectionUp
	case -1:
		view.Direction = analysis.DirectionDown
	default:
		view.Direction = analysis.DirectionNeutral
	}
	return view
}

// MultiTimeframeView builds the short/medium/long views, their per-horizon
// signals, the weighted overall trend and the trend strength.
func MultiTimeframeView(snap market_data.Snapshot) analysis.MultiTimeframe {
	closes := snap.Closes()

	short := AnalyzeWindow(closes, ShortWindow)
	medium := AnalyzeWindow(closes, MediumWindow)
	long := AnalyzeWindow(closes, LongWindow)

	short.Signal = shortSignal(short)
	medium.Signal = mediumSignal(medium)
	long.Signal = longSignal(long)

	sc := snap.ChangePercent(ShortWindow)
	mc := snap.ChangePercent(MediumWindow)
	lc := snap.ChangePercent(LongWindow)
	score, overall := OverallTrend(sc, mc, lc)

	return analysis.MultiTimeframe{
		Short:         short,
		Medium:        medium,
		Long:          long,
		OverallScore:  score,
		OverallTrend:  overall,
		TrendStrength: TrendStrength(sc, mc, lc),
	}
}

// OverallTrend weights longer horizons more heavily
func OverallTrend(short, medium, long float64) (float64, analysis.TrendLabel) {
	score := short*0.2 + medium*0.3 + long*0.5
	switch {
	case score > 2:
		return score, analysis.TrendBullish
	case score < -2:
		return score, analysis.TrendBearish
	default:
		return score, analysis.TrendNeutral
	}
}

// TrendStrength counts rising and falling horizons
func TrendStrength(changes ...float64) string {
	var up, down int
	for _, c := range changes {
		switch {
		case c > 0:
			up++
		case c < 0:
			down++
		}
	}
	switch {
	case up >= 2 && up == len(changes):
		return analysis.StrengthStrongBullish
	case up >= 2:
		return analysis.StrengthModerateBullish
	case down >= 2 && down == len(changes):
		return analysis.StrengthStrongBearish
	case down >= 2:
		return analysis.StrengthModerateBearish
	default:
		return analysis.StrengthNeutral
	}
}

func shortSignal(v analysis.TimeframeView) analysis.Signal {
	switch {
	case v.Direction == analysis.DirectionUp && v.RSI < 70:
		return analysis.SignalBuy
	case v.Direction == analysis.DirectionDown && v.RSI > 30:
		return analysis.SignalSell
	}
	return analysis.SignalHold
}

func mediumSignal(v analysis.TimeframeView) analysis.Signal {
	switch {
	case v.Direction == analysis.DirectionUp && v.Momentum == analysis.MomentumPositive:
		return analysis.SignalBuy
	case v.Direction == analysis.DirectionDown && v.Momentum == analysis.MomentumNegative:
		return analysis.SignalSell
	}
	return analysis.SignalHold
}

func longSignal(v analysis.TimeframeView) analysis.Signal {
	switch {
	case v.Direction == analysis.DirectionUp && v.Volatility == analysis.VolatilityLow:
		return analysis.SignalBuy
	case v.Direction == analysis.DirectionDown && v.Volatility == analysis.VolatilityHigh:
		return analysis.SignalSell
	}
	return analysis.SignalHold
}
