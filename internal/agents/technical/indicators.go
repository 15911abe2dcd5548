package technical

import (
	"github.com/markcheno/go-talib"

	"stockwatch/internal/agents/stats"
	"stockwatch/internal/domain/analysis"
)

const (
	rsiPeriod  = 14
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9

	// signal line used when a true EMA of the MACD series is not requested
	approxSignalFactor = 0.9
)

// MovingAveragePeriods are the SMA windows reported on every result
var MovingAveragePeriods = []int{20, 50, 200}

// RSI uses simple averages of gains and losses over the last period deltas.
// Returns 50 when fewer than period+1 prices are given and 100 when there were no losses.
func RSI(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period+1 {
		return 50
	}

	var gains, losses float64
	for i := len(prices) - period; i < len(prices); i++ {
		delta := prices[i] - prices[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		return 100
	}

	rs := avgGain / avgLoss
	return stats.Round(100-100/(1+rs), 2)
}

// EMA returns the last value of an SMA-seeded exponential average.
// With fewer than period prices it returns the latest price.
func EMA(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if period <= 0 || len(prices) < period {
		return prices[len(prices)-1]
	}
	series := talib.Ema(prices, period)
	return series[len(series)-1]
}

// SMA returns the mean of the last period prices, 0 when history is short
func SMA(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period {
		return 0
	}
	series := talib.Sma(prices, period)
	return series[len(series)-1]
}

// MovingAverages computes SMA for each of MovingAveragePeriods, rounded to cents
func MovingAverages(prices []float64) map[int]float64 {
	out := make(map[int]float64, len(MovingAveragePeriods))
	for _, p := range MovingAveragePeriods {
		out[p] = stats.Round(SMA(prices, p), 2)
	}
	return out
}

// MACD computes EMA12-EMA26. With trueSignal the signal line is EMA9 of the
// MACD series; otherwise it is 0.9 x the line. All zero below 26 prices.
func MACD(prices []float64, trueSignal bool) analysis.MACD {
	n := len(prices)
	if n < macdSlow {
		return analysis.MACD{}
	}

	fast := talib.Ema(prices, macdFast)
	slow := talib.Ema(prices, macdSlow)
	line := fast[n-1] - slow[n-1]

	signal := line * approxSignalFactor
	if trueSignal {
		series := make([]float64, 0, n-macdSlow+1)
		for i := macdSlow - 1; i < n; i++ {
			series = append(series, fast[i]-slow[i])
		}
		if len(series) >= macdSignal {
			sig := talib.Ema(series, macdSignal)
			signal = sig[len(sig)-1]
		}
	}

	return analysis.MACD{
		Line:      stats.Round(line, 4),
		Signal:    stats.Round(signal, 4),
		Histogram: stats.Round(line-signal, 4),
	}
}

// HalfTrend compares the mean of the second half of prices to the first half.
// A move beyond threshold (0.02 = 2%) is directional.
func HalfTrend(prices []float64, threshold float64) int {
	if len(prices) < 2 {
		return 0
	}
	first, second := stats.HalfMeans(prices)
	switch {
	case second > first*(1+threshold):
		return 1
	case second < first*(1-threshold):
		return -1
	default:
		return 0
	}
}

// TrendLabel maps HalfTrend over the window to BULLISH, BEARISH or SIDEWAYS
func TrendLabel(prices []float64) analysis.TrendLabel {
	switch HalfTrend(prices, 0.02) {
	case 1:
		return analysis.TrendBullish
	case -1:
		return analysis.TrendBearish
	default:
		return analysis.TrendSideways
	}
}

// Momentum classifies (last-first)/first at +-2%
func Momentum(prices []float64) string {
	if len(prices) < 2 || prices[0] == 0 {
		return analysis.MomentumNeutral
	}
	m := (prices[len(prices)-1] - prices[0]) / prices[0]
	switch {
	case m > 0.02:
		return analysis.MomentumPositive
	case m < -0.02:
		return analysis.MomentumNegative
	default:
		return analysis.MomentumNeutral
	}
}

// VolatilityTier classifies the coefficient of variation of prices
func VolatilityTier(prices []float64) string {
	if len(prices) < 2 {
		return analysis.VolatilityLow
	}
	mean := stats.Mean(prices)
	if mean <= 0 {
		return analysis.VolatilityLow
	}
	cv := stats.StdDev(prices) / mean
	switch {
	case cv > 0.05:
		return analysis.VolatilityHigh
	case cv > 0.02:
		return analysis.VolatilityMedium
	default:
		return analysis.VolatilityLow
	}
}
