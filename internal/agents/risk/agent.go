// Package risk implements the risk branch: volatility, heuristic beta, VaR,
// drawdown, Sharpe ratio and a clamped composite score.
package risk

import (
	"context"
	"math"
	"sort"

	"stockwatch/internal/agents/stats"
	"stockwatch/internal/domain/analysis"
	"stockwatch/internal/domain/market_data"
	"stockwatch/pkg/logger"
)

const (
	// MinDataPoints is the shortest close series the branch analyzes
	MinDataPoints = 10

	tradingDays  = 252
	riskFreeRate = 0.02
	varQuantile  = 0.05
)

// Agent computes a risk profile from a snapshot's closes
type Agent struct {
	log *logger.Logger
}

func New() *Agent {
	return &Agent{log: logger.Get().With("component", "risk_agent")}
}

func (a *Agent) Name() string { return string(analysis.KindRisk) }

func (a *Agent) Run(ctx context.Context, snap market_data.Snapshot) (analysis.Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return a.Analyze(snap.Closes()), nil
}

// Analyze builds the profile. Fewer than MinDataPoints closes produce zeros.
func (a *Agent) Analyze(closes []float64) *analysis.Risk {
	if len(closes) < MinDataPoints {
		a.log.Debugw("insufficient data for risk analysis", "points", len(closes))
		return &analysis.Risk{
			InsufficientData: true,
			Level:            analysis.RiskLow,
			Recommendations:  []string{"Insufficient price history for risk analysis"},
		}
	}

	returns := stats.Returns(closes)
	daily := Volatility(returns)
	beta := Beta(daily)
	valueAtRisk := VaR(returns)
	score := Score(daily, beta, valueAtRisk)

	r := &analysis.Risk{
		DailyVolatility:      daily,
		AnnualizedVolatility: stats.Round(daily*math.Sqrt(tradingDays), 2),
		Beta:                 beta,
		VaR95:                valueAtRisk,
		MaxDrawdown:          MaxDrawdown(returns),
		SharpeRatio:          Sharpe(returns),
		Score:                score,
		Level:                Level(score),
	}
	r.Recommendations = Recommendations(r)
	return r
}

// Volatility is the population stdev of returns in percent
func Volatility(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	return stats.Round(stats.StdDev(returns)*100, 2)
}

// Beta approximates market beta from daily volatility buckets
func Beta(dailyVolatility float64) float64 {
	switch {
	case dailyVolatility > 20:
		return 1.2
	case dailyVolatility > 10:
		return 1.0
	default:
		return 0.8
	}
}

// VaR is the magnitude of the 5th percentile return, in percent
func VaR(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	sorted := append([]float64(nil), returns...)
	sort.Float64s(sorted)
	idx := int(float64(len(sorted)) * varQuantile)
	return stats.Round(math.Abs(sorted[idx])*100, 2)
}

// MaxDrawdown is the most negative peak-to-trough move of the cumulative
// return series, in percent (<= 0).
func MaxDrawdown(returns []float64) float64 {
	cum := 1.0
	peak := 1.0
	worst := 0.0
	for _, r := range returns {
		cum *= 1 + r
		if cum > peak {
			peak = cum
		}
		if dd := (cum - peak) / peak; dd < worst {
			worst = dd
		}
	}
	return stats.Round(worst*100, 2)
}

// Sharpe is annualized excess return over annualized stdev
func Sharpe(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	annualStd := stats.StdDev(returns) * math.Sqrt(tradingDays)
	if annualStd == 0 {
		return 0
	}
	annualReturn := stats.Mean(returns) * tradingDays
	return stats.Round((annualReturn-riskFreeRate)/annualStd, 2)
}

// Score combines daily volatility, beta distance from 1 and VaR into [0,100]
func Score(dailyVolatility, beta, valueAtRisk float64) float64 {
	raw := dailyVolatility*0.4 + math.Abs(beta-1)*20*0.3 + valueAtRisk*0.3
	return stats.Clamp(stats.Round(raw, 1), 0, 100)
}

// Level buckets the score at 20, 50 and 80
func Level(score float64) analysis.RiskLevel {
	switch {
	case score < 20:
		return analysis.RiskLow
	case score < 50:
		return analysis.RiskMedium
	case score < 80:
		return analysis.RiskHigh
	default:
		return analysis.RiskVeryHigh
	}
}
