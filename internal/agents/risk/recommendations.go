package risk

import "stockwatch/internal/domain/analysis"

// Recommendations turns metric thresholds into short guidance lines
func Recommendations(r *analysis.Risk) []string {
	var out []string

	switch {
	case r.AnnualizedVolatility > 40:
		out = append(out, "High volatility: control position size and avoid over-concentration")
	case r.AnnualizedVolatility < 15:
		out = append(out, "Low volatility: relatively stable, suitable for conservative investors")
	}

	switch {
	case r.MaxDrawdown < -30:
		out = append(out, "Large drawdown risk: significant historical declines, be cautious")
	case r.MaxDrawdown < -20:
		out = append(out, "Moderate drawdown: noticeable historical pullbacks")
	}

	switch {
	case r.Beta > 1.5:
		out = append(out, "High beta: moves more than the market, suits a higher risk appetite")
	case r.Beta < 0.5:
		out = append(out, "Low beta: relatively stable with lower market correlation")
	}

	switch {
	case r.SharpeRatio < 0:
		out = append(out, "Negative Sharpe ratio: risk-adjusted return is negative")
	case r.SharpeRatio > 1.0:
		out = append(out, "Good risk-return profile: Sharpe ratio above 1.0")
	case r.SharpeRatio > 0.5:
		out = append(out, "Reasonable risk-return profile: Sharpe ratio within acceptable range")
	}

	switch r.Level {
	case analysis.RiskVeryHigh:
		out = append(out, "Very high risk: suitable only for very high risk tolerance")
	case analysis.RiskHigh:
		out = append(out, "High risk: keep position size small and monitor closely")
	}

	if len(out) == 0 {
		out = append(out, "Risk metrics are within a reasonable range")
	}
	return out
}
