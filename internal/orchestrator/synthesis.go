package orchestrator

import (
	"context"
	"fmt"
	"sort"

	"stockwatch/internal/adapters/ai"
	"stockwatch/internal/agents/stats"
	"stockwatch/internal/domain/analysis"
	"stockwatch/internal/domain/market_data"
	"stockwatch/internal/tracing"
)

// Component weights of the overall score
const (
	weightTechnical = 0.4
	weightRisk      = 0.3
	weightSentiment = 0.3

	// neutralComponent stands in for a branch that failed
	neutralComponent = 50.0

	maxHeadlines = 5
)

func (o *Orchestrator) synthesize(ctx context.Context, res *Result, snap market_data.Snapshot, branches []BranchResult) {
	_, span := tracing.StartSpan(ctx, "pipeline.synthesize")
	defer span.End()

	res.Snapshot = Summarize(snap)
	res.Errors = make(map[string]string)
	for _, br := range branches {
		if br.Err != nil {
			res.Errors[br.Agent] = br.Err.Error()
		}
	}

	if t, ok := branchOutput[*analysis.Technical](branches); ok {
		res.Technical = t
	}
	if r, ok := branchOutput[*analysis.Risk](branches); ok {
		res.Risk = r
	}
	if s, ok := branchOutput[*analysis.Sentiment](branches); ok {
		res.Sentiment = s
	}

	res.Status = StatusCompleted
	if len(res.Errors) > 0 {
		res.Status = StatusPartialFailure
	}

	res.Recommendation = Recommend(res.Technical, res.Risk, res.Sentiment)
	res.Score = OverallScore(res.Technical, res.Risk, res.Sentiment)
	res.Recommendations = Recommendations(res.Technical, res.Risk, res.Sentiment)
}

// Summarize keeps the report-relevant part of a snapshot
func Summarize(snap market_data.Snapshot) SnapshotSummary {
	sum := SnapshotSummary{
		CurrentPrice: snap.CurrentPrice,
		Volume:       snap.Volume,
		MarketCap:    snap.MarketCap,
		Horizons:     snap.Horizons,
		DataPoints:   len(snap.History),
		NewsCount:    len(snap.News),
		CollectedAt:  snap.CollectedAt,
	}
	for i, a := range snap.News {
		if i == maxHeadlines {
			break
		}
		sum.Headlines = append(sum.Headlines, a.Title)
	}
	return sum
}

// Recommend takes the majority of the directional technical and emotional
// signals. VERY_HIGH risk vetoes a BUY down to HOLD.
func Recommend(t *analysis.Technical, r *analysis.Risk, s *analysis.Sentiment) analysis.Signal {
	var buys, sells int
	count := func(sig analysis.Signal) {
		switch sig {
		case analysis.SignalBuy:
			buys++
		case analysis.SignalSell:
			sells++
		}
	}
	if t != nil && !t.InsufficientData {
		count(t.Signal)
	}
	if s != nil {
		count(s.Signal)
	}

	rec := analysis.SignalHold
	switch {
	case buys > sells:
		rec = analysis.SignalBuy
	case sells > buys:
		rec = analysis.SignalSell
	}

	if rec == analysis.SignalBuy && r != nil && r.Level == analysis.RiskVeryHigh {
		rec = analysis.SignalHold
	}
	return rec
}

// OverallScore blends the technical signal, inverted risk score and the fear
// & greed index. Missing branches count as neutral.
func OverallScore(t *analysis.Technical, r *analysis.Risk, s *analysis.Sentiment) Score {
	sc := Score{
		Technical: neutralComponent,
		Risk:      neutralComponent,
		Sentiment: neutralComponent,
	}
	if t != nil {
		switch t.Signal {
		case analysis.SignalBuy:
			sc.Technical += 20
		case analysis.SignalSell:
			sc.Technical -= 20
		}
	}
	if r != nil {
		sc.Risk = 100 - r.Score
	}
	if s != nil {
		sc.Sentiment = s.FearGreed.Index
	}

	sc.Value = stats.Round(
		sc.Technical*weightTechnical+sc.Risk*weightRisk+sc.Sentiment*weightSentiment, 1)
	sc.Rating = RatingFor(sc.Value)
	return sc
}

func RatingFor(score float64) Rating {
	switch {
	case score >= 80:
		return RatingExcellent
	case score >= 60:
		return RatingGood
	case score >= 40:
		return RatingFair
	default:
		return RatingPoor
	}
}

// Recommendations collects the advisory lines of every successful branch
func Recommendations(t *analysis.Technical, r *analysis.Risk, s *analysis.Sentiment) []string {
	var recs []string
	if t != nil {
		switch t.Signal {
		case analysis.SignalBuy:
			recs = append(recs, "Consider buying based on technical indicators")
		case analysis.SignalSell:
			recs = append(recs, "Consider selling based on technical indicators")
		}
	}
	if r != nil {
		switch r.Level {
		case analysis.RiskHigh, analysis.RiskVeryHigh:
			recs = append(recs, "High risk investment - consider position sizing")
		case analysis.RiskLow:
			recs = append(recs, "Low risk investment - suitable for conservative portfolios")
		}
	}
	if s != nil {
		switch s.FearGreed.Category {
		case analysis.ExtremeFear:
			recs = append(recs, "Market shows extreme fear - potential buying opportunity")
		case analysis.ExtremeGreed:
			recs = append(recs, "Market shows extreme greed - consider taking profits")
		}
	}
	return recs
}

// NarrativeContext flattens a result into the narrator's input
func NarrativeContext(res *Result, snap market_data.Snapshot) ai.NarrativeContext {
	nc := ai.NarrativeContext{
		Purpose: ai.PurposeReport,
		Symbol:  res.Symbol,
		Metrics: map[string]float64{
			"price":         snap.CurrentPrice,
			"overall_score": res.Score.Value,
		},
		Signals: map[string]string{
			"recommendation": string(res.Recommendation),
		},
		Headlines: res.Snapshot.Headlines,
	}
	for _, h := range snap.Horizons {
		nc.Metrics[horizonKey(h.Days)] = h.ChangePercent
	}
	if t := res.Technical; t != nil {
		nc.Metrics["rsi"] = t.RSI
		nc.Signals["technical_signal"] = string(t.Signal)
		nc.Signals["trend"] = string(t.Trend)
	}
	if r := res.Risk; r != nil {
		nc.Metrics["risk_score"] = r.Score
		nc.Metrics["max_drawdown"] = r.MaxDrawdown
		nc.Signals["risk_level"] = string(r.Level)
	}
	if s := res.Sentiment; s != nil {
		nc.Metrics["fear_greed"] = s.FearGreed.Index
		nc.Signals["news_sentiment"] = s.News.Label
	}
	return nc
}

func horizonKey(days int) string {
	return fmt.Sprintf("change_%dd", days)
}

// FailedBranches lists the branch names that produced an error, sorted
func (r *Result) FailedBranches() []string {
	names := make([]string, 0, len(r.Errors))
	for name := range r.Errors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
