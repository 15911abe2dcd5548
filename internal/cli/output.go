package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"stockwatch/internal/domain/alert"
	"stockwatch/internal/orchestrator"
)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printResult renders a pipeline report for a terminal
func printResult(w io.Writer, r *orchestrator.Result) {
	fmt.Fprintf(w, "%s  $%s", r.Symbol, humanize.CommafWithDigits(r.Snapshot.CurrentPrice, 2))
	if r.Snapshot.MarketCap > 0 {
		fmt.Fprintf(w, "  cap %s", humanize.SIWithDigits(r.Snapshot.MarketCap, 2, ""))
	}
	if r.Cached {
		fmt.Fprint(w, "  (cached)")
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Status:         %s\n", r.Status)
	fmt.Fprintf(w, "Recommendation: %s\n", r.Recommendation)
	fmt.Fprintf(w, "Score:          %.1f (%s)  technical %.1f, risk %.1f, sentiment %.1f\n",
		r.Score.Value, r.Score.Rating, r.Score.Technical, r.Score.Risk, r.Score.Sentiment)

	for _, h := range r.Snapshot.Horizons {
		fmt.Fprintf(w, "  %3dd  %+7.2f%%  %s\n", h.Days, h.ChangePercent, h.Trend)
	}

	if r.Technical != nil && !r.Technical.InsufficientData {
		fmt.Fprintf(w, "Technical:      %s, RSI %.1f, confidence %.0f%%\n",
			r.Technical.Signal, r.Technical.RSI, r.Technical.Confidence*100)
	}
	if r.Risk != nil && !r.Risk.InsufficientData {
		fmt.Fprintf(w, "Risk:           %s (%.1f), VaR95 %.2f%%, max drawdown %.2f%%\n",
			r.Risk.Level, r.Risk.Score, r.Risk.VaR95, r.Risk.MaxDrawdown)
	}
	if r.Sentiment != nil {
		fmt.Fprintf(w, "Sentiment:      %s, fear/greed %.0f (%s)\n",
			r.Sentiment.News.Label, r.Sentiment.FearGreed.Index, r.Sentiment.FearGreed.Category)
	}

	for branch, msg := range r.Errors {
		fmt.Fprintf(w, "! %s failed: %s\n", branch, msg)
	}
	for _, rec := range r.Recommendations {
		fmt.Fprintf(w, "- %s\n", rec)
	}
	if r.Narrative != "" {
		fmt.Fprintf(w, "\n%s\n", r.Narrative)
	}
}

// printAlerts renders one line per alert
func printAlerts(w io.Writer, alerts []*alert.Alert, now time.Time) {
	if len(alerts) == 0 {
		fmt.Fprintln(w, "no alerts")
		return
	}
	for _, a := range alerts {
		line := fmt.Sprintf("%s  %-6s %-14s %-12s threshold %s  hits %d/%d",
			a.ID, a.Symbol, a.Type, a.Status, a.ThresholdValue.String(), a.TriggerCount, a.RequiredTriggers)
		if a.TriggeredAt != nil {
			line += "  triggered " + humanize.RelTime(*a.TriggeredAt, now, "ago", "from now")
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
}

func printEvent(w io.Writer, topic string, ev alert.Event) {
	fmt.Fprintf(w, "%s  [%s] %s %s %s  price %s  change %s%%  %s\n",
		ev.OccurredAt.Format(time.RFC3339), topic, ev.Type, ev.Symbol, ev.AlertType,
		ev.Price.StringFixed(2), ev.ChangePercent.StringFixed(2), ev.Message)
}
