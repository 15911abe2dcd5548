package alerts

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stockwatch/internal/adapters/ai"
	"stockwatch/internal/agents/stats"
	"stockwatch/internal/domain/alert"
	"stockwatch/internal/domain/market_data"
	"stockwatch/internal/metrics"
	"stockwatch/internal/tracing"
	"stockwatch/pkg/errors"
	"stockwatch/pkg/kvstore"
	"stockwatch/pkg/logger"
)

const (
	minPatternPoints = 3
	maxNewsTitles    = 5
)

// HistorySource supplies daily bars, oldest first
type HistorySource interface {
	History(ctx context.Context, symbol string, days int) ([]market_data.OHLCV, error)
}

// NewsSource supplies recent headlines for narrative context
type NewsSource interface {
	RecentArticles(ctx context.Context, symbol string, limit int) ([]market_data.Article, error)
}

// Heuristic names one smart trigger rule
type Heuristic string

const (
	HeuristicSharpDrop       Heuristic = "sharp_daily_drop"
	HeuristicDropStreak      Heuristic = "consecutive_drops"
	HeuristicWeeklyOnVolume  Heuristic = "weekly_decline_on_volume"
	HeuristicVolatileDecline Heuristic = "volatile_decline"
)

// Pattern holds the window metrics. Percent fields are ×100; Volatility is a fraction.
type Pattern struct {
	CurrentPrice     float64 `json:"current_price"`
	DailyChange      float64 `json:"daily_change"`
	WeekChange       float64 `json:"week_change"`
	ConsecutiveDrops int     `json:"consecutive_drops"`
	TotalDrop        float64 `json:"total_drop_percent"`
	MaxSingleDrop    float64 `json:"max_single_drop"`
	VolumeSpike      float64 `json:"volume_spike"`
	Volatility       float64 `json:"price_volatility"`
	TrendStrength    float64 `json:"trend_strength"`
}

// AnalyzePattern computes the window metrics from bars ordered oldest first.
// ok is false with fewer than three bars.
func AnalyzePattern(bars []market_data.OHLCV) (p Pattern, ok bool) {
	n := len(bars)
	if n < minPatternPoints {
		return p, false
	}

	// newest first from here on
	prices := make([]float64, n)
	volumes := make([]float64, n)
	for i, b := range bars {
		prices[n-1-i] = b.Close
		volumes[n-1-i] = b.Volume
	}

	changes := make([]float64, 0, n-1)
	for i := 0; i < n-1; i++ {
		if prices[i+1] == 0 {
			changes = append(changes, 0)
			continue
		}
		changes = append(changes, (prices[i]-prices[i+1])/prices[i+1]*100)
	}

	p.CurrentPrice = prices[0]
	p.DailyChange = changes[0]
	if oldest := prices[n-1]; oldest != 0 {
		p.WeekChange = (prices[0] - oldest) / oldest * 100
	}

	for _, c := range changes {
		if c >= 0 {
			break
		}
		p.ConsecutiveDrops++
		p.TotalDrop += -c
		p.MaxSingleDrop = math.Max(p.MaxSingleDrop, -c)
	}

	p.VolumeSpike = 1
	if avg := stats.Mean(volumes); avg > 0 {
		p.VolumeSpike = volumes[0] / avg
	}

	fractions := make([]float64, len(changes))
	for i, c := range changes {
		fractions[i] = c / 100
	}
	p.Volatility = stats.StdDev(fractions)

	chrono := make([]float64, n)
	for i, b := range bars {
		chrono[i] = b.Close
	}
	p.TrendStrength = stats.Slope(chrono)
	return p, true
}

// Fired returns the heuristics that hold for threshold (a negative percent)
func Fired(p Pattern, threshold float64) []Heuristic {
	var fired []Heuristic
	mag := math.Abs(threshold)
	if p.DailyChange <= 2*threshold {
		fired = append(fired, HeuristicSharpDrop)
	}
	if p.ConsecutiveDrops >= 3 && p.TotalDrop >= 1.5*mag {
		fired = append(fired, HeuristicDropStreak)
	}
	if p.WeekChange <= threshold && p.VolumeSpike >= 1.5 && p.ConsecutiveDrops >= 2 {
		fired = append(fired, HeuristicWeeklyOnVolume)
	}
	if p.Volatility > 0.05 && p.DailyChange <= threshold && p.MaxSingleDrop >= mag {
		fired = append(fired, HeuristicVolatileDecline)
	}
	return fired
}

// Summarize describes the fired heuristics without a narrator
func Summarize(p Pattern, fired []Heuristic) string {
	parts := make([]string, 0, len(fired))
	for _, h := range fired {
		switch h {
		case HeuristicSharpDrop:
			parts = append(parts, fmt.Sprintf("sharp daily drop of %.2f%%", p.DailyChange))
		case HeuristicDropStreak:
			parts = append(parts, fmt.Sprintf("%d consecutive down days totaling %.2f%%", p.ConsecutiveDrops, p.TotalDrop))
		case HeuristicWeeklyOnVolume:
			parts = append(parts, fmt.Sprintf("weekly change %.2f%% on %.1fx volume", p.WeekChange, p.VolumeSpike))
		case HeuristicVolatileDecline:
			parts = append(parts, fmt.Sprintf("volatile decline with a %.2f%% single-day drop", p.MaxSingleDrop))
		}
	}
	if len(parts) == 0 {
		return "Price pattern analysis completed"
	}
	return strings.Join(parts, "; ")
}

// SmartStats summarizes one smart sweep
type SmartStats struct {
	Checked   int `json:"checked"`
	Triggered int `json:"triggered"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
}

type SmartConfig struct {
	WindowDays int
	Timeout    time.Duration
	LockTTL    time.Duration
}

// SmartAnalyzer triggers PENDING alerts on multi-day price patterns,
// bypassing the cumulative counter
type SmartAnalyzer struct {
	alerts    alert.Repository
	history   HistorySource
	news      NewsSource
	narrator  ai.Narrator
	publisher alert.Publisher
	cfg       SmartConfig
	guard     *sweepGuard
	now       func() time.Time
	log       *logger.Logger
}

type SmartOption func(*SmartAnalyzer)

func WithSmartNarrator(n ai.Narrator) SmartOption {
	return func(s *SmartAnalyzer) { s.narrator = n }
}

func WithSmartNews(n NewsSource) SmartOption {
	return func(s *SmartAnalyzer) { s.news = n }
}

func WithSmartPublisher(p alert.Publisher) SmartOption {
	return func(s *SmartAnalyzer) { s.publisher = p }
}

func WithSmartLocker(l kvstore.Locker) SmartOption {
	return func(s *SmartAnalyzer) { s.guard.locker = l }
}

func WithSmartClock(now func() time.Time) SmartOption {
	return func(s *SmartAnalyzer) { s.now = now }
}

func NewSmartAnalyzer(alerts alert.Repository, history HistorySource, cfg SmartConfig, opts ...SmartOption) *SmartAnalyzer {
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = 7
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.LockTTL == 0 {
		cfg.LockTTL = 10 * time.Minute
	}
	log := logger.Get().With("component", "smart_alerts")
	s := &SmartAnalyzer{
		alerts:  alerts,
		history: history,
		cfg:     cfg,
		guard:   &sweepGuard{name: "smart_alert", ttl: cfg.LockTTL, log: log},
		now:     time.Now,
		log:     log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sweep checks every PENDING price-drop alert against its recent price
// pattern. The heuristics only describe declines, so other alert types are
// left to the threshold sweep.
func (s *SmartAnalyzer) Sweep(ctx context.Context) (SmartStats, error) {
	var st SmartStats

	release, err := s.guard.acquire(ctx)
	if err != nil {
		metrics.RecordSweep("smart", "overlap")
		return st, err
	}
	defer release()

	ctx, span := tracing.StartSpan(ctx, "alerts.smart_sweep")
	defer span.End()

	pending, err := s.alerts.ListByStatus(ctx, alert.StatusPending)
	if err != nil {
		metrics.RecordSweep("smart", "error")
		return st, errors.Wrap(err, "list pending alerts")
	}

	windows := make(map[string][]market_data.OHLCV)
	for _, a := range pending {
		if a.Type != alert.TypePriceDrop {
			continue
		}
		if err := ctx.Err(); err != nil {
			metrics.RecordSweep("smart", "cancelled")
			return st, err
		}
		st.Checked++

		triggered, err := s.check(ctx, a, windows)
		switch {
		case err != nil:
			st.Errors++
			s.log.Errorw("Smart alert check failed",
				"alert_id", a.ID, "symbol", a.Symbol,
				"error", errors.Join(errors.ErrAlertEvaluation, err),
			)
		case triggered:
			st.Triggered++
		default:
			st.Skipped++
		}
	}

	metrics.RecordSweep("smart", "ok")
	s.log.Infow("Smart alert sweep completed",
		"checked", st.Checked,
		"triggered", st.Triggered,
		"skipped", st.Skipped,
		"errors", st.Errors,
	)
	return st, nil
}

func (s *SmartAnalyzer) check(ctx context.Context, a *alert.Alert, windows map[string][]market_data.OHLCV) (bool, error) {
	bars, ok := windows[a.Symbol]
	if !ok {
		fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		var err error
		bars, err = s.history.History(fetchCtx, a.Symbol, s.cfg.WindowDays)
		cancel()
		if err != nil {
			s.log.Warnw("History unavailable, skipping smart check", "symbol", a.Symbol, "error", err)
			bars = nil
		}
		windows[a.Symbol] = bars
	}
	if len(bars) > s.cfg.WindowDays {
		bars = bars[len(bars)-s.cfg.WindowDays:]
	}

	pattern, ok := AnalyzePattern(bars)
	if !ok {
		return false, nil
	}
	fired := Fired(pattern, a.ThresholdValue.InexactFloat64())
	if len(fired) == 0 {
		return false, nil
	}

	summary := s.summary(ctx, a, pattern, fired)
	now := s.now()
	a.Trigger(now, fmt.Sprintf("Smart Alert: %s triggered - %s", a.Symbol, summary))
	a.CurrentValue = decimal.NewFromFloat(pattern.CurrentPrice)
	err := s.alerts.Save(ctx, a)
	if errors.Is(err, errors.ErrConflict) {
		s.log.Infow("Alert changed during smart sweep, skipping", "alert_id", a.ID, "symbol", a.Symbol)
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "save alert")
	}

	s.log.Infow("Smart alert triggered", "alert_id", a.ID, "symbol", a.Symbol, "heuristics", fired)
	metrics.RecordAlertTriggered("smart", string(a.Type))
	if s.publisher != nil {
		ev := alert.NewEvent(alert.EventSmartTriggered, a, decimal.NewFromFloat(pattern.DailyChange), now)
		if err := s.publisher.PublishAlertEvent(ctx, ev); err != nil {
			s.log.Warnw("Failed to publish smart alert event", "alert_id", a.ID, "error", err)
		}
	}
	return true, nil
}

// summary asks the narrator for an explanation and falls back to Summarize
func (s *SmartAnalyzer) summary(ctx context.Context, a *alert.Alert, p Pattern, fired []Heuristic) string {
	fallback := Summarize(p, fired)
	if s.narrator == nil {
		return fallback
	}

	nc := ai.NarrativeContext{
		Purpose: ai.PurposeSmartAlert,
		Symbol:  a.Symbol,
		Metrics: map[string]float64{
			"current_price":      p.CurrentPrice,
			"daily_change":       p.DailyChange,
			"week_change":        p.WeekChange,
			"consecutive_drops":  float64(p.ConsecutiveDrops),
			"total_drop_percent": p.TotalDrop,
			"volume_spike":       p.VolumeSpike,
			"volatility_percent": p.Volatility * 100,
			"threshold":          a.ThresholdValue.InexactFloat64(),
		},
		Signals: map[string]string{},
	}
	for _, h := range fired {
		nc.Signals[string(h)] = "fired"
	}
	if s.news != nil {
		articles, err := s.news.RecentArticles(ctx, a.Symbol, maxNewsTitles)
		if err != nil {
			s.log.Debugw("No news for smart alert context", "symbol", a.Symbol, "error", err)
		}
		for i, art := range articles {
			if i == maxNewsTitles {
				break
			}
			nc.Headlines = append(nc.Headlines, art.Title)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	text, err := s.narrator.GenerateNarrative(ctx, nc)
	if err != nil || strings.TrimSpace(text) == "" {
		s.log.Warnw("Smart alert narrative unavailable", "symbol", a.Symbol, "error", err)
		return fallback
	}
	return strings.TrimSpace(text)
}
