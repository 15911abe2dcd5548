package alerts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch/internal/adapters/ai"
	"stockwatch/internal/domain/alert"
	"stockwatch/internal/domain/market_data"
	"stockwatch/internal/testsupport"
	"stockwatch/pkg/errors"
)

type scriptedNarrator struct {
	text string
	err  error
	got  ai.NarrativeContext
}

func (n *scriptedNarrator) GenerateNarrative(_ context.Context, nc ai.NarrativeContext) (string, error) {
	n.got = nc
	return n.text, n.err
}

func (f *fixture) smart(opts ...SmartOption) *SmartAnalyzer {
	opts = append([]SmartOption{
		WithSmartPublisher(f.events),
		WithSmartClock(func() time.Time { return clock }),
	}, opts...)
	return NewSmartAnalyzer(f.alerts, f.prices, SmartConfig{WindowDays: 7}, opts...)
}

// three consecutive 5.4% declines, 16.2% in total, none beyond 2x a -10 threshold
var dropStreak = []float64{100, 100, 94.6, 89.4916, 84.6590536}

func TestAnalyzePattern(t *testing.T) {
	bars := testsupport.Bars("X", clock, []float64{10, 11, 10, 9}, []float64{100, 100, 100, 400})
	p, ok := AnalyzePattern(bars)
	require.True(t, ok)

	assert.Equal(t, 9.0, p.CurrentPrice)
	assert.InDelta(t, -10, p.DailyChange, 1e-9)
	assert.InDelta(t, -10, p.WeekChange, 1e-9)
	assert.Equal(t, 2, p.ConsecutiveDrops)
	assert.InDelta(t, 10+100.0/11, p.TotalDrop, 1e-9)
	assert.InDelta(t, 10, p.MaxSingleDrop, 1e-9)
	assert.InDelta(t, 400.0/175, p.VolumeSpike, 1e-9)
	assert.InDelta(t, -0.4, p.TrendStrength, 1e-9)
	assert.Greater(t, p.Volatility, 0.05)

	assert.Equal(t,
		[]Heuristic{HeuristicSharpDrop, HeuristicWeeklyOnVolume, HeuristicVolatileDecline},
		Fired(p, -4.9))

	_, ok = AnalyzePattern(bars[:2])
	assert.False(t, ok)
}

func TestAnalyzePattern_DropRunStopsAtFirstGain(t *testing.T) {
	// newest first: -1%, +2%, -3%
	bars := testsupport.Bars("X", clock, []float64{100, 97, 98.94, 97.9506}, nil)
	p, ok := AnalyzePattern(bars)
	require.True(t, ok)
	assert.Equal(t, 1, p.ConsecutiveDrops)
	assert.InDelta(t, 1, p.TotalDrop, 1e-6)
	assert.InDelta(t, 1, p.MaxSingleDrop, 1e-6)
	assert.Equal(t, 1.0, p.VolumeSpike)
}

func TestFired_DropStreakOnly(t *testing.T) {
	p, ok := AnalyzePattern(testsupport.Bars("X", clock, dropStreak, nil))
	require.True(t, ok)
	assert.Equal(t, 3, p.ConsecutiveDrops)
	assert.InDelta(t, 16.2, p.TotalDrop, 1e-6)
	assert.Equal(t, []Heuristic{HeuristicDropStreak}, Fired(p, -10))
	assert.Empty(t, Fired(p, -20))
}

func TestSmartSweep_TriggersBypassingCounter(t *testing.T) {
	f := newFixture()
	a := f.track(t, "AAPL", 100, alert.TypePriceDrop, -10)
	stored := f.reload(t, a.ID)
	stored.TriggerCount = 1
	require.NoError(t, f.alerts.Save(context.Background(), stored))
	f.prices.SetHistory("AAPL", testsupport.Bars("AAPL", clock, dropStreak, nil))

	stats, err := f.smart().Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SmartStats{Checked: 1, Triggered: 1}, stats)

	got := f.reload(t, a.ID)
	assert.Equal(t, alert.StatusTriggered, got.Status)
	assert.Zero(t, got.TriggerCount)
	require.NotNil(t, got.TriggeredAt)
	assert.Equal(t, "Smart Alert: AAPL triggered - 3 consecutive down days totaling 16.20%", got.Message)
	assert.True(t, got.CurrentValue.Equal(decimal.NewFromFloat(84.6590536)))

	require.Len(t, f.events.events, 1)
	assert.Equal(t, alert.EventSmartTriggered, f.events.events[0].Type)
}

func TestSmartSweep_UsesNarrative(t *testing.T) {
	f := newFixture()
	a := f.track(t, "AAPL", 100, alert.TypePriceDrop, -10)
	f.prices.SetHistory("AAPL", testsupport.Bars("AAPL", clock, dropStreak, nil))
	feed := &testsupport.FakeNews{Articles: map[string][]market_data.Article{
		"AAPL": {{Title: "Apple slides on supply worries"}},
	}}
	narr := &scriptedNarrator{text: " Supply concerns drove a three-day slide. "}

	_, err := f.smart(WithSmartNarrator(narr), WithSmartNews(feed)).Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Smart Alert: AAPL triggered - Supply concerns drove a three-day slide.", f.reload(t, a.ID).Message)
	assert.Equal(t, ai.PurposeSmartAlert, narr.got.Purpose)
	assert.Equal(t, []string{"Apple slides on supply worries"}, narr.got.Headlines)
	assert.Equal(t, "fired", narr.got.Signals[string(HeuristicDropStreak)])
	assert.InDelta(t, 3, narr.got.Metrics["consecutive_drops"], 1e-9)
}

func TestSmartSweep_NarratorFailureFallsBack(t *testing.T) {
	f := newFixture()
	a := f.track(t, "AAPL", 100, alert.TypePriceDrop, -10)
	f.prices.SetHistory("AAPL", testsupport.Bars("AAPL", clock, dropStreak, nil))

	_, err := f.smart(WithSmartNarrator(&scriptedNarrator{err: errors.ErrTimeout})).Sweep(context.Background())
	require.NoError(t, err)
	assert.Contains(t, f.reload(t, a.ID).Message, "3 consecutive down days")
}

func TestSmartSweep_SkipsQuietAndShortWindows(t *testing.T) {
	f := newFixture()
	quiet := f.track(t, "MSFT", 100, alert.TypePriceDrop, -5)
	short := f.track(t, "IBM", 100, alert.TypePriceDrop, -5)
	missing := f.track(t, "ORCL", 100, alert.TypePriceDrop, -5)
	f.prices.
		SetCloses("MSFT", 100, 101, 100.5, 101.2).
		SetCloses("IBM", 100, 80).
		FailHistory("ORCL", errors.ErrTimeout)

	stats, err := f.smart().Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SmartStats{Checked: 3, Skipped: 3}, stats)
	for _, id := range []uuid.UUID{quiet.ID, short.ID, missing.ID} {
		assert.Equal(t, alert.StatusPending, f.reload(t, id).Status)
	}
}

func TestSmartSweep_OnlyChecksPriceDropAlerts(t *testing.T) {
	f := newFixture()
	spike := f.track(t, "MSFT", 100, alert.TypePriceSpike, 5)
	vol := f.track(t, "AAPL", 100, alert.TypeVolatility, 3)
	f.prices.
		SetCloses("MSFT", 100, 100.5, 101, 101.5, 102, 102.5, 103).
		SetHistory("AAPL", testsupport.Bars("AAPL", clock, dropStreak, nil))

	stats, err := f.smart().Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Checked)
	assert.Zero(t, stats.Triggered)

	for _, id := range []uuid.UUID{spike.ID, vol.ID} {
		got := f.reload(t, id)
		assert.Equal(t, alert.StatusPending, got.Status)
		assert.Nil(t, got.TriggeredAt)
	}
	assert.Empty(t, f.events.events)
}

func TestSmartSweep_IgnoresAcknowledged(t *testing.T) {
	f := newFixture()
	a := f.track(t, "AAPL", 100, alert.TypePriceDrop, -10)
	acked := f.reload(t, a.ID)
	acked.Acknowledge(clock)
	require.NoError(t, f.alerts.Save(context.Background(), acked))
	f.prices.SetHistory("AAPL", testsupport.Bars("AAPL", clock, dropStreak, nil))

	stats, err := f.smart().Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Checked)
}

func TestSmartSweep_RejectsOverlap(t *testing.T) {
	s := newFixture().smart()
	s.guard.running.Store(true)
	_, err := s.Sweep(context.Background())
	assert.True(t, errors.Is(err, errors.ErrSweepInProgress))
}

func TestSummarize(t *testing.T) {
	p := Pattern{DailyChange: -12.5, ConsecutiveDrops: 2, TotalDrop: 14, WeekChange: -9, VolumeSpike: 2, MaxSingleDrop: 12.5}
	assert.Equal(t,
		"sharp daily drop of -12.50%; weekly change -9.00% on 2.0x volume",
		Summarize(p, []Heuristic{HeuristicSharpDrop, HeuristicWeeklyOnVolume}))
	assert.Equal(t, "Price pattern analysis completed", Summarize(p, nil))
}
