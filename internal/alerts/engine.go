// Package alerts evaluates tracked positions against user alerts: the
// threshold sweep with cumulative triggers, the pattern-based smart sweep,
// the user-facing alert service and notification dispatch.
package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"stockwatch/internal/domain/alert"
	"stockwatch/internal/domain/market_data"
	"stockwatch/internal/domain/tracking"
	"stockwatch/internal/metrics"
	"stockwatch/internal/tracing"
	"stockwatch/pkg/errors"
	"stockwatch/pkg/kvstore"
	"stockwatch/pkg/logger"
)

var hundred = decimal.NewFromInt(100)

// PriceSource supplies the latest traded price
type PriceSource interface {
	CurrentPrice(ctx context.Context, symbol string) (market_data.Quote, error)
}

// SweepStats summarizes one threshold sweep
type SweepStats struct {
	Checked   int `json:"checked"`
	Triggered int `json:"triggered"`
	Rearmed   int `json:"rearmed"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
}

type EngineConfig struct {
	// RequiredTriggers applies to alerts stored without their own value
	RequiredTriggers int
	// PriceTimeout bounds each price fetch
	PriceTimeout time.Duration
	// LockTTL is the lease length when a Locker is configured
	LockTTL time.Duration
}

// Engine runs the cumulative threshold sweep
type Engine struct {
	alerts    alert.Repository
	positions tracking.Repository
	prices    PriceSource
	publisher alert.Publisher
	cfg       EngineConfig
	guard     *sweepGuard
	now       func() time.Time
	log       *logger.Logger
}

type EngineOption func(*Engine)

func WithPublisher(p alert.Publisher) EngineOption {
	return func(e *Engine) { e.publisher = p }
}

// WithLocker makes sweeps exclusive across replicas sharing locker
func WithLocker(l kvstore.Locker) EngineOption {
	return func(e *Engine) { e.guard.locker = l }
}

func WithEngineClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

func NewEngine(alerts alert.Repository, positions tracking.Repository, prices PriceSource, cfg EngineConfig, opts ...EngineOption) *Engine {
	if cfg.RequiredTriggers < 1 {
		cfg.RequiredTriggers = 3
	}
	if cfg.PriceTimeout == 0 {
		cfg.PriceTimeout = 10 * time.Second
	}
	if cfg.LockTTL == 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	log := logger.Get().With("component", "alert_engine")
	e := &Engine{
		alerts:    alerts,
		positions: positions,
		prices:    prices,
		cfg:       cfg,
		guard:     &sweepGuard{name: "alert", ttl: cfg.LockTTL, log: log},
		now:       time.Now,
		log:       log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeMissed
	outcomeCounted
	outcomeTriggered
	outcomeRearmed
)

// sweepState memoizes lookups shared by alerts of the same symbol or position.
// coldStarts holds positions whose baseline was captured this sweep; their
// alerts are not evaluated until the next tick.
type sweepState struct {
	quotes     map[string]quoteResult
	positions  map[[2]uuid.UUID]*tracking.Position
	coldStarts map[uuid.UUID]bool
}

type quoteResult struct {
	price decimal.Decimal
	err   error
}

// Sweep evaluates every PENDING and ACKNOWLEDGED alert of an actively tracked
// position once, sequentially. Each alert commits on its own; a failing alert
// is counted and skipped.
func (e *Engine) Sweep(ctx context.Context) (SweepStats, error) {
	var stats SweepStats

	release, err := e.guard.acquire(ctx)
	if err != nil {
		metrics.RecordSweep("threshold", "overlap")
		return stats, err
	}
	defer release()

	ctx, span := tracing.StartSpan(ctx, "alerts.sweep")
	defer span.End()

	pending, err := e.alerts.ListByStatus(ctx, alert.StatusPending, alert.StatusAcknowledged)
	if err != nil {
		metrics.RecordSweep("threshold", "error")
		return stats, errors.Wrap(err, "list sweepable alerts")
	}

	state := &sweepState{
		quotes:     make(map[string]quoteResult),
		positions:  make(map[[2]uuid.UUID]*tracking.Position),
		coldStarts: make(map[uuid.UUID]bool),
	}
	for _, a := range pending {
		if err := ctx.Err(); err != nil {
			metrics.RecordSweep("threshold", "cancelled")
			return stats, err
		}
		stats.Checked++

		out, err := e.evaluate(ctx, a, state)
		if err != nil {
			stats.Errors++
			e.log.Errorw("Alert evaluation failed",
				"alert_id", a.ID, "symbol", a.Symbol,
				"error", errors.Join(errors.ErrAlertEvaluation, err),
			)
			continue
		}
		switch out {
		case outcomeSkipped:
			stats.Skipped++
		case outcomeTriggered:
			stats.Triggered++
		case outcomeRearmed:
			stats.Rearmed++
		}
	}

	metrics.RecordSweep("threshold", "ok")
	e.log.Infow("Alert sweep completed",
		"checked", stats.Checked,
		"triggered", stats.Triggered,
		"rearmed", stats.Rearmed,
		"skipped", stats.Skipped,
		"errors", stats.Errors,
	)
	return stats, nil
}

func (e *Engine) evaluate(ctx context.Context, a *alert.Alert, state *sweepState) (outcome, error) {
	pos, err := e.position(ctx, a, state)
	if errors.Is(err, errors.ErrNotFound) {
		e.log.Warnw("Alert has no tracked position", "alert_id", a.ID, "symbol", a.Symbol)
		return outcomeSkipped, nil
	}
	if err != nil {
		return outcomeSkipped, err
	}
	if !pos.Active {
		e.log.Debugw("Position untracked, skipping alert", "alert_id", a.ID, "symbol", a.Symbol)
		return outcomeSkipped, nil
	}

	price, err := e.price(ctx, a.Symbol, state)
	if err != nil {
		e.log.Warnw("Price unavailable, skipping alert this tick", "alert_id", a.ID, "symbol", a.Symbol, "error", err)
		return outcomeSkipped, nil
	}

	now := e.now()
	if !pos.HasBaseline() || state.coldStarts[pos.ID] {
		if !pos.HasBaseline() {
			if err := e.captureBaseline(ctx, pos, price); err != nil {
				return outcomeSkipped, err
			}
			state.coldStarts[pos.ID] = true
			e.log.Infow("Baseline captured", "symbol", a.Symbol, "baseline", price)
		}
		a.CurrentValue = price
		if _, err := e.save(ctx, a); err != nil {
			return outcomeSkipped, err
		}
		return outcomeSkipped, nil
	}

	baseline := pos.BaselinePrice.Decimal
	change := ChangePercent(baseline, price)
	result := outcomeMissed
	var event alert.EventType

	if Holds(a, price, change) {
		result = outcomeCounted
		if a.RequiredTriggers < 1 {
			a.RequiredTriggers = e.cfg.RequiredTriggers
		}
		a.RecordHit(alert.TriggerEvent{
			Timestamp:     now,
			Price:         price,
			ChangePercent: change.Round(4),
			BaselinePrice: baseline,
		})

		if a.Reached() {
			body := fmt.Sprintf("%s price is $%s (%s%% from baseline $%s). Triggered %d times.",
				a.Symbol, price.StringFixed(2), change.StringFixed(2), baseline.StringFixed(2), a.TriggerCount)
			if a.Status == alert.StatusAcknowledged {
				a.Rearm("Alert re-triggered: " + body)
				result, event = outcomeRearmed, alert.EventRearmed
			} else {
				a.Trigger(now, "Alert triggered: "+body)
				result, event = outcomeTriggered, alert.EventTriggered
			}
		}
	}

	a.CurrentValue = price
	saved, err := e.save(ctx, a)
	if err != nil {
		return outcomeSkipped, err
	}
	if !saved {
		return outcomeSkipped, nil
	}

	e.log.Debugw("Alert evaluated",
		"alert_id", a.ID,
		"symbol", a.Symbol,
		"change_percent", change.StringFixed(2),
		"threshold", a.ThresholdValue,
		"trigger_count", a.TriggerCount,
		"status", a.Status,
	)

	if event != "" {
		metrics.RecordAlertTriggered("threshold", string(a.Type))
		e.publish(ctx, alert.NewEvent(event, a, change, now))
	}
	return result, nil
}

// save commits a. It reports false when another writer changed the alert
// since it was listed; that writer's state stands and this tick is dropped.
func (e *Engine) save(ctx context.Context, a *alert.Alert) (bool, error) {
	err := e.alerts.Save(ctx, a)
	if errors.Is(err, errors.ErrConflict) {
		e.log.Infow("Alert changed during sweep, skipping", "alert_id", a.ID, "symbol", a.Symbol)
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "save alert")
	}
	return true, nil
}

func (e *Engine) price(ctx context.Context, symbol string, state *sweepState) (decimal.Decimal, error) {
	if q, ok := state.quotes[symbol]; ok {
		return q.price, q.err
	}
	fetchCtx, cancel := context.WithTimeout(ctx, e.cfg.PriceTimeout)
	defer cancel()

	var res quoteResult
	q, err := e.prices.CurrentPrice(fetchCtx, symbol)
	switch {
	case err != nil:
		res.err = errors.Join(errors.ErrDataUnavailable, err)
	case q.Price <= 0:
		res.err = errors.Wrapf(errors.ErrDataUnavailable, "non-positive price %v", q.Price)
	default:
		res.price = decimal.NewFromFloat(q.Price)
	}
	state.quotes[symbol] = res
	return res.price, res.err
}

func (e *Engine) position(ctx context.Context, a *alert.Alert, state *sweepState) (*tracking.Position, error) {
	key := [2]uuid.UUID{a.UserID, a.StockID}
	if p, ok := state.positions[key]; ok {
		return p, nil
	}
	p, err := e.positions.GetByUserStock(ctx, a.UserID, a.StockID)
	if err != nil {
		return nil, err
	}
	state.positions[key] = p
	return p, nil
}

// captureBaseline stores price as the position baseline unless another
// writer got there first, in which case the stored value is reloaded.
func (e *Engine) captureBaseline(ctx context.Context, pos *tracking.Position, price decimal.Decimal) error {
	wrote, err := e.positions.SetBaseline(ctx, pos.ID, price)
	if err != nil {
		return errors.Wrap(err, "set baseline")
	}
	if wrote {
		pos.BaselinePrice = decimal.NewNullDecimal(price)
		return nil
	}
	fresh, err := e.positions.GetByUserStock(ctx, pos.UserID, pos.StockID)
	if err != nil {
		return errors.Wrap(err, "reload position")
	}
	pos.BaselinePrice = fresh.BaselinePrice
	return nil
}

func (e *Engine) publish(ctx context.Context, ev alert.Event) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.PublishAlertEvent(ctx, ev); err != nil {
		e.log.Warnw("Failed to publish alert event", "alert_id", ev.AlertID, "type", ev.Type, "error", err)
	}
}

// ChangePercent is (current - baseline) / baseline * 100
func ChangePercent(baseline, current decimal.Decimal) decimal.Decimal {
	if baseline.IsZero() {
		return decimal.Zero
	}
	return current.Sub(baseline).Div(baseline).Mul(hundred)
}

// Holds reports whether the alert condition is met at price. VOLATILITY
// compares the move since the last observed price against |threshold|/100
// and never holds before a first observation. VOLUME_ANOMALY is reserved.
func Holds(a *alert.Alert, price, change decimal.Decimal) bool {
	switch a.Type {
	case alert.TypePriceDrop:
		return change.LessThanOrEqual(a.ThresholdValue)
	case alert.TypePriceSpike:
		return change.GreaterThanOrEqual(a.ThresholdValue)
	case alert.TypeVolatility:
		last := a.CurrentValue
		if last.IsZero() {
			return false
		}
		move := price.Sub(last).Abs().Div(last)
		return move.GreaterThanOrEqual(a.ThresholdValue.Abs().Div(hundred))
	default:
		return false
	}
}
