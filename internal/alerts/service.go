package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"stockwatch/internal/agents/collection"
	"stockwatch/internal/domain/alert"
	"stockwatch/internal/domain/stock"
	"stockwatch/internal/domain/tracking"
	"stockwatch/pkg/errors"
	"stockwatch/pkg/logger"
)

type ServiceConfig struct {
	RequiredTriggers int
	DefaultThreshold decimal.Decimal
}

// Service is the user-facing side of alerts: tracking, creation,
// acknowledgement, listing and expiry
type Service struct {
	stocks    stock.Repository
	positions tracking.Repository
	alerts    alert.Repository
	cfg       ServiceConfig
	now       func() time.Time
	log       *logger.Logger
}

func NewService(stocks stock.Repository, positions tracking.Repository, alerts alert.Repository, cfg ServiceConfig) *Service {
	if cfg.RequiredTriggers < 1 {
		cfg.RequiredTriggers = 3
	}
	if cfg.DefaultThreshold.IsZero() {
		cfg.DefaultThreshold = decimal.NewFromInt(-5)
	}
	return &Service{
		stocks:    stocks,
		positions: positions,
		alerts:    alerts,
		cfg:       cfg,
		now:       time.Now,
		log:       logger.Get().With("component", "alert_service"),
	}
}

// WithClock replaces the time source, for tests
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ValidateThreshold checks that threshold can ever be met by an alert of type t
func ValidateThreshold(t alert.Type, threshold decimal.Decimal) error {
	if !t.Valid() {
		return errors.NewValidationError("alert_type", "unknown alert type", t)
	}
	if threshold.Abs().GreaterThan(hundred) {
		return errors.NewValidationError("threshold", "must be within ±100%", threshold)
	}
	switch t {
	case alert.TypePriceDrop:
		if !threshold.IsNegative() {
			return errors.NewValidationError("threshold", "price drop threshold must be negative", threshold)
		}
	case alert.TypePriceSpike:
		if !threshold.IsPositive() {
			return errors.NewValidationError("threshold", "price spike threshold must be positive", threshold)
		}
	case alert.TypeVolatility:
		if threshold.IsZero() {
			return errors.NewValidationError("threshold", "volatility threshold must be non-zero", threshold)
		}
	}
	return nil
}

// Track subscribes userID to symbol and creates its PRICE_DROP alert. A
// missing threshold uses the configured default. Tracking an already active
// pair fails with ErrAlreadyExists; an inactive one is reactivated.
func (s *Service) Track(ctx context.Context, userID uuid.UUID, symbol string, threshold decimal.NullDecimal) (*tracking.Position, *alert.Alert, error) {
	symbol, err := collection.SanitizeSymbol(symbol)
	if err != nil {
		return nil, nil, err
	}
	thr := s.cfg.DefaultThreshold
	if threshold.Valid {
		thr = threshold.Decimal
	}
	if err := ValidateThreshold(alert.TypePriceDrop, thr); err != nil {
		return nil, nil, err
	}

	st, err := s.resolveStock(ctx, symbol)
	if err != nil {
		return nil, nil, err
	}

	pos, err := s.positions.GetByUserStock(ctx, userID, st.ID)
	switch {
	case err == nil && pos.Active:
		return nil, nil, errors.Wrapf(errors.ErrAlreadyExists, "%s is already tracked", symbol)
	case err == nil:
		if err := s.positions.SetActive(ctx, pos.ID, true); err != nil {
			return nil, nil, errors.Wrap(err, "reactivate position")
		}
		if err := s.positions.UpdateThreshold(ctx, pos.ID, thr); err != nil {
			return nil, nil, errors.Wrap(err, "update threshold")
		}
		pos.Active = true
		pos.CustomThreshold = decimal.NewNullDecimal(thr)
	case errors.Is(err, errors.ErrNotFound):
		now := s.now()
		pos = &tracking.Position{
			ID:              uuid.New(),
			UserID:          userID,
			StockID:         st.ID,
			Symbol:          st.Symbol,
			CustomThreshold: decimal.NewNullDecimal(thr),
			Active:          true,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.positions.Create(ctx, pos); err != nil {
			return nil, nil, errors.Wrap(err, "create position")
		}
	default:
		return nil, nil, errors.Wrap(err, "load position")
	}

	a, err := s.newAlert(ctx, userID, st, alert.TypePriceDrop, thr)
	if err != nil {
		return nil, nil, err
	}

	s.log.Infow("Tracking started", "user_id", userID, "symbol", symbol, "threshold", thr)
	return pos, a, nil
}

// Untrack deactivates the position, deletes its PENDING alerts and expires
// its ACKNOWLEDGED ones so no sweep re-arms them. TRIGGERED alerts are kept
// for notification. It returns how many alerts stopped watching the stock.
func (s *Service) Untrack(ctx context.Context, userID uuid.UUID, symbol string) (int, error) {
	symbol, err := collection.SanitizeSymbol(symbol)
	if err != nil {
		return 0, err
	}
	st, err := s.stocks.GetBySymbol(ctx, symbol)
	if err != nil {
		return 0, errors.Wrapf(err, "stock %s", symbol)
	}
	pos, err := s.positions.GetByUserStock(ctx, userID, st.ID)
	if err != nil {
		return 0, errors.Wrapf(err, "position %s", symbol)
	}
	if err := s.positions.SetActive(ctx, pos.ID, false); err != nil {
		return 0, errors.Wrap(err, "deactivate position")
	}

	list, err := s.alerts.ListByUserStock(ctx, userID, st.ID)
	if err != nil {
		return 0, errors.Wrap(err, "list alerts")
	}
	var deleted, expired int
	for _, a := range list {
		switch a.Status {
		case alert.StatusPending:
			if err := s.alerts.Delete(ctx, a.ID); err != nil {
				return deleted + expired, errors.Wrapf(err, "delete alert %s", a.ID)
			}
			deleted++
		case alert.StatusAcknowledged:
			a.Expire(fmt.Sprintf("Tracking of %s stopped", symbol))
			if err := s.alerts.Save(ctx, a); err != nil {
				return deleted + expired, errors.Wrapf(err, "expire alert %s", a.ID)
			}
			expired++
		}
	}

	s.log.Infow("Tracking stopped", "user_id", userID, "symbol", symbol,
		"alerts_deleted", deleted, "alerts_expired", expired)
	return deleted + expired, nil
}

// CreateAlert adds a PENDING alert for a stock the user may or may not track
func (s *Service) CreateAlert(ctx context.Context, userID, stockID uuid.UUID, t alert.Type, threshold decimal.Decimal) (*alert.Alert, error) {
	if err := ValidateThreshold(t, threshold); err != nil {
		return nil, err
	}
	st, err := s.stocks.GetByID(ctx, stockID)
	if err != nil {
		return nil, errors.Wrapf(err, "stock %s", stockID)
	}
	return s.newAlert(ctx, userID, st, t, threshold)
}

func (s *Service) newAlert(ctx context.Context, userID uuid.UUID, st *stock.Stock, t alert.Type, threshold decimal.Decimal) (*alert.Alert, error) {
	now := s.now()
	a := &alert.Alert{
		ID:               uuid.New(),
		UserID:           userID,
		StockID:          st.ID,
		Symbol:           st.Symbol,
		Type:             t,
		ThresholdValue:   threshold,
		Status:           alert.StatusPending,
		RequiredTriggers: s.cfg.RequiredTriggers,
		TriggerHistory:   alert.History{},
		Message:          fmt.Sprintf("Alert created for %s at %s%%", t, threshold.String()),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.alerts.Create(ctx, a); err != nil {
		return nil, errors.Wrap(err, "create alert")
	}
	return a, nil
}

// Acknowledge marks the caller's alert as seen
func (s *Service) Acknowledge(ctx context.Context, alertID, userID uuid.UUID) (*alert.Alert, error) {
	a, err := s.owned(ctx, alertID, userID)
	if err != nil {
		return nil, err
	}
	a.Acknowledge(s.now())
	if err := s.alerts.Save(ctx, a); err != nil {
		return nil, errors.Wrap(err, "save alert")
	}
	s.log.Infow("Alert acknowledged", "alert_id", alertID, "user_id", userID)
	return a, nil
}

// Delete removes an alert. An ACKNOWLEDGED alert is instead reset to a fresh
// PENDING alert so the position stays watched.
func (s *Service) Delete(ctx context.Context, alertID, userID uuid.UUID) error {
	a, err := s.owned(ctx, alertID, userID)
	if err != nil {
		return err
	}
	if a.Status != alert.StatusAcknowledged {
		if err := s.alerts.Delete(ctx, a.ID); err != nil {
			return errors.Wrap(err, "delete alert")
		}
		return nil
	}

	a.Rearm(fmt.Sprintf("Price drop alert for %s at %s%%", a.Symbol, a.ThresholdValue.String()))
	if err := s.alerts.Save(ctx, a); err != nil {
		return errors.Wrap(err, "reset alert")
	}
	return nil
}

// ListUserAlerts returns every alert of the user, oldest first
func (s *Service) ListUserAlerts(ctx context.Context, userID uuid.UUID) ([]*alert.Alert, error) {
	return s.alerts.ListByUser(ctx, userID)
}

// ListActiveAlerts returns the user's TRIGGERED alerts
func (s *Service) ListActiveAlerts(ctx context.Context, userID uuid.UUID) ([]*alert.Alert, error) {
	list, err := s.alerts.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	active := list[:0]
	for _, a := range list {
		if a.Status == alert.StatusTriggered {
			active = append(active, a)
		}
	}
	return active, nil
}

func (s *Service) Summary(ctx context.Context, userID uuid.UUID) (alert.Summary, error) {
	var sum alert.Summary
	list, err := s.alerts.ListByUser(ctx, userID)
	if err != nil {
		return sum, err
	}
	for _, a := range list {
		sum.Add(a.Status)
	}
	return sum, nil
}

// ExpireStale moves PENDING alerts older than maxAge to EXPIRED
func (s *Service) ExpireStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	n, err := s.alerts.ExpirePending(ctx, s.now().Add(-maxAge))
	if err != nil {
		return 0, errors.Wrap(err, "expire pending alerts")
	}
	if n > 0 {
		s.log.Infow("Expired stale alerts", "count", n, "max_age", maxAge)
	}
	return n, nil
}

func (s *Service) owned(ctx context.Context, alertID, userID uuid.UUID) (*alert.Alert, error) {
	a, err := s.alerts.Get(ctx, alertID)
	if err != nil {
		return nil, errors.Wrapf(err, "alert %s", alertID)
	}
	if a.UserID != userID {
		return nil, errors.Wrapf(errors.ErrForbidden, "alert %s", alertID)
	}
	return a, nil
}

func (s *Service) resolveStock(ctx context.Context, symbol string) (*stock.Stock, error) {
	st, err := s.stocks.GetBySymbol(ctx, symbol)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return nil, errors.Wrapf(err, "stock %s", symbol)
	}
	st = &stock.Stock{Symbol: symbol, Name: symbol}
	if err := s.stocks.Upsert(ctx, st); err != nil {
		return nil, errors.Wrapf(err, "register stock %s", symbol)
	}
	return st, nil
}
