package alert

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"stockwatch/pkg/errors"
)

// Type is the condition an alert watches
type Type string

const (
	TypePriceDrop     Type = "PRICE_DROP"
	TypePriceSpike    Type = "PRICE_SPIKE"
	TypeVolatility    Type = "VOLATILITY"
	TypeVolumeAnomaly Type = "VOLUME_ANOMALY"
)

func (t Type) Valid() bool {
	switch t {
	case TypePriceDrop, TypePriceSpike, TypeVolatility, TypeVolumeAnomaly:
		return true
	}
	return false
}

func (t Type) String() string { return string(t) }

// Status is the alert lifecycle state
type Status string

const (
	StatusPending      Status = "PENDING"
	StatusTriggered    Status = "TRIGGERED"
	StatusAcknowledged Status = "ACKNOWLEDGED"
	StatusExpired      Status = "EXPIRED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusTriggered, StatusAcknowledged, StatusExpired:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

// TriggerEvent records one tick on which the condition held
type TriggerEvent struct {
	Timestamp     time.Time       `json:"timestamp"`
	Price         decimal.Decimal `json:"price"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	BaselinePrice decimal.Decimal `json:"baseline_price"`
}

// History is stored as a JSONB array
type History []TriggerEvent

func (h History) Value() (driver.Value, error) {
	if h == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(h)
}

func (h *History) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*h = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.Newf("alert history: unsupported scan type %T", src)
	}
	return json.Unmarshal(data, h)
}

// Alert is a per-(user, stock) condition with cumulative trigger state.
// TriggerCount only grows while the condition holds; it is reset by a
// transition to TRIGGERED, a re-arm, or an explicit reset.
type Alert struct {
	ID               uuid.UUID       `db:"id" json:"id"`
	UserID           uuid.UUID       `db:"user_id" json:"user_id"`
	StockID          uuid.UUID       `db:"stock_id" json:"stock_id"`
	Symbol           string          `db:"symbol" json:"symbol"`
	Type             Type            `db:"alert_type" json:"alert_type"`
	ThresholdValue   decimal.Decimal `db:"threshold_value" json:"threshold_value"`
	CurrentValue     decimal.Decimal `db:"current_value" json:"current_value"`
	Status           Status          `db:"status" json:"status"`
	TriggerCount     int             `db:"trigger_count" json:"trigger_count"`
	RequiredTriggers int             `db:"required_triggers" json:"required_triggers"`
	TriggerHistory   History         `db:"trigger_history" json:"trigger_history"`
	Message          string          `db:"message" json:"message"`
	TriggeredAt      *time.Time      `db:"triggered_at" json:"triggered_at,omitempty"`
	AcknowledgedAt   *time.Time      `db:"acknowledged_at" json:"acknowledged_at,omitempty"`
	NotifiedAt       *time.Time      `db:"notified_at" json:"notified_at,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// RecordHit counts one tick on which the condition held
func (a *Alert) RecordHit(ev TriggerEvent) {
	a.TriggerCount++
	a.TriggerHistory = append(a.TriggerHistory, ev)
}

// Reached reports whether enough hits accumulated to act
func (a *Alert) Reached() bool {
	return a.TriggerCount >= a.RequiredTriggers
}

// Trigger moves the alert to TRIGGERED and clears the cumulative state
func (a *Alert) Trigger(now time.Time, message string) {
	a.Status = StatusTriggered
	a.TriggeredAt = &now
	a.NotifiedAt = nil
	a.Message = message
	a.resetCount()
}

// Rearm returns an acknowledged alert to PENDING
func (a *Alert) Rearm(message string) {
	a.Status = StatusPending
	a.TriggeredAt = nil
	a.AcknowledgedAt = nil
	a.NotifiedAt = nil
	a.Message = message
	a.resetCount()
}

// Expire retires the alert; no sweep evaluates it again
func (a *Alert) Expire(message string) {
	a.Status = StatusExpired
	a.Message = message
	a.resetCount()
}

// Acknowledge marks the alert seen by its owner
func (a *Alert) Acknowledge(now time.Time) {
	a.Status = StatusAcknowledged
	a.AcknowledgedAt = &now
}

func (a *Alert) resetCount() {
	a.TriggerCount = 0
	a.TriggerHistory = History{}
}

// Summary counts a user's alerts per status
type Summary struct {
	Total        int `json:"total"`
	Pending      int `json:"pending"`
	Triggered    int `json:"triggered"`
	Acknowledged int `json:"acknowledged"`
	Expired      int `json:"expired"`
}

// Add counts one alert
func (s *Summary) Add(status Status) {
	s.Total++
	switch status {
	case StatusPending:
		s.Pending++
	case StatusTriggered:
		s.Triggered++
	case StatusAcknowledged:
		s.Acknowledged++
	case StatusExpired:
		s.Expired++
	}
}
