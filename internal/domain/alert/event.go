package alert

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType names an alert state transition published downstream
type EventType string

const (
	EventTriggered      EventType = "alert.triggered"
	EventRearmed        EventType = "alert.rearmed"
	EventSmartTriggered EventType = "alert.smart_triggered"
)

// Event is emitted after an alert transition is committed
type Event struct {
	Type          EventType
	AlertID       uuid.UUID
	UserID        uuid.UUID
	Symbol        string
	AlertType     Type
	Price         decimal.Decimal
	ChangePercent decimal.Decimal
	Threshold     decimal.Decimal
	Message       string
	OccurredAt    time.Time
}

// NewEvent captures a's committed state
func NewEvent(t EventType, a *Alert, change decimal.Decimal, at time.Time) Event {
	return Event{
		Type:          t,
		AlertID:       a.ID,
		UserID:        a.UserID,
		Symbol:        a.Symbol,
		AlertType:     a.Type,
		Price:         a.CurrentValue,
		ChangePercent: change,
		Threshold:     a.ThresholdValue,
		Message:       a.Message,
		OccurredAt:    at,
	}
}

// Publisher delivers alert events, e.g. to Kafka
type Publisher interface {
	PublishAlertEvent(ctx context.Context, ev Event) error
}
