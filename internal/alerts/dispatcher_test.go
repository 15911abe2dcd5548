package alerts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch/internal/domain/alert"
	"stockwatch/internal/testsupport"
	"stockwatch/pkg/errors"
)

type memoryNotifier struct {
	sent []Notification
	fail map[uuid.UUID]bool
}

func (n *memoryNotifier) Name() string { return "memory" }

func (n *memoryNotifier) Notify(_ context.Context, note Notification) error {
	if n.fail[note.AlertID] {
		return errors.ErrUnavailable
	}
	n.sent = append(n.sent, note)
	return nil
}

func TestDispatch(t *testing.T) {
	repo := testsupport.NewMemoryAlerts()
	triggeredAt := clock.Add(-2 * time.Hour)
	mk := func(symbol string, status alert.Status) *alert.Alert {
		a := &alert.Alert{
			ID:           uuid.New(),
			UserID:       uuid.New(),
			Symbol:       symbol,
			Type:         alert.TypePriceDrop,
			Status:       status,
			Message:      "Alert triggered: " + symbol,
			CurrentValue: decimal.NewFromFloat(1234.5),
			CreatedAt:    clock,
		}
		if status == alert.StatusTriggered {
			a.TriggeredAt = &triggeredAt
		}
		require.NoError(t, repo.Create(context.Background(), a))
		return a
	}
	ok := mk("AAPL", alert.StatusTriggered)
	failing := mk("MSFT", alert.StatusTriggered)
	mk("IBM", alert.StatusPending)

	notifier := &memoryNotifier{fail: map[uuid.UUID]bool{failing.ID: true}}
	d := NewDispatcher(repo, notifier).WithClock(func() time.Time { return clock })

	stats, err := d.Dispatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DispatchStats{Sent: 1, Failed: 1}, stats)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, ok.ID, notifier.sent[0].AlertID)

	stored, err := repo.Get(context.Background(), ok.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.NotifiedAt)

	// only the failed one is retried
	notifier.fail = nil
	stats, err = d.Dispatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DispatchStats{Sent: 1}, stats)
	assert.Equal(t, failing.ID, notifier.sent[1].AlertID)
}

func TestFormatNotification(t *testing.T) {
	at := clock.Add(-3 * time.Hour)
	a := &alert.Alert{
		Symbol:       "AAPL",
		Type:         alert.TypePriceDrop,
		Message:      "Alert triggered: AAPL price is $92.00",
		TriggeredAt:  &at,
		CurrentValue: decimal.NewFromFloat(1234.5),
	}
	text := FormatNotification(a, clock)
	assert.Contains(t, text, "AAPL price drop alert")
	assert.Contains(t, text, "Alert triggered: AAPL price is $92.00")
	assert.Contains(t, text, "Triggered 3 hours ago")
	assert.Contains(t, text, "Last price: $1,234.5")
}
