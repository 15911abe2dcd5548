package alert

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlert_TriggerClearsCumulativeState(t *testing.T) {
	a := &Alert{Status: StatusPending, RequiredTriggers: 2}
	a.RecordHit(TriggerEvent{Price: decimal.NewFromInt(94)})
	assert.False(t, a.Reached())
	a.RecordHit(TriggerEvent{Price: decimal.NewFromInt(93)})
	require.True(t, a.Reached())

	now := time.Date(2024, 5, 2, 15, 0, 0, 0, time.UTC)
	a.Trigger(now, "fired")

	assert.Equal(t, StatusTriggered, a.Status)
	assert.Equal(t, 0, a.TriggerCount)
	assert.Empty(t, a.TriggerHistory)
	require.NotNil(t, a.TriggeredAt)
	assert.Equal(t, now, *a.TriggeredAt)
	assert.Equal(t, "fired", a.Message)
}

func TestAlert_RearmClearsTimestamps(t *testing.T) {
	now := time.Now()
	a := &Alert{Status: StatusTriggered, TriggeredAt: &now}
	a.Acknowledge(now)
	require.Equal(t, StatusAcknowledged, a.Status)
	require.NotNil(t, a.AcknowledgedAt)

	a.RecordHit(TriggerEvent{})
	a.Rearm("again")

	assert.Equal(t, StatusPending, a.Status)
	assert.Nil(t, a.TriggeredAt)
	assert.Nil(t, a.AcknowledgedAt)
	assert.Equal(t, 0, a.TriggerCount)
	assert.Empty(t, a.TriggerHistory)
}

func TestHistory_ScanAndValue(t *testing.T) {
	h := History{{
		Timestamp:     time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Price:         decimal.RequireFromString("94.10"),
		ChangePercent: decimal.RequireFromString("-5.9"),
		BaselinePrice: decimal.NewFromInt(100),
	}}

	raw, err := h.Value()
	require.NoError(t, err)

	var back History
	require.NoError(t, back.Scan(raw))
	require.Len(t, back, 1)
	assert.True(t, back[0].Price.Equal(h[0].Price))
	assert.True(t, back[0].ChangePercent.Equal(h[0].ChangePercent))

	var empty History
	require.NoError(t, empty.Scan(nil))
	assert.Nil(t, empty)
	assert.Error(t, empty.Scan(42))

	raw, err = History(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), raw)
}

func TestSummary_Add(t *testing.T) {
	var s Summary
	for _, st := range []Status{StatusPending, StatusPending, StatusTriggered, StatusAcknowledged, StatusExpired} {
		s.Add(st)
	}
	assert.Equal(t, Summary{Total: 5, Pending: 2, Triggered: 1, Acknowledged: 1, Expired: 1}, s)
}
