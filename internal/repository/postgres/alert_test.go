package postgres

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

func TestAlertRepository_SaveRoundTripsHistory(t *testing.T) {
	testDB := testsupport.NewTestPostgres(t)
	defer testDB.Close()

	fixtures := NewTestFixtures(t, testDB.Tx())
	s := fixtures.CreateStock()
	userID := uuid.New()
	a := fixtures.CreateAlert(userID, s.ID)

	repo := NewAlertRepository(testDB.Tx())
	ctx := context.Background()

	got, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, s.Symbol, got.Symbol)
	assert.Empty(t, got.TriggerHistory)

	tick := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	got.RecordHit(alert.TriggerEvent{
		Timestamp:     tick,
		Price:         decimal.RequireFromString("94"),
		ChangePercent: decimal.RequireFromString("-6"),
		BaselinePrice: decimal.RequireFromString("100"),
	})
	got.CurrentValue = decimal.RequireFromString("94")
	require.NoError(t, repo.Save(ctx, got))

	reloaded, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.TriggerCount)
	require.Len(t, reloaded.TriggerHistory, 1)
	assert.True(t, reloaded.TriggerHistory[0].ChangePercent.Equal(decimal.NewFromInt(-6)))
	assert.True(t, reloaded.TriggerHistory[0].Timestamp.Equal(tick))
	assert.True(t, reloaded.CurrentValue.Equal(decimal.NewFromInt(94)))
}

func TestAlertRepository_SaveRejectsStaleCopy(t *testing.T) {
	testDB := testsupport.NewTestPostgres(t)
	defer testDB.Close()

	fixtures := NewTestFixtures(t, testDB.Tx())
	s := fixtures.CreateStock()
	a := fixtures.CreateAlert(uuid.New(), s.ID)

	repo := NewAlertRepository(testDB.Tx())
	ctx := context.Background()

	// the creating copy carries the stored version
	a.CurrentValue = decimal.RequireFromString("99")
	require.NoError(t, repo.Save(ctx, a))

	first, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	second, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)

	first.Trigger(time.Now().UTC(), "Smart Alert: triggered")
	require.NoError(t, repo.Save(ctx, first))
	assert.True(t, first.UpdatedAt.After(second.UpdatedAt))

	second.CurrentValue = decimal.RequireFromString("95")
	err = repo.Save(ctx, second)
	assert.True(t, errors.Is(err, errors.ErrConflict))

	stored, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, alert.StatusTriggered, stored.Status)
	assert.True(t, stored.UpdatedAt.Equal(first.UpdatedAt))

	// saving again from the fresh copy succeeds
	require.NoError(t, repo.Save(ctx, first))

	missing := *first
	missing.ID = uuid.New()
	assert.True(t, errors.Is(repo.Save(ctx, &missing), errors.ErrNotFound))
}

func TestAlertRepository_StatusQueries(t *testing.T) {
	testDB := testsupport.NewTestPostgres(t)
	defer testDB.Close()

	fixtures := NewTestFixtures(t, testDB.Tx())
	s := fixtures.CreateStock()
	userID := uuid.New()
	now := time.Now().UTC()

	pending := fixtures.CreateAlert(userID, s.ID)
	old := fixtures.CreateAlert(userID, s.ID, func(a *alert.Alert) {
		a.CreatedAt = now.AddDate(0, 0, -10)
	})
	triggered := fixtures.CreateAlert(userID, s.ID, func(a *alert.Alert) {
		a.Trigger(now, "Alert triggered")
	})

	repo := NewAlertRepository(testDB.Tx())
	ctx := context.Background()

	unnotified, err := repo.ListUnnotified(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids(unnotified), triggered.ID)

	require.NoError(t, repo.MarkNotified(ctx, triggered.ID, now))
	unnotified, err = repo.ListUnnotified(ctx)
	require.NoError(t, err)
	assert.NotContains(t, ids(unnotified), triggered.ID)

	n, err := repo.ExpirePending(ctx, now.AddDate(0, 0, -7))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))

	expired, err := repo.Get(ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, alert.StatusExpired, expired.Status)

	active, err := repo.ListByStatus(ctx, alert.StatusPending, alert.StatusAcknowledged)
	require.NoError(t, err)
	assert.Contains(t, ids(active), pending.ID)
	assert.NotContains(t, ids(active), old.ID)

	mine, err := repo.ListByUserStock(ctx, userID, s.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 3)
}

func TestAlertRepository_Delete(t *testing.T) {
	testDB := testsupport.NewTestPostgres(t)
	defer testDB.Close()

	fixtures := NewTestFixtures(t, testDB.Tx())
	s := fixtures.CreateStock()
	a := fixtures.CreateAlert(uuid.New(), s.ID)

	repo := NewAlertRepository(testDB.Tx())
	ctx := context.Background()

	require.NoError(t, repo.Delete(ctx, a.ID))
	_, err := repo.Get(ctx, a.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.True(t, errors.Is(repo.Delete(ctx, a.ID), errors.ErrNotFound))
}

func ids(alerts []*alert.Alert) []uuid.UUID {
	out := make([]uuid.UUID, len(alerts))
	for i, a := range alerts {
		out[i] = a.ID
	}
	return out
}
