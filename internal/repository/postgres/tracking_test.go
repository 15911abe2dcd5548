package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch/internal/testsupport"
	"stockwatch/pkg/errors"
)

func TestTrackingRepository_CreateAndGet(t *testing.T) {
	testDB := testsupport.NewTestPostgres(t)
	defer testDB.Close()

	fixtures := NewTestFixtures(t, testDB.Tx())
	s := fixtures.CreateStock()
	p := fixtures.CreatePosition(s.ID)

	repo := NewTrackingRepository(testDB.Tx())
	got, err := repo.GetByUserStock(context.Background(), p.UserID, s.ID)
	require.NoError(t, err)

	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, s.Symbol, got.Symbol)
	assert.True(t, got.Active)
	assert.False(t, got.HasBaseline())

	_, err = repo.GetByUserStock(context.Background(), uuid.New(), s.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestTrackingRepository_SetBaselineOnce(t *testing.T) {
	testDB := testsupport.NewTestPostgres(t)
	defer testDB.Close()

	fixtures := NewTestFixtures(t, testDB.Tx())
	s := fixtures.CreateStock()
	p := fixtures.CreatePosition(s.ID)

	repo := NewTrackingRepository(testDB.Tx())
	ctx := context.Background()

	wrote, err := repo.SetBaseline(ctx, p.ID, decimal.RequireFromString("182.50"))
	require.NoError(t, err)
	assert.True(t, wrote)

	wrote, err = repo.SetBaseline(ctx, p.ID, decimal.RequireFromString("150"))
	require.NoError(t, err)
	assert.False(t, wrote, "baseline is never recomputed")

	got, err := repo.GetByUserStock(ctx, p.UserID, s.ID)
	require.NoError(t, err)
	assert.True(t, got.BaselinePrice.Decimal.Equal(decimal.RequireFromString("182.5")))
}

func TestTrackingRepository_ActiveAndThreshold(t *testing.T) {
	testDB := testsupport.NewTestPostgres(t)
	defer testDB.Close()

	fixtures := NewTestFixtures(t, testDB.Tx())
	s := fixtures.CreateStock()
	p := fixtures.CreatePosition(s.ID)

	repo := NewTrackingRepository(testDB.Tx())
	ctx := context.Background()

	mine, err := repo.ListActiveByUser(ctx, p.UserID)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	require.NoError(t, repo.UpdateThreshold(ctx, p.ID, decimal.NewFromInt(-8)))
	require.NoError(t, repo.SetActive(ctx, p.ID, false))

	mine, err = repo.ListActiveByUser(ctx, p.UserID)
	require.NoError(t, err)
	assert.Empty(t, mine)

	got, err := repo.GetByUserStock(ctx, p.UserID, s.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.True(t, got.CustomThreshold.Decimal.Equal(decimal.NewFromInt(-8)))

	assert.True(t, errors.Is(repo.SetActive(ctx, uuid.New(), true), errors.ErrNotFound))
}
