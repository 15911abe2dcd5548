package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch/internal/domain/stock"
	"stockwatch/internal/testsupport"
	"stockwatch/pkg/errors"
)

func TestStockRepository_Upsert(t *testing.T) {
	testDB := testsupport.NewTestPostgres(t)
	defer testDB.Close()

	repo := NewStockRepository(testDB.Tx())
	ctx := context.Background()
	symbol := testsupport.UniqueSymbol("S")

	first := &stock.Stock{Symbol: symbol, Name: "First Name", MarketCap: 100}
	require.NoError(t, repo.Upsert(ctx, first))
	require.NotEqual(t, uuid.Nil, first.ID)

	// empty name and zero market cap keep what is stored
	second := &stock.Stock{Symbol: symbol}
	require.NoError(t, repo.Upsert(ctx, second))
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "First Name", second.Name)
	assert.Equal(t, float64(100), second.MarketCap)

	third := &stock.Stock{Symbol: symbol, MarketCap: 250}
	require.NoError(t, repo.Upsert(ctx, third))
	assert.Equal(t, float64(250), third.MarketCap)

	got, err := repo.GetBySymbol(ctx, symbol)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	byID, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, symbol, byID.Symbol)
}

func TestStockRepository_NotFound(t *testing.T) {
	testDB := testsupport.NewTestPostgres(t)
	defer testDB.Close()

	repo := NewStockRepository(testDB.Tx())

	_, err := repo.GetBySymbol(context.Background(), "NOPE")
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = repo.GetByID(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
