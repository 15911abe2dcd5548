package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"stockwatch/internal/domain/alert"
	"stockwatch/internal/domain/stock"
	"stockwatch/internal/domain/tracking"
	"stockwatch/internal/testsupport"
)

// TestFixtures provides factory methods for creating test data
type TestFixtures struct {
	db DBTX
	t  *testing.T
}

// NewTestFixtures creates a new test fixtures factory
func NewTestFixtures(t *testing.T, db DBTX) *TestFixtures {
	t.Helper()
	return &TestFixtures{db: db, t: t}
}

// CreateStock inserts a stock with a unique symbol
func (f *TestFixtures) CreateStock() *stock.Stock {
	f.t.Helper()

	s := &stock.Stock{Symbol: testsupport.UniqueSymbol("T"), Name: "Test Corp", MarketCap: 1e9}
	require.NoError(f.t, NewStockRepository(f.db).Upsert(context.Background(), s), "Failed to create test stock")
	return s
}

// CreatePosition tracks stockID for a fresh user
func (f *TestFixtures) CreatePosition(stockID uuid.UUID) *tracking.Position {
	f.t.Helper()

	p := &tracking.Position{UserID: uuid.New(), StockID: stockID, Active: true}
	require.NoError(f.t, NewTrackingRepository(f.db).Create(context.Background(), p), "Failed to create test position")
	return p
}

// CreateAlert inserts a PENDING price drop alert at -5%
func (f *TestFixtures) CreateAlert(userID, stockID uuid.UUID, opts ...func(*alert.Alert)) *alert.Alert {
	f.t.Helper()

	a := &alert.Alert{
		UserID:           userID,
		StockID:          stockID,
		Type:             alert.TypePriceDrop,
		ThresholdValue:   decimal.NewFromInt(-5),
		Status:           alert.StatusPending,
		RequiredTriggers: 3,
		Message:          "Alert created for PRICE_DROP at -5%",
		CreatedAt:        time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(a)
	}
	require.NoError(f.t, NewAlertRepository(f.db).Create(context.Background(), a), "Failed to create test alert")
	return a
}
