package stock

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Stock is a listed symbol known to the system
type Stock struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Symbol    string    `db:"symbol" json:"symbol"`
	Name      string    `db:"name" json:"name"`
	Sector    string    `db:"sector" json:"sector"`
	MarketCap float64   `db:"market_cap" json:"market_cap"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Repository defines stock persistence
type Repository interface {
	GetBySymbol(ctx context.Context, symbol string) (*Stock, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Stock, error)
	// Upsert inserts by symbol or refreshes name and market cap of an existing row.
	// The stored row, including its ID, is written back into s.
	Upsert(ctx context.Context, s *Stock) error
}
