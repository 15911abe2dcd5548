package tracking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Position is a user's subscription to a stock. BaselinePrice is captured on the
// first successful price read after tracking begins and is never recomputed.
type Position struct {
	ID              uuid.UUID           `db:"id" json:"id"`
	UserID          uuid.UUID           `db:"user_id" json:"user_id"`
	StockID         uuid.UUID           `db:"stock_id" json:"stock_id"`
	Symbol          string              `db:"symbol" json:"symbol"`
	BaselinePrice   decimal.NullDecimal `db:"baseline_price" json:"baseline_price"`
	CustomThreshold decimal.NullDecimal `db:"custom_threshold" json:"custom_threshold"`
	Active          bool                `db:"active" json:"active"`
	CreatedAt       time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time           `db:"updated_at" json:"updated_at"`
}

// HasBaseline reports whether the baseline has been captured
func (p *Position) HasBaseline() bool {
	return p.BaselinePrice.Valid && p.BaselinePrice.Decimal.IsPositive()
}

// Repository defines tracked position persistence
type Repository interface {
	Create(ctx context.Context, p *Position) error
	GetByUserStock(ctx context.Context, userID, stockID uuid.UUID) (*Position, error)
	ListActive(ctx context.Context) ([]*Position, error)
	ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]*Position, error)
	// SetBaseline stores the baseline only if none is set yet and reports whether it wrote.
	SetBaseline(ctx context.Context, id uuid.UUID, price decimal.Decimal) (bool, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	UpdateThreshold(ctx context.Context, id uuid.UUID, threshold decimal.Decimal) error
}
