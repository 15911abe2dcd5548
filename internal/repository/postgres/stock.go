package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"stockwatch/internal/domain/stock"
	"stockwatch/pkg/errors"
)

// Compile-time check
var _ stock.Repository = (*StockRepository)(nil)

// StockRepository implements stock.Repository using sqlx
type StockRepository struct {
	db DBTX
}

// NewStockRepository creates a new stock repository
func NewStockRepository(db DBTX) *StockRepository {
	return &StockRepository{db: db}
}

func (r *StockRepository) GetBySymbol(ctx context.Context, symbol string) (*stock.Stock, error) {
	var s stock.Stock

	query := `SELECT * FROM stocks WHERE symbol = $1`

	if err := r.db.GetContext(ctx, &s, query, strings.ToUpper(symbol)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.ErrNotFound
		}
		return nil, errors.Wrap(err, "get stock by symbol")
	}

	return &s, nil
}

func (r *StockRepository) GetByID(ctx context.Context, id uuid.UUID) (*stock.Stock, error) {
	var s stock.Stock

	query := `SELECT * FROM stocks WHERE id = $1`

	if err := r.db.GetContext(ctx, &s, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.ErrNotFound
		}
		return nil, errors.Wrap(err, "get stock by id")
	}

	return &s, nil
}

// Upsert inserts by symbol. An existing row keeps its id; name and market cap
// are only overwritten with non-empty values.
func (r *StockRepository) Upsert(ctx context.Context, s *stock.Stock) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO stocks (id, symbol, name, sector, market_cap, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (symbol) DO UPDATE SET
			name = COALESCE(NULLIF(EXCLUDED.name, ''), stocks.name),
			sector = COALESCE(NULLIF(EXCLUDED.sector, ''), stocks.sector),
			market_cap = CASE WHEN EXCLUDED.market_cap > 0 THEN EXCLUDED.market_cap ELSE stocks.market_cap END,
			updated_at = EXCLUDED.updated_at
		RETURNING *`

	var stored stock.Stock
	err := r.db.GetContext(ctx, &stored, query,
		s.ID, strings.ToUpper(s.Symbol), s.Name, s.Sector, s.MarketCap, now,
	)
	if err != nil {
		return errors.Wrap(err, "upsert stock")
	}

	*s = stored
	return nil
}
