package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"stockwatch/internal/domain/tracking"
	"stockwatch/pkg/errors"
)

// Compile-time check
var _ tracking.Repository = (*TrackingRepository)(nil)

// TrackingRepository implements tracking.Repository. Reads join stocks for the symbol.
type TrackingRepository struct {
	db DBTX
}

// NewTrackingRepository creates a new tracked position repository
func NewTrackingRepository(db DBTX) *TrackingRepository {
	return &TrackingRepository{db: db}
}

const positionColumns = `
	p.id, p.user_id, p.stock_id, s.symbol, p.baseline_price, p.custom_threshold,
	p.active, p.created_at, p.updated_at`

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure
const uniqueViolation = "23505"

// Create inserts a position; a second row for the same (user, stock) is ErrAlreadyExists
func (r *TrackingRepository) Create(ctx context.Context, p *tracking.Position) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	query := `
		INSERT INTO tracked_positions (
			id, user_id, stock_id, baseline_price, custom_threshold, active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.UserID, p.StockID, p.BaselinePrice, p.CustomThreshold,
		p.Active, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return errors.ErrAlreadyExists
		}
		return errors.Wrap(err, "create tracked position")
	}
	return nil
}

func (r *TrackingRepository) GetByUserStock(ctx context.Context, userID, stockID uuid.UUID) (*tracking.Position, error) {
	var p tracking.Position

	query := `SELECT ` + positionColumns + `
		FROM tracked_positions p JOIN stocks s ON s.id = p.stock_id
		WHERE p.user_id = $1 AND p.stock_id = $2`

	if err := r.db.GetContext(ctx, &p, query, userID, stockID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.ErrNotFound
		}
		return nil, errors.Wrap(err, "get tracked position")
	}
	return &p, nil
}

// ListActive returns every active position across users
func (r *TrackingRepository) ListActive(ctx context.Context) ([]*tracking.Position, error) {
	var positions []*tracking.Position

	query := `SELECT ` + positionColumns + `
		FROM tracked_positions p JOIN stocks s ON s.id = p.stock_id
		WHERE p.active = true
		ORDER BY s.symbol, p.created_at`

	if err := r.db.SelectContext(ctx, &positions, query); err != nil {
		return nil, errors.Wrap(err, "list active positions")
	}
	return positions, nil
}

func (r *TrackingRepository) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]*tracking.Position, error) {
	var positions []*tracking.Position

	query := `SELECT ` + positionColumns + `
		FROM tracked_positions p JOIN stocks s ON s.id = p.stock_id
		WHERE p.active = true AND p.user_id = $1
		ORDER BY s.symbol`

	if err := r.db.SelectContext(ctx, &positions, query, userID); err != nil {
		return nil, errors.Wrap(err, "list user positions")
	}
	return positions, nil
}

// SetBaseline writes only when no baseline is stored, so concurrent sweeps keep the first one
func (r *TrackingRepository) SetBaseline(ctx context.Context, id uuid.UUID, price decimal.Decimal) (bool, error) {
	query := `
		UPDATE tracked_positions
		SET baseline_price = $2, updated_at = NOW()
		WHERE id = $1 AND (baseline_price IS NULL OR baseline_price <= 0)`

	res, err := r.db.ExecContext(ctx, query, id, price)
	if err != nil {
		return false, errors.Wrap(err, "set baseline")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "set baseline rows affected")
	}
	return n == 1, nil
}

func (r *TrackingRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `UPDATE tracked_positions SET active = $2, updated_at = NOW() WHERE id = $1`
	return r.execOne(ctx, query, id, active)
}

func (r *TrackingRepository) UpdateThreshold(ctx context.Context, id uuid.UUID, threshold decimal.Decimal) error {
	query := `UPDATE tracked_positions SET custom_threshold = $2, updated_at = NOW() WHERE id = $1`
	return r.execOne(ctx, query, id, threshold)
}

// execOne runs an update and maps zero affected rows to ErrNotFound
func (r *TrackingRepository) execOne(ctx context.Context, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "update tracked position")
	}
	return expectOne(res)
}
