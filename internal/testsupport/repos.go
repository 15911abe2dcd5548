package testsupport

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"stockwatch/internal/domain/alert"
	"stockwatch/internal/domain/stock"
	"stockwatch/internal/domain/tracking"
	"stockwatch/pkg/errors"
)

// MemoryStocks is an in-memory stock.Repository
type MemoryStocks struct {
	mu   sync.Mutex
	rows map[string]stock.Stock
}

func NewMemoryStocks() *MemoryStocks {
	return &MemoryStocks{rows: make(map[string]stock.Stock)}
}

func (r *MemoryStocks) GetBySymbol(_ context.Context, symbol string) (*stock.Stock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[strings.ToUpper(symbol)]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return &s, nil
}

func (r *MemoryStocks) GetByID(_ context.Context, id uuid.UUID) (*stock.Stock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.rows {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, errors.ErrNotFound
}

func (r *MemoryStocks) Upsert(_ context.Context, s *stock.Stock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToUpper(s.Symbol)
	if existing, ok := r.rows[key]; ok {
		existing.Name = s.Name
		existing.MarketCap = s.MarketCap
		existing.UpdatedAt = time.Now()
		r.rows[key] = existing
		*s = existing
		return nil
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.Symbol = key
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	r.rows[key] = *s
	return nil
}

// MemoryPositions is an in-memory tracking.Repository
type MemoryPositions struct {
	mu   sync.Mutex
	rows map[uuid.UUID]tracking.Position
	// BaselineErr fails SetBaseline when set
	BaselineErr error
}

func NewMemoryPositions() *MemoryPositions {
	return &MemoryPositions{rows: make(map[uuid.UUID]tracking.Position)}
}

func (r *MemoryPositions) Create(_ context.Context, p *tracking.Position) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.UserID == p.UserID && row.StockID == p.StockID {
			return errors.ErrAlreadyExists
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.rows[p.ID] = *p
	return nil
}

func (r *MemoryPositions) GetByUserStock(_ context.Context, userID, stockID uuid.UUID) (*tracking.Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.UserID == userID && row.StockID == stockID {
			return &row, nil
		}
	}
	return nil, errors.ErrNotFound
}

func (r *MemoryPositions) ListActive(_ context.Context) ([]*tracking.Position, error) {
	return r.list(func(p tracking.Position) bool { return p.Active }), nil
}

func (r *MemoryPositions) ListActiveByUser(_ context.Context, userID uuid.UUID) ([]*tracking.Position, error) {
	return r.list(func(p tracking.Position) bool { return p.Active && p.UserID == userID }), nil
}

func (r *MemoryPositions) list(keep func(tracking.Position) bool) []*tracking.Position {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*tracking.Position
	for _, row := range r.rows {
		if keep(row) {
			row := row
			out = append(out, &row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func (r *MemoryPositions) SetBaseline(_ context.Context, id uuid.UUID, price decimal.Decimal) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.BaselineErr != nil {
		return false, r.BaselineErr
	}
	row, ok := r.rows[id]
	if !ok {
		return false, errors.ErrNotFound
	}
	if row.HasBaseline() {
		return false, nil
	}
	row.BaselinePrice = decimal.NewNullDecimal(price)
	r.rows[id] = row
	return true, nil
}

func (r *MemoryPositions) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return errors.ErrNotFound
	}
	row.Active = active
	r.rows[id] = row
	return nil
}

func (r *MemoryPositions) UpdateThreshold(_ context.Context, id uuid.UUID, threshold decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return errors.ErrNotFound
	}
	row.CustomThreshold = decimal.NewNullDecimal(threshold)
	r.rows[id] = row
	return nil
}

// MemoryAlerts is an in-memory alert.Repository. Rows are copied on the way
// in and out so callers only see committed state. UpdatedAt is the row
// version: Save rejects a stale copy with ErrConflict, like the Postgres
// repository.
type MemoryAlerts struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]alert.Alert
	saveErr map[uuid.UUID]error
	saves   int
}

func NewMemoryAlerts() *MemoryAlerts {
	return &MemoryAlerts{
		rows:    make(map[uuid.UUID]alert.Alert),
		saveErr: make(map[uuid.UUID]error),
	}
}

// FailSave makes Save fail for id until cleared with nil
func (r *MemoryAlerts) FailSave(id uuid.UUID, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveErr[id] = err
}

// Saves reports how many successful Save calls were made
func (r *MemoryAlerts) Saves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

func (r *MemoryAlerts) Create(_ context.Context, a *alert.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if _, ok := r.rows[a.ID]; ok {
		return errors.ErrAlreadyExists
	}
	r.rows[a.ID] = clone(*a)
	return nil
}

func (r *MemoryAlerts) Get(_ context.Context, id uuid.UUID) (*alert.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	out := clone(row)
	return &out, nil
}

func (r *MemoryAlerts) Save(_ context.Context, a *alert.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.saveErr[a.ID]; err != nil {
		return err
	}
	stored, ok := r.rows[a.ID]
	if !ok {
		return errors.ErrNotFound
	}
	if !stored.UpdatedAt.Equal(a.UpdatedAt) {
		return errors.Wrapf(errors.ErrConflict, "alert %s", a.ID)
	}
	a.UpdatedAt = nextVersion(stored.UpdatedAt)
	r.rows[a.ID] = clone(*a)
	r.saves++
	return nil
}

func (r *MemoryAlerts) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return errors.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *MemoryAlerts) ListByStatus(_ context.Context, statuses ...alert.Status) ([]*alert.Alert, error) {
	return r.list(func(a alert.Alert) bool {
		for _, s := range statuses {
			if a.Status == s {
				return true
			}
		}
		return false
	}), nil
}

func (r *MemoryAlerts) ListByUser(_ context.Context, userID uuid.UUID) ([]*alert.Alert, error) {
	return r.list(func(a alert.Alert) bool { return a.UserID == userID }), nil
}

func (r *MemoryAlerts) ListByUserStock(_ context.Context, userID, stockID uuid.UUID) ([]*alert.Alert, error) {
	return r.list(func(a alert.Alert) bool { return a.UserID == userID && a.StockID == stockID }), nil
}

func (r *MemoryAlerts) ListUnnotified(_ context.Context) ([]*alert.Alert, error) {
	return r.list(func(a alert.Alert) bool {
		return a.Status == alert.StatusTriggered && a.NotifiedAt == nil
	}), nil
}

func (r *MemoryAlerts) MarkNotified(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return errors.ErrNotFound
	}
	row.NotifiedAt = &at
	row.UpdatedAt = nextVersion(row.UpdatedAt)
	r.rows[id] = row
	return nil
}

func (r *MemoryAlerts) ExpirePending(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, row := range r.rows {
		if row.Status == alert.StatusPending && row.CreatedAt.Before(cutoff) {
			row.Status = alert.StatusExpired
			row.UpdatedAt = nextVersion(row.UpdatedAt)
			r.rows[id] = row
			n++
		}
	}
	return n, nil
}

func (r *MemoryAlerts) list(keep func(alert.Alert) bool) []*alert.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*alert.Alert
	for _, row := range r.rows {
		if keep(row) {
			c := clone(row)
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// nextVersion is now, or just after prev when the clock has not moved
func nextVersion(prev time.Time) time.Time {
	next := time.Now()
	if !next.After(prev) {
		next = prev.Add(time.Nanosecond)
	}
	return next
}

func clone(a alert.Alert) alert.Alert {
	a.TriggerHistory = append(alert.History(nil), a.TriggerHistory...)
	return a
}
