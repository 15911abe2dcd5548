package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"stockwatch/internal/domain/alert"
	"stockwatch/pkg/errors"
)

// Compile-time check
var _ alert.Repository = (*AlertRepository)(nil)

// AlertRepository implements alert.Repository. Trigger history is a JSONB column.
type AlertRepository struct {
	db DBTX
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db DBTX) *AlertRepository {
	return &AlertRepository{db: db}
}

const alertSelect = `
	SELECT a.id, a.user_id, a.stock_id, s.symbol, a.alert_type, a.threshold_value,
		a.current_value, a.status, a.trigger_count, a.required_triggers, a.trigger_history,
		a.message, a.triggered_at, a.acknowledged_at, a.notified_at, a.created_at, a.updated_at
	FROM alerts a JOIN stocks s ON s.id = a.stock_id`

func (r *AlertRepository) Create(ctx context.Context, a *alert.Alert) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	// postgres keeps microseconds; the stored value must match a.UpdatedAt exactly
	now := time.Now().UTC().Truncate(time.Microsecond)
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	if a.TriggerHistory == nil {
		a.TriggerHistory = alert.History{}
	}

	query := `
		INSERT INTO alerts (
			id, user_id, stock_id, alert_type, threshold_value, current_value, status,
			trigger_count, required_triggers, trigger_history, message,
			triggered_at, acknowledged_at, notified_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)`

	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.UserID, a.StockID, a.Type, a.ThresholdValue, a.CurrentValue, a.Status,
		a.TriggerCount, a.RequiredTriggers, a.TriggerHistory, a.Message,
		a.TriggeredAt, a.AcknowledgedAt, a.NotifiedAt, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return errors.ErrAlreadyExists
		}
		return errors.Wrap(err, "create alert")
	}
	return nil
}

func (r *AlertRepository) Get(ctx context.Context, id uuid.UUID) (*alert.Alert, error) {
	var a alert.Alert

	if err := r.db.GetContext(ctx, &a, alertSelect+` WHERE a.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.ErrNotFound
		}
		return nil, errors.Wrap(err, "get alert")
	}
	return &a, nil
}

// nextVersion advances updated_at strictly, even within one transaction
const nextVersion = `GREATEST(clock_timestamp(), updated_at + INTERVAL '1 microsecond')`

// Save writes every mutable column if the row is unchanged since a was read.
// a.UpdatedAt is the version; a stale write returns ErrConflict and leaves
// the stored row as the other writer left it.
func (r *AlertRepository) Save(ctx context.Context, a *alert.Alert) error {
	query := `
		UPDATE alerts SET
			alert_type = $2, threshold_value = $3, current_value = $4, status = $5,
			trigger_count = $6, required_triggers = $7, trigger_history = $8, message = $9,
			triggered_at = $10, acknowledged_at = $11, notified_at = $12,
			updated_at = ` + nextVersion + `
		WHERE id = $1 AND updated_at = $13
		RETURNING updated_at`

	var version time.Time
	err := r.db.GetContext(ctx, &version, query,
		a.ID, a.Type, a.ThresholdValue, a.CurrentValue, a.Status,
		a.TriggerCount, a.RequiredTriggers, a.TriggerHistory, a.Message,
		a.TriggeredAt, a.AcknowledgedAt, a.NotifiedAt, a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return r.staleOrMissing(ctx, a.ID)
	}
	if err != nil {
		return errors.Wrap(err, "save alert")
	}
	a.UpdatedAt = version
	return nil
}

func (r *AlertRepository) staleOrMissing(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM alerts WHERE id = $1)`, id); err != nil {
		return errors.Wrap(err, "check alert")
	}
	if exists {
		return errors.Wrapf(errors.ErrConflict, "alert %s", id)
	}
	return errors.ErrNotFound
}

func (r *AlertRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM alerts WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "delete alert")
	}
	return expectOne(res)
}

func (r *AlertRepository) ListByStatus(ctx context.Context, statuses ...alert.Status) ([]*alert.Alert, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = s.String()
	}

	var alerts []*alert.Alert
	query := alertSelect + ` WHERE a.status = ANY($1) ORDER BY a.created_at`
	if err := r.db.SelectContext(ctx, &alerts, query, pq.Array(names)); err != nil {
		return nil, errors.Wrap(err, "list alerts by status")
	}
	return alerts, nil
}

func (r *AlertRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*alert.Alert, error) {
	var alerts []*alert.Alert
	query := alertSelect + ` WHERE a.user_id = $1 ORDER BY a.created_at`
	if err := r.db.SelectContext(ctx, &alerts, query, userID); err != nil {
		return nil, errors.Wrap(err, "list user alerts")
	}
	return alerts, nil
}

func (r *AlertRepository) ListByUserStock(ctx context.Context, userID, stockID uuid.UUID) ([]*alert.Alert, error) {
	var alerts []*alert.Alert
	query := alertSelect + ` WHERE a.user_id = $1 AND a.stock_id = $2 ORDER BY a.created_at`
	if err := r.db.SelectContext(ctx, &alerts, query, userID, stockID); err != nil {
		return nil, errors.Wrap(err, "list user stock alerts")
	}
	return alerts, nil
}

func (r *AlertRepository) ListUnnotified(ctx context.Context) ([]*alert.Alert, error) {
	var alerts []*alert.Alert
	query := alertSelect + ` WHERE a.status = $1 AND a.notified_at IS NULL ORDER BY a.triggered_at`
	if err := r.db.SelectContext(ctx, &alerts, query, alert.StatusTriggered); err != nil {
		return nil, errors.Wrap(err, "list unnotified alerts")
	}
	return alerts, nil
}

func (r *AlertRepository) MarkNotified(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE alerts SET notified_at = $2, updated_at = `+nextVersion+` WHERE id = $1`, id, at)
	if err != nil {
		return errors.Wrap(err, "mark alert notified")
	}
	return expectOne(res)
}

func (r *AlertRepository) ExpirePending(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE alerts SET status = $1, updated_at = `+nextVersion+`
		WHERE status = $2 AND created_at < $3`,
		alert.StatusExpired, alert.StatusPending, cutoff,
	)
	if err != nil {
		return 0, errors.Wrap(err, "expire pending alerts")
	}
	return res.RowsAffected()
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.ErrNotFound
	}
	return nil
}
