package alert

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines alert persistence. Save writes the whole row so each
// alert's mutation commits independently.
type Repository interface {
	Create(ctx context.Context, a *Alert) error
	Get(ctx context.Context, id uuid.UUID) (*Alert, error)
	Save(ctx context.Context, a *Alert) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByStatus(ctx context.Context, statuses ...Status) ([]*Alert, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Alert, error)
	ListByUserStock(ctx context.Context, userID, stockID uuid.UUID) ([]*Alert, error)
	// ListUnnotified returns TRIGGERED alerts whose notification has not been sent
	ListUnnotified(ctx context.Context) ([]*Alert, error)
	MarkNotified(ctx context.Context, id uuid.UUID, at time.Time) error
	// ExpirePending moves PENDING alerts created before cutoff to EXPIRED
	ExpirePending(ctx context.Context, cutoff time.Time) (int64, error)
}
