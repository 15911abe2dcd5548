package alerting

import (
	"context"
	"time"

	"stockwatch/internal/alerts"
	"stockwatch/internal/workers"
)

// Dispatcher is satisfied by *alerts.Dispatcher
type Dispatcher interface {
	Dispatch(ctx context.Context) (alerts.DispatchStats, error)
}

// Expirer is satisfied by *alerts.Service
type Expirer interface {
	ExpireStale(ctx context.Context, maxAge time.Duration) (int64, error)
}

// NotifyWorker sends notifications for triggered alerts
type NotifyWorker struct {
	*workers.BaseWorker
	dispatcher Dispatcher
}

func NewNotifyWorker(d Dispatcher, interval time.Duration, enabled bool) *NotifyWorker {
	return &NotifyWorker{
		BaseWorker: workers.NewBaseWorker("alert_notify", interval, enabled),
		dispatcher: d,
	}
}

func (w *NotifyWorker) Run(ctx context.Context) error {
	stats, err := w.dispatcher.Dispatch(ctx)
	if err != nil {
		return err
	}
	if stats.Sent > 0 || stats.Failed > 0 {
		w.Log().Infow("Notifications dispatched", "sent", stats.Sent, "failed", stats.Failed)
	}
	return nil
}

// ExpiryWorker moves stale PENDING alerts to EXPIRED
type ExpiryWorker struct {
	*workers.BaseWorker
	expirer Expirer
	maxAge  time.Duration
}

func NewExpiryWorker(e Expirer, maxAge, interval time.Duration, enabled bool) *ExpiryWorker {
	return &ExpiryWorker{
		BaseWorker: workers.NewBaseWorker("alert_expiry", interval, enabled),
		expirer:    e,
		maxAge:     maxAge,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	n, err := w.expirer.ExpireStale(ctx, w.maxAge)
	if err != nil {
		return err
	}
	w.Log().Infow("Expired stale alerts", "count", n, "max_age", w.maxAge)
	return nil
}
