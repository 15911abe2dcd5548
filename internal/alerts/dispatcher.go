package alerts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"stockwatch/internal/domain/alert"
	"stockwatch/internal/metrics"
	"stockwatch/pkg/errors"
	"stockwatch/pkg/logger"
)

// Notification is one message addressed to the alert owner
type Notification struct {
	AlertID uuid.UUID
	UserID  uuid.UUID
	Symbol  string
	Text    string
}

// Notifier delivers notifications to users
type Notifier interface {
	Name() string
	Notify(ctx context.Context, n Notification) error
}

// DispatchStats summarizes one dispatch run
type DispatchStats struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// Dispatcher sends TRIGGERED alerts that have not been notified yet
type Dispatcher struct {
	alerts   alert.Repository
	notifier Notifier
	now      func() time.Time
	log      *logger.Logger
}

func NewDispatcher(alerts alert.Repository, notifier Notifier) *Dispatcher {
	return &Dispatcher{
		alerts:   alerts,
		notifier: notifier,
		now:      time.Now,
		log:      logger.Get().With("component", "alert_dispatcher"),
	}
}

func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// Dispatch notifies every unnotified TRIGGERED alert once. A failed send
// leaves notified_at unset so the next run retries it.
func (d *Dispatcher) Dispatch(ctx context.Context) (DispatchStats, error) {
	var st DispatchStats
	pending, err := d.alerts.ListUnnotified(ctx)
	if err != nil {
		return st, errors.Wrap(err, "list unnotified alerts")
	}

	for _, a := range pending {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		now := d.now()
		err := d.notifier.Notify(ctx, Notification{
			AlertID: a.ID,
			UserID:  a.UserID,
			Symbol:  a.Symbol,
			Text:    FormatNotification(a, now),
		})
		metrics.RecordNotification(d.notifier.Name(), err)
		if err != nil {
			st.Failed++
			d.log.Warnw("Notification failed", "alert_id", a.ID, "channel", d.notifier.Name(), "error", err)
			continue
		}
		if err := d.alerts.MarkNotified(ctx, a.ID, now); err != nil {
			// sent but not stamped; the user may get a duplicate next run
			st.Failed++
			d.log.Errorw("Failed to stamp notified_at", "alert_id", a.ID, "error", err)
			continue
		}
		st.Sent++
	}

	if st.Sent+st.Failed > 0 {
		d.log.Infow("Alert notifications dispatched", "sent", st.Sent, "failed", st.Failed)
	}
	return st, nil
}

// FormatNotification renders the alert message with a relative trigger time
func FormatNotification(a *alert.Alert, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔔 %s %s alert\n", a.Symbol, strings.ReplaceAll(strings.ToLower(string(a.Type)), "_", " "))
	b.WriteString(a.Message)
	if a.TriggeredAt != nil {
		fmt.Fprintf(&b, "\nTriggered %s", humanize.RelTime(*a.TriggeredAt, now, "ago", "from now"))
	}
	if a.CurrentValue.IsPositive() {
		fmt.Fprintf(&b, "\nLast price: $%s", humanize.CommafWithDigits(a.CurrentValue.InexactFloat64(), 2))
	}
	return b.String()
}

// LogNotifier writes notifications to the log when no channel is configured
type LogNotifier struct {
	log *logger.Logger
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{log: logger.Get().With("component", "log_notifier")}
}

func (n *LogNotifier) Name() string { return "log" }

func (n *LogNotifier) Notify(_ context.Context, note Notification) error {
	n.log.Infow("Alert notification", "alert_id", note.AlertID, "user_id", note.UserID, "symbol", note.Symbol, "text", note.Text)
	return nil
}
