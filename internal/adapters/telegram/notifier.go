package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"stockwatch/internal/alerts"
	"stockwatch/pkg/errors"
	"stockwatch/pkg/logger"
)

// Notifier delivers alert notifications to one configured chat
type Notifier struct {
	sender  Sender
	chatID  int64
	limiter *rate.Limiter
	log     *logger.Logger
}

var _ alerts.Notifier = (*Notifier)(nil)

func NewNotifier(sender Sender, cfg Config) (*Notifier, error) {
	if cfg.ChatID == 0 {
		return nil, errors.NewValidationError("TELEGRAM_CHAT_ID", "required for notifications", cfg.ChatID)
	}
	return &Notifier{
		sender:  sender,
		chatID:  cfg.ChatID,
		limiter: newLimiter(cfg),
		log:     logger.Get().With("component", "telegram_notifier"),
	}, nil
}

func (n *Notifier) Name() string { return "telegram" }

// Notify waits for the send budget, then posts the text as plain text
func (n *Notifier) Notify(ctx context.Context, note alerts.Notification) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "telegram rate limit wait")
	}

	msg := tgbotapi.NewMessage(n.chatID, note.Text)
	msg.DisableWebPagePreview = true

	if _, err := n.sender.Send(msg); err != nil {
		return errors.Wrapf(errors.Join(errors.ErrExternal, err), "send telegram message for alert %s", note.AlertID)
	}

	n.log.Debugw("Notification sent", "alert_id", note.AlertID, "symbol", note.Symbol)
	return nil
}
