package telegram

import (
	"context"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch/internal/alerts"
	"stockwatch/pkg/errors"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (s *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if s.err != nil {
		return tgbotapi.Message{}, s.err
	}
	s.sent = append(s.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{MessageID: len(s.sent)}, nil
}

func TestNotifier_SendsToConfiguredChat(t *testing.T) {
	sender := &fakeSender{}
	n, err := NewNotifier(sender, Config{ChatID: 42})
	require.NoError(t, err)

	note := alerts.Notification{AlertID: uuid.New(), Symbol: "AAPL", Text: "🔔 AAPL price drop alert"}
	require.NoError(t, n.Notify(context.Background(), note))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(42), sender.sent[0].ChatID)
	assert.Equal(t, note.Text, sender.sent[0].Text)
	assert.Equal(t, "telegram", n.Name())
}

func TestNotifier_SendFailure(t *testing.T) {
	n, err := NewNotifier(&fakeSender{err: assert.AnError}, Config{ChatID: 42})
	require.NoError(t, err)

	err = n.Notify(context.Background(), alerts.Notification{AlertID: uuid.New(), Text: "x"})
	assert.True(t, errors.Is(err, errors.ErrExternal))
	assert.ErrorIs(t, err, assert.AnError)
}

func TestNotifier_RequiresChat(t *testing.T) {
	_, err := NewNotifier(&fakeSender{}, Config{})
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestNotifier_CancelledContext(t *testing.T) {
	n, err := NewNotifier(&fakeSender{}, Config{ChatID: 1, RateLimitRate: 1, RateLimitBurst: 1})
	require.NoError(t, err)

	require.NoError(t, n.Notify(context.Background(), alerts.Notification{Text: "first"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, n.Notify(ctx, alerts.Notification{Text: "second"}))
}
