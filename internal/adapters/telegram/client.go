package telegram

import (
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"stockwatch/pkg/errors"
	"stockwatch/pkg/logger"
)

// Sender is the part of tgbotapi.BotAPI used to push messages
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Config contains Telegram bot configuration
type Config struct {
	Token          string
	ChatID         int64
	Debug          bool
	HTTPTimeout    time.Duration
	RateLimitBurst int // default 30
	RateLimitRate  int // messages per second, default 20 (Telegram allows 30)
}

func (c *Config) withDefaults() {
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = 30 * time.Second
	}
	if c.RateLimitBurst == 0 {
		c.RateLimitBurst = 30
	}
	if c.RateLimitRate == 0 {
		c.RateLimitRate = 20
	}
}

// NewBotAPI authorizes the token with a pooled HTTP client
func NewBotAPI(cfg Config, log *logger.Logger) (*tgbotapi.BotAPI, error) {
	if cfg.Token == "" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "telegram bot token is required")
	}
	cfg.withDefaults()

	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, errors.Wrap(errors.Join(errors.ErrExternal, err), "failed to create telegram bot")
	}
	api.Debug = cfg.Debug

	log.Infow("Telegram bot authorized", "account", api.Self.UserName)
	return api, nil
}

func newLimiter(cfg Config) *rate.Limiter {
	cfg.withDefaults()
	return rate.NewLimiter(rate.Limit(cfg.RateLimitRate), cfg.RateLimitBurst)
}
