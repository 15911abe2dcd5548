// Package transport holds the shared plumbing for outbound provider calls:
// bounded retries with backoff, request rate limiting and HTTP status errors.
package transport

import (
	"context"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"stockwatch/pkg/errors"
)

type Strategy string

const (
	StrategyExponential Strategy = "exponential"
	StrategyLinear      Strategy = "linear"
	StrategyFixed       Strategy = "fixed"
)

// RetryConfig controls Retrier backoff
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Strategy     Strategy
	Multiplier   float64
}

// DefaultRetryConfig is three retries, exponential from 200ms
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Strategy:     StrategyExponential,
		Multiplier:   2.0,
	}
}

// Retrier re-runs transient failures. Non-retryable errors return immediately.
type Retrier struct {
	cfg RetryConfig
}

func NewRetrier(cfg RetryConfig) *Retrier {
	def := DefaultRetryConfig()
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = def.InitialDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = def.Multiplier
	}
	if cfg.Strategy == "" {
		cfg.Strategy = def.Strategy
	}
	return &Retrier{cfg: cfg}
}

// Do runs fn until it succeeds, fails permanently, or retries run out
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := Retry(ctx, r, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Retry is the value-returning form of Retrier.Do
func Retry[T any](ctx context.Context, r *Retrier, fn func(ctx context.Context) (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return zero, err
		}
		if attempt == r.cfg.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return zero, errors.Wrap(ctx.Err(), "retry cancelled")
		case <-time.After(r.delay(attempt)):
		}
	}
	return zero, errors.Wrapf(lastErr, "max retries (%d) exceeded", r.cfg.MaxRetries)
}

func (r *Retrier) delay(attempt int) time.Duration {
	var d time.Duration
	switch r.cfg.Strategy {
	case StrategyLinear:
		d = r.cfg.InitialDelay * time.Duration(1+attempt)
	case StrategyFixed:
		d = r.cfg.InitialDelay
	default:
		d = time.Duration(float64(r.cfg.InitialDelay) * math.Pow(r.cfg.Multiplier, float64(attempt)))
	}
	if d > r.cfg.MaxDelay {
		d = r.cfg.MaxDelay
	}
	return d
}

var retryableMessages = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"timeout",
	"temporary failure",
	"too many requests",
	"rate limit",
}

// IsRetryable reports whether err looks transient
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		code := statusErr.Code
		return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	msg := strings.ToLower(err.Error())
	for _, m := range retryableMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
