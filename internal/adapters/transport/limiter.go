package transport

import (
	"context"

	"golang.org/x/time/rate"

	"stockwatch/pkg/errors"
)

// Limiter paces calls to one provider
type Limiter struct {
	limiter *rate.Limiter
	name    string
}

// NewLimiter allows requestsPerMinute with a burst of a tenth of that (at least 1).
// A non-positive rate disables limiting.
func NewLimiter(name string, requestsPerMinute int) *Limiter {
	if requestsPerMinute <= 0 {
		return &Limiter{limiter: rate.NewLimiter(rate.Inf, 1), name: name}
	}
	burst := requestsPerMinute / 10
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), burst),
		name:    name,
	}
}

// Wait blocks until a request may proceed
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return errors.Wrapf(err, "rate limiter %s", l.name)
	}
	return nil
}

func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}
