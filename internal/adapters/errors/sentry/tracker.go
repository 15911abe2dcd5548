package sentry

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"

	"stockwatch/pkg/errors"
)

const flushTimeout = 2 * time.Second

// Tracker reports errors to Sentry
type Tracker struct {
	hub *sentry.Hub
}

// New initialises the Sentry SDK and returns a tracker bound to its hub
func New(dsn, environment, release string) (*Tracker, error) {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
		Release:     release,
	})
	if err != nil {
		return nil, errors.Wrap(err, "init sentry")
	}

	return &Tracker{hub: sentry.CurrentHub()}, nil
}

// CaptureError sends err with the explicit tags plus any tags carried by ctx
func (t *Tracker) CaptureError(ctx context.Context, err error, tags map[string]string) error {
	if err == nil {
		return nil
	}
	hub := t.hub.Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		applyTags(scope, ctx, tags)
	})
	hub.CaptureException(err)
	return nil
}

func (t *Tracker) CaptureMessage(ctx context.Context, message string, level errors.Level, tags map[string]string) error {
	hub := t.hub.Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		applyTags(scope, ctx, tags)
		scope.SetLevel(convertLevel(level))
	})
	hub.CaptureMessage(message)
	return nil
}

func (t *Tracker) AddBreadcrumb(_ context.Context, message, category string, level errors.Level, data map[string]interface{}) {
	t.hub.AddBreadcrumb(&sentry.Breadcrumb{
		Message:   message,
		Category:  category,
		Level:     convertLevel(level),
		Data:      data,
		Timestamp: time.Now(),
	}, nil)
}

// Flush blocks until queued events are sent or the flush timeout passes
func (t *Tracker) Flush(ctx context.Context) error {
	timeout := flushTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if !sentry.Flush(timeout) {
		return errors.Wrap(errors.ErrTimeout, "sentry flush")
	}
	return nil
}

func applyTags(scope *sentry.Scope, ctx context.Context, tags map[string]string) {
	for k, v := range errors.TagsFromContext(ctx) {
		scope.SetTag(k, v)
	}
	for k, v := range tags {
		scope.SetTag(k, v)
	}
}

func convertLevel(level errors.Level) sentry.Level {
	switch level {
	case errors.LevelDebug:
		return sentry.LevelDebug
	case errors.LevelInfo:
		return sentry.LevelInfo
	case errors.LevelWarning:
		return sentry.LevelWarning
	case errors.LevelError:
		return sentry.LevelError
	case errors.LevelFatal:
		return sentry.LevelFatal
	default:
		return sentry.LevelInfo
	}
}
