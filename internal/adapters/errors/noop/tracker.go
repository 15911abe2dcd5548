package noop

import (
	"context"

	"stockwatch/pkg/errors"
)

// Tracker discards everything. Used when ERROR_TRACKING_ENABLED is false and in tests.
type Tracker struct{}

func New() *Tracker {
	return &Tracker{}
}

var _ errors.Tracker = (*Tracker)(nil)

func (t *Tracker) CaptureError(context.Context, error, map[string]string) error { return nil }

func (t *Tracker) CaptureMessage(context.Context, string, errors.Level, map[string]string) error {
	return nil
}

func (t *Tracker) AddBreadcrumb(context.Context, string, string, errors.Level, map[string]interface{}) {
}

func (t *Tracker) Flush(context.Context) error { return nil }
