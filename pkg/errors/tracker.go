package errors

import (
	"context"
)

// Tracker forwards errors to an external error tracking service
type Tracker interface {
	// CaptureError sends an error with searchable tags
	CaptureError(ctx context.Context, err error, tags map[string]string) error

	// CaptureMessage sends a non-error event, e.g. a sweep that hit the overlap guard
	CaptureMessage(ctx context.Context, message string, level Level, tags map[string]string) error

	// AddBreadcrumb records a step leading up to a later error (pipeline stage, alert id)
	AddBreadcrumb(ctx context.Context, message string, category string, level Level, data map[string]interface{})

	// Flush waits for pending events to be sent
	Flush(ctx context.Context) error
}

// Level is the severity attached to tracked events
type Level string

const (
	LevelDebug   Level = "debug"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
	LevelFatal   Level = "fatal"
)

func (l Level) String() string {
	return string(l)
}

type tagsKey struct{}

// WithTags attaches tracker tags (symbol, alert_id, stage) to ctx. Tags from
// outer calls are kept unless overwritten.
func WithTags(ctx context.Context, tags map[string]string) context.Context {
	merged := make(map[string]string, len(tags))
	for k, v := range TagsFromContext(ctx) {
		merged[k] = v
	}
	for k, v := range tags {
		merged[k] = v
	}
	return context.WithValue(ctx, tagsKey{}, merged)
}

// TagsFromContext returns the tags attached with WithTags, or nil.
func TagsFromContext(ctx context.Context) map[string]string {
	if ctx == nil {
		return nil
	}
	tags, _ := ctx.Value(tagsKey{}).(map[string]string)
	return tags
}
