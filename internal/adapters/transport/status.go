package transport

import (
	"fmt"
	"io"
	"net/http"

	"stockwatch/pkg/errors"
)

// StatusError is a non-2xx HTTP answer from a provider
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Provider, e.Code, e.Body)
}

// Unwrap classifies the status: 404 is not found, 429 a rate limit, everything else external
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusNotFound:
		return errors.ErrNotFound
	case http.StatusTooManyRequests:
		return errors.ErrRateLimitExceeded
	default:
		return errors.ErrExternal
	}
}

// CheckResponse returns a StatusError for non-2xx responses, keeping a short body excerpt
func CheckResponse(provider string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{Provider: provider, Code: resp.StatusCode, Body: string(body)}
}
