package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Generic errors shared by repositories and services

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates a resource already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrForbidden indicates the caller does not own the resource
	ErrForbidden = errors.New("forbidden")

	// ErrConflict indicates the row changed since it was read
	ErrConflict = errors.New("concurrent modification")

	ErrInternal = errors.New("internal error")

	// ErrTimeout indicates an operation timeout
	ErrTimeout = errors.New("operation timeout")

	// ErrUnavailable indicates a dependency is not configured or not reachable
	ErrUnavailable = errors.New("service unavailable")

	// ErrExternal indicates an upstream API answered with an error
	ErrExternal = errors.New("external service error")
)

// Pipeline errors

var (
	// ErrDataUnavailable indicates price or history could not be fetched or failed validation
	ErrDataUnavailable = errors.New("market data unavailable")

	// ErrInsufficientHistory indicates the series is too short for an indicator
	ErrInsufficientHistory = errors.New("insufficient price history")

	// ErrBranchFailure marks a failed analysis branch inside an otherwise successful run
	ErrBranchFailure = errors.New("analysis branch failed")

	// ErrPipelineFailure indicates the collection stage failed and no analysis ran
	ErrPipelineFailure = errors.New("pipeline failed")
)

// Alert errors

var (
	// ErrAlertEvaluation indicates a single alert could not be evaluated this tick
	ErrAlertEvaluation = errors.New("alert evaluation failed")

	// ErrSweepInProgress indicates another sweep still holds the sweep guard
	ErrSweepInProgress = errors.New("sweep already in progress")

	// ErrRateLimitExceeded indicates a provider rate limit was hit
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// DomainError wraps an error with a stable code that callers can switch on
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError describes one rejected input field
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: field '%s': %s (value: %v)", e.Field, e.Message, e.Value)
}

// Unwrap lets callers match validation failures with Is(err, ErrInvalidInput)
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// MultiError collects independent failures, e.g. per-alert errors within one sweep
type MultiError struct {
	Errors []error
}

func (m *MultiError) Error() string {
	switch len(m.Errors) {
	case 0:
		return "no errors"
	case 1:
		return m.Errors[0].Error()
	}
	msgs := make([]string, 0, len(m.Errors))
	for _, err := range m.Errors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("multiple errors (%d): %s", len(m.Errors), strings.Join(msgs, "; "))
}

// Unwrap exposes every collected error to errors.Is / errors.As
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Add adds an error to the list, ignoring nil
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

func (m *MultiError) HasErrors() bool {
	return len(m.Errors) > 0
}

// ToError returns the MultiError as an error, or nil if nothing was collected
func (m *MultiError) ToError() error {
	if !m.HasErrors() {
		return nil
	}
	return m
}

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Join is errors.Join
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
