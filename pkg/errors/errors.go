package errors

import (
	"errors"
	"fmt"
)

// Domain error types for business logic

var (
	// ErrInvalidRequest indicates a caller error; never retried
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInternal indicates an internal error
	ErrInternal = errors.New("internal error")

	// ErrTimeout indicates an operation timeout
	ErrTimeout = errors.New("operation timeout")

	// ErrDependencyUnavailable indicates a hard dependency (cache, index) is down.
	// Fatal for the whole request, surfaced as 503.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

// Source agent errors

var (
	// ErrTransientSource indicates a retryable upstream failure (network, 5xx)
	ErrTransientSource = errors.New("transient source error")

	// ErrPermanentSource indicates a non-retryable upstream failure (auth, not-found)
	ErrPermanentSource = errors.New("permanent source error")

	// ErrRateLimited indicates the upstream throttled us
	ErrRateLimited = errors.New("rate limited")
)

// Analysis errors

var (
	// ErrInsufficientData indicates the analysis engine cannot proceed for a
	// symbol. Treated as a partial signal by the orchestrator, not a fatal one.
	ErrInsufficientData = errors.New("insufficient data for analysis")
)

// Retryable reports whether err is worth retrying with backoff.
// Only transient source errors and rate limits qualify; caller errors,
// permanent upstream failures and context cancellation never do.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTransientSource) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrTimeout)
}

// SourceError wraps an upstream failure with the source that produced it
type SourceError struct {
	Source string
	Kind   error // ErrTransientSource or ErrPermanentSource
	Err    error
}

// Error implements the error interface
func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Source, e.Kind, e.Err)
}

// Unwrap returns the error kind so errors.Is sees transient/permanent
func (e *SourceError) Unwrap() error {
	return e.Kind
}

// NewSourceError creates a new source error
func NewSourceError(source string, kind error, err error) *SourceError {
	return &SourceError{Source: source, Kind: kind, Err: err}
}

// Helper functions

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
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
