package inference

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a generation failure.
type ErrorKind string

const (
	// Timeout covers deadlines, network failures and 5xx responses.
	Timeout ErrorKind = "timeout"
	// RateLimited is a 429 response.
	RateLimited ErrorKind = "rate_limited"
	// ModelRefusal is a safety block or an explicit refusal.
	ModelRefusal ErrorKind = "model_refusal"
	// EmptyOutput is a response with no usable text.
	EmptyOutput ErrorKind = "empty_output"
	// Rejected is any other non-retryable failure, such as an invalid key.
	Rejected ErrorKind = "rejected"
)

// GenerationError is returned by every Backend and generator.
type GenerationError struct {
	Kind    ErrorKind
	Backend string
	Err     error
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Backend, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Backend, e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Transient reports whether the same request may succeed later.
func (e *GenerationError) Transient() bool {
	return e.Kind == Timeout || e.Kind == RateLimited
}

// NewError builds a GenerationError.
func NewError(kind ErrorKind, backend string, err error) *GenerationError {
	return &GenerationError{Kind: kind, Backend: backend, Err: err}
}

// KindOf returns the kind of the GenerationError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr.Kind, true
	}
	return "", false
}

// IsTransient reports whether err is a Timeout or RateLimited generation error.
func IsTransient(err error) bool {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr.Transient()
	}
	return false
}

// KindForStatus maps an HTTP status code of a failed response to a kind.
func KindForStatus(statusCode int) ErrorKind {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return RateLimited
	case statusCode == http.StatusRequestTimeout, statusCode >= 500:
		return Timeout
	default:
		return Rejected
	}
}

// KindForTransport maps an error that occurred before a response was read.
// Deadlines and connection failures are transient; cancellation is not.
func KindForTransport(err error) ErrorKind {
	if errors.Is(err, context.Canceled) {
		return Rejected
	}
	return Timeout
}
