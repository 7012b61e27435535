// Package errors provides structured error types for the PhaseFlow server.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the generation pipeline's failure modes.
var (
	// ErrValidation is returned for oversized or missing input, before any
	// network call is made.
	ErrValidation = errors.New("invalid input")

	// ErrQuotaExceeded means the generation account is out of credit.
	// Retrying wastes calls, so it is never retried.
	ErrQuotaExceeded = errors.New("generation quota exceeded")

	// ErrAuth means the generation credentials were rejected. Not retried.
	ErrAuth = errors.New("authentication failed")

	// ErrRateLimit is a transient rate-limit signal from the gateway.
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrUnavailable covers 5xx and transport-level failures.
	ErrUnavailable = errors.New("service unavailable")

	// ErrTimeout means an operation exceeded its deadline.
	ErrTimeout = errors.New("operation timed out")

	// ErrMalformedResponse means no JSON value could be parsed out of the
	// model's response text.
	ErrMalformedResponse = errors.New("malformed model response")

	// ErrInvalidPlanShape means the model's JSON parsed but does not match
	// the plan schema. There is no safe empty fallback for a project plan,
	// so this is a hard failure.
	ErrInvalidPlanShape = errors.New("invalid plan shape")

	// ErrNotFound is returned by the store for missing records.
	ErrNotFound = errors.New("resource not found")
)

// APIError represents an error from an external API call.
type APIError struct {
	Service    string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s API error (status %d): %s: %v", e.Service, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("%s API error (status %d): %s", e.Service, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// NewAPIError creates a new API error.
func NewAPIError(service string, statusCode int, message string) *APIError {
	return &APIError{Service: service, StatusCode: statusCode, Message: message}
}

// GenerationError wraps the last underlying cause after retries are exhausted.
type GenerationError struct {
	Operation string
	Attempts  int
	Err       error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed for %s after %d attempts: %v", e.Operation, e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// NewGenerationError creates a GenerationError for an exhausted operation.
func NewGenerationError(operation string, attempts int, err error) *GenerationError {
	return &GenerationError{Operation: operation, Attempts: attempts, Err: err}
}

// IsRetryable returns true if the error is likely transient and worth retrying.
// Quota and auth failures are explicitly terminal: retrying them burns calls
// against a dead account.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrQuotaExceeded) || errors.Is(err, ErrAuth) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429, 500, 502, 503, 504:
			return true
		}
		return false
	}
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrRateLimit) || errors.Is(err, ErrUnavailable)
}

// FromStatusCode maps a generation gateway HTTP status to the pipeline's
// error taxonomy. Unknown statuses become plain APIErrors.
func FromStatusCode(service string, status int, message string) error {
	switch {
	case status == 402:
		return fmt.Errorf("%w: %s", ErrQuotaExceeded, message)
	case status == 401 || status == 403:
		return fmt.Errorf("%w: %s", ErrAuth, message)
	case status == 429:
		return fmt.Errorf("%w: %s", ErrRateLimit, message)
	case status >= 500:
		return fmt.Errorf("%w: %s (status %d)", ErrUnavailable, message, status)
	default:
		return NewAPIError(service, status, message)
	}
}
