package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by provider adapters
var (
	// ErrInvalidConfig is returned when an adapter cannot run with its configuration,
	// for example a missing API key or a model the provider does not serve.
	ErrInvalidConfig = errors.New("invalid generator configuration")

	// ErrUnsupportedCapability is returned when a provider is asked for a
	// category of output it does not produce.
	ErrUnsupportedCapability = fmt.Errorf("%w: unsupported capability", ErrInvalidConfig)

	// ErrTransientFailure is returned for temporary errors that might resolve on retry
	ErrTransientFailure = errors.New("transient provider failure")

	// ErrInvalidResponse is returned when the provider response cannot be parsed or is malformed
	ErrInvalidResponse = fmt.Errorf("%w: invalid response from provider", ErrTransientFailure)

	// ErrEmptyResult is returned when the provider answered without a usable artifact
	ErrEmptyResult = fmt.Errorf("%w: provider returned no usable output", ErrTransientFailure)

	// ErrRateLimited is returned when the provider throttled the request
	ErrRateLimited = fmt.Errorf("%w: rate limited by provider", ErrTransientFailure)

	// ErrTimeout is returned when the provider call exceeded its deadline
	ErrTimeout = fmt.Errorf("%w: provider call timed out", ErrTransientFailure)

	// ErrContentBlocked is returned when the provider blocks the content due to safety filters
	ErrContentBlocked = errors.New("content blocked by provider safety filters")

	// ErrRequestRejected is returned when the provider refused the request itself
	ErrRequestRejected = errors.New("request rejected by provider")
)

// ErrorKind groups adapter errors by how a caller should react to them.
type ErrorKind string

const (
	KindConfig    ErrorKind = "configuration"
	KindTransient ErrorKind = "transient"
	KindRejected  ErrorKind = "rejected"
	KindUnknown   ErrorKind = "unknown"
)

// KindOf classifies err. Deadline overruns count as transient even when an
// adapter returned the bare context error.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrInvalidConfig):
		return KindConfig
	case errors.Is(err, ErrTransientFailure), errors.Is(err, context.DeadlineExceeded):
		return KindTransient
	case errors.Is(err, ErrContentBlocked), errors.Is(err, ErrRequestRejected):
		return KindRejected
	default:
		return KindUnknown
	}
}

// Retryable reports whether repeating the same request could succeed.
func Retryable(err error) bool {
	return KindOf(err) == KindTransient
}

// TransportError wraps an error raised while talking to a provider.
func TransportError(provider string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", ErrTimeout, provider, err)
	}
	return fmt.Errorf("%w: %s request failed: %v", ErrTransientFailure, provider, err)
}

// StatusError maps a non-2xx provider HTTP status to the error taxonomy.
// detail is the provider's own message, if it sent one.
func StatusError(provider string, status int, detail string) error {
	if detail == "" {
		detail = http.StatusText(status)
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %s rejected credentials (status %d): %s", ErrInvalidConfig, provider, status, detail)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s model not found (status %d): %s", ErrInvalidConfig, provider, status, detail)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s (status %d): %s", ErrRateLimited, provider, status, detail)
	case status == http.StatusRequestTimeout || status >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s returned status %d: %s", ErrTransientFailure, provider, status, detail)
	default:
		return fmt.Errorf("%w: %s returned status %d: %s", ErrRequestRejected, provider, status, detail)
	}
}
