// Package service provides the generation orchestrator: it validates a
// request, records it, routes it to an AI provider and persists the outcome.
package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/genforge-api/internal/generation"
	"github.com/phrazzld/genforge-api/internal/store"
)

// Common service errors - sentinel errors used across service implementations.
//
// Error handling principles:
// 1. Caller errors are sentinels returned before anything is written
// 2. Provider failures are reported as *GenerationError after the FAILED record is saved
// 3. Unexpected errors are wrapped in *ServiceError
// 4. The API layer maps service errors to appropriate HTTP status codes
var (
	// ErrUserRequired indicates the request carried no authenticated user.
	// API layer should map this to HTTP 400 Bad Request.
	ErrUserRequired = errors.New("user id is required")

	// ErrTemplateNotFound indicates the referenced template does not exist or
	// belongs to another user.
	// API layer should map this to HTTP 400 Bad Request.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrDatasetNotFound indicates the referenced dataset does not exist or
	// belongs to another user.
	// API layer should map this to HTTP 400 Bad Request.
	ErrDatasetNotFound = errors.New("dataset not found")

	// ErrGenerationNotFound indicates the generation does not exist or belongs
	// to another user. The two cases are deliberately indistinguishable.
	// API layer should map this to HTTP 404 Not Found.
	ErrGenerationNotFound = errors.New("generation not found")
)

// ServiceError wraps unexpected errors with the service and operation that failed.
type ServiceError struct {
	Service string
	Op      string
	Err     error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s service %s operation failed", e.Service, e.Op)
	}
	return fmt.Sprintf("%s service %s operation failed: %v", e.Service, e.Op, e.Err)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(service, op string, err error) *ServiceError {
	return &ServiceError{Service: service, Op: op, Err: err}
}

// newGenerationServiceError returns known sentinels directly and wraps
// everything else.
func newGenerationServiceError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrGenerationNotFound) {
		return ErrGenerationNotFound
	}
	if errors.Is(err, store.ErrTemplateNotFound) {
		return ErrTemplateNotFound
	}
	if errors.Is(err, store.ErrDatasetNotFound) {
		return ErrDatasetNotFound
	}
	return NewServiceError("generation", op, err)
}

// GenerationError reports a generation that ran and ended FAILED. The
// FAILED record, carrying the same Message, is already persisted when this
// error is returned.
type GenerationError struct {
	GenerationID uuid.UUID
	Kind         generation.ErrorKind
	Message      string
	Err          error
}

// Error implements the error interface for GenerationError.
func (e *GenerationError) Error() string {
	return "generation failed: " + e.Message
}

// Unwrap returns the provider error.
func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Retryable reports whether issuing the same request again could succeed.
func (e *GenerationError) Retryable() bool {
	return e.Kind == generation.KindTransient
}
