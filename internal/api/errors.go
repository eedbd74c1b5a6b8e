package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/genforge-api/internal/api/shared"
	"github.com/phrazzld/genforge-api/internal/domain"
	"github.com/phrazzld/genforge-api/internal/service"
	"github.com/phrazzld/genforge-api/internal/service/auth"
	"github.com/phrazzld/genforge-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes so that
// internal error types never decide the response on their own.
func MapErrorToStatusCode(err error) int {
	var genErr *service.GenerationError
	switch {
	case err == nil:
		return http.StatusOK

	// The provider ran and failed; the FAILED record exists.
	case errors.As(err, &genErr):
		return http.StatusBadGateway

	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	case errors.Is(err, service.ErrGenerationNotFound),
		errors.Is(err, store.ErrGenerationNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrUserRequired),
		errors.Is(err, service.ErrTemplateNotFound),
		errors.Is(err, service.ErrDatasetNotFound),
		errors.Is(err, domain.ErrEmptyPrompt),
		errors.Is(err, domain.ErrInvalidParameters),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-facing message for err that carries
// no internal detail.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var (
		genErr *service.GenerationError
		valErr *domain.ValidationError
	)
	switch {
	case errors.As(err, &genErr):
		return genErr.Error()

	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid token"
	case errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, domain.ErrUnauthorized):
		return "Authentication required"

	case errors.Is(err, service.ErrGenerationNotFound),
		errors.Is(err, store.ErrGenerationNotFound):
		return "Generation not found"
	case errors.Is(err, service.ErrTemplateNotFound):
		return "Template not found"
	case errors.Is(err, service.ErrDatasetNotFound):
		return "Dataset not found"
	case errors.Is(err, service.ErrUserRequired):
		return "User ID is required"
	case errors.Is(err, domain.ErrEmptyPrompt):
		return "Prompt is required"

	case errors.As(err, &valErr):
		return "Invalid " + valErr.Error()
	case errors.Is(err, domain.ErrInvalidParameters):
		return "Invalid generation parameters"
	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID"
	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation):
		return "Invalid entity data"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the response for err. message overrides the safe
// message when non-empty. Generation failures get the 502 body naming the
// stored FAILED record.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, message string) {
	status := MapErrorToStatusCode(err)
	if message == "" {
		message = GetSafeErrorMessage(err)
	}

	var genErr *service.GenerationError
	if errors.As(err, &genErr) {
		shared.RespondWithErrorAndLog(w, r, status, message, err, shared.WithBody(GenerationErrorResponse{
			Error:        message,
			GenerationID: genErr.GenerationID.String(),
			Retryable:    genErr.Retryable(),
			TraceID:      shared.GetTraceID(r.Context()),
		}))
		return
	}

	shared.RespondWithErrorAndLog(w, r, status, message, err)
}

// HandleValidationError writes a 400 response for a request that failed
// decoding or struct validation.
func HandleValidationError(w http.ResponseWriter, r *http.Request, err error) {
	shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
}

// SanitizeValidationError turns validator errors into short field messages
// and hides everything else behind a generic message.
func SanitizeValidationError(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return fmt.Sprintf("Invalid %s: %s", lowerFirst(fe.Field()), getValidationTagMessage(fe.Tag()))
	}

	errMsg := err.Error()
	if strings.Contains(errMsg, "Field validation") {
		// Format: "Key: 'X.Field' Error:Field validation for 'Field' failed on the 'tag' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 5 {
				return fmt.Sprintf("Invalid %s: %s", lowerFirst(fieldParts[1]), getValidationTagMessage(fieldParts[3]))
			}
			if len(fieldParts) >= 3 {
				return fmt.Sprintf("Invalid %s", lowerFirst(fieldParts[1]))
			}
		}
	}

	return "Validation error"
}

func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min", "gte", "gt":
		return "too small"
	case "max", "lte", "lt":
		return "too large"
	case "oneof":
		return "invalid value"
	case "uuid", "uuid4":
		return "invalid identifier"
	default:
		return "validation failed"
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
