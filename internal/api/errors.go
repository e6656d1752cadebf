package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/phrazzld/worksheetgen/internal/api/shared"
	"github.com/phrazzld/worksheetgen/internal/cache"
	"github.com/phrazzld/worksheetgen/internal/domain"
	"github.com/phrazzld/worksheetgen/internal/extract"
	"github.com/phrazzld/worksheetgen/internal/generation"
	"github.com/phrazzld/worksheetgen/internal/service"
	"github.com/phrazzld/worksheetgen/internal/store"
)

// Request level errors raised by the handlers themselves.
var (
	// ErrInvalidID is returned when a path parameter is not a UUID.
	ErrInvalidID = errors.New("invalid ID")

	// ErrMissingFile is returned when an upload carries no file part.
	ErrMissingFile = errors.New("no file provided")

	// ErrInvalidRequest is returned for malformed bodies or query values.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrMissingAnswer is returned when a check request has no answer.
	ErrMissingAnswer = errors.New("answer is required")
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusInternalServerError

	// Bad request errors
	case errors.Is(err, ErrInvalidID),
		errors.Is(err, ErrMissingFile),
		errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrMissingAnswer),
		errors.Is(err, domain.ErrInvalidAnswer),
		errors.Is(err, service.ErrInvalidFilename),
		errors.Is(err, service.ErrInvalidTaskCount),
		errors.Is(err, cache.ErrInvalidScope),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Upload errors
	case errors.Is(err, service.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, extract.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, extract.ErrExtraction):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrCheckUnsupported):
		return http.StatusUnprocessableEntity

	// Not found errors
	case errors.Is(err, service.ErrWorksheetNotFound),
		errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Upstream generation errors
	case errors.Is(err, generation.ErrGenerationClient),
		errors.Is(err, generation.ErrMalformedResponse),
		errors.Is(err, generation.ErrEmptyResult):
		return http.StatusBadGateway

	case errors.Is(err, service.ErrEnqueueFailed):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, ErrInvalidID):
		return "Invalid ID format"
	case errors.Is(err, ErrMissingFile):
		return "No file provided"
	case errors.Is(err, ErrInvalidRequest):
		return "Invalid request format"
	case errors.Is(err, ErrMissingAnswer):
		return "Answer is required"
	case errors.Is(err, domain.ErrInvalidAnswer):
		return "Answer does not fit the task type"
	case errors.Is(err, domain.ErrCheckUnsupported):
		return "Answers to this task type cannot be checked automatically"
	case errors.Is(err, service.ErrInvalidFilename):
		return "Invalid filename"
	case errors.Is(err, service.ErrInvalidTaskCount):
		return fmt.Sprintf("Number of tasks must be between 1 and %d", service.MaxTaskCount)
	case errors.Is(err, cache.ErrInvalidScope):
		return "Invalid cache scope"
	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	case errors.Is(err, service.ErrFileTooLarge):
		return "File too large"
	case errors.Is(err, extract.ErrUnsupportedType):
		return "Unsupported file type; allowed types are pdf, docx and doc"
	case errors.Is(err, extract.ErrExtraction):
		return "Could not extract text from the document"

	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"
	case errors.Is(err, service.ErrWorksheetNotFound),
		errors.Is(err, store.ErrNotFound):
		return "Worksheet not found"

	case errors.Is(err, generation.ErrContentBlocked):
		return "The content was rejected by the task generator"
	case errors.Is(err, generation.ErrGenerationClient),
		errors.Is(err, generation.ErrMalformedResponse),
		errors.Is(err, generation.ErrEmptyResult):
		return "Task generation failed"

	case errors.Is(err, service.ErrEnqueueFailed):
		return "Task generation could not be scheduled; try again later"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError maps err to a status code and a safe message, logs the
// redacted error and writes the response. A non-empty message overrides the
// mapped one.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, message string) {
	if message == "" {
		message = GetSafeErrorMessage(err)
	}
	shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), message, err)
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	if strings.Contains(errMsg, "Field validation") {
		// Example format: "Key: 'RegenerateRequest.NumTasks' Error:Field validation for 'NumTasks' failed on the 'lte' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min", "gte":
		return "too small"
	case "max", "lte":
		return "too large"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
