package service

import (
	"errors"
	"fmt"
)

// Common service errors. The API layer maps these to HTTP status codes.
var (
	// ErrWorksheetNotFound indicates that the worksheet does not exist.
	ErrWorksheetNotFound = errors.New("worksheet not found")

	// ErrTaskNotFound indicates that the task does not exist.
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidFilename indicates that nothing usable is left of the
	// filename after sanitising.
	ErrInvalidFilename = errors.New("invalid filename")

	// ErrFileTooLarge indicates that the upload exceeds the configured limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrInvalidTaskCount indicates a negative or excessive task count.
	ErrInvalidTaskCount = errors.New("invalid task count")

	// ErrEnqueueFailed indicates the generation request could not be queued.
	ErrEnqueueFailed = errors.New("failed to schedule task generation")
)

// WorksheetServiceError wraps errors from the worksheet service with context.
type WorksheetServiceError struct {
	// Operation is the operation that failed (e.g., "upload", "regenerate")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for WorksheetServiceError.
func (e *WorksheetServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("worksheet service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("worksheet service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *WorksheetServiceError) Unwrap() error {
	return e.Err
}

// NewWorksheetServiceError creates a new WorksheetServiceError.
// ErrWorksheetNotFound and ErrTaskNotFound are returned as is rather than
// wrapped.
func NewWorksheetServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrWorksheetNotFound) {
		return ErrWorksheetNotFound
	}
	if errors.Is(err, ErrTaskNotFound) {
		return ErrTaskNotFound
	}
	return &WorksheetServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
