package generation

import (
	"errors"
	"fmt"

	"github.com/phrazzld/worksheetgen/internal/fingerprint"
)

// Common errors returned by the generation package
var (
	// ErrGenerationClient is returned when the external generation call fails.
	ErrGenerationClient = errors.New("task generation client failed")

	// ErrTransient marks client failures that may succeed on retry, such as
	// timeouts, rate limiting and server errors. It matches ErrGenerationClient.
	ErrTransient = fmt.Errorf("%w: transient", ErrGenerationClient)

	// ErrContentBlocked is returned when the LLM refuses the content.
	// It matches ErrGenerationClient and is never transient.
	ErrContentBlocked = fmt.Errorf("%w: content blocked by language model safety filters", ErrGenerationClient)

	// ErrMalformedResponse is returned when the response lacks the tasks collection.
	ErrMalformedResponse = errors.New("malformed response from language model")

	// ErrEmptyResult is returned when validation discards every candidate.
	ErrEmptyResult = errors.New("no valid tasks produced")

	// ErrInvalidRequest is returned for empty text or a non-positive task count.
	ErrInvalidRequest = errors.New("invalid generation request")

	// ErrInvalidConfig is returned when a client or prompt is misconfigured.
	ErrInvalidConfig = errors.New("invalid generator configuration")
)

// Error is a fatal generation outcome for one fingerprint.
type Error struct {
	// Op is the stage that failed: "generate" or "validate".
	Op string
	// Fingerprint identifies the content being generated for.
	Fingerprint fingerprint.Fingerprint
	// Err is the cause; it matches one of the package sentinels.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("generation %s failed for %s: %v", e.Op, e.Fingerprint, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
