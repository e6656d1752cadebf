package extract

import (
	"errors"
	"fmt"
)

var (
	// ErrExtraction is matched by every error returned from Extract.
	ErrExtraction = errors.New("text extraction failed")

	// ErrUnsupportedType indicates a file type the extractor cannot handle.
	ErrUnsupportedType = errors.New("unsupported document type")
)

// Error describes why a document could not be turned into text.
type Error struct {
	// Kind is the declared source kind of the document.
	Kind SourceKind
	// Reason is a short human readable explanation.
	Reason string
	// Err is the underlying parser error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract %s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("extract %s: %s", e.Kind, e.Reason)
}

// Is reports whether target is ErrExtraction.
func (e *Error) Is(target error) bool {
	return target == ErrExtraction
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind SourceKind, reason string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}
