package shared

import (
	"context"
	"encoding/hex"
	"net/http"
	"regexp"

	"github.com/google/uuid"
)

// ContextKey is the type of keys this package stores in a request context.
type ContextKey string

const (
	// TraceIDKey is the key for the trace ID in the request context
	TraceIDKey ContextKey = "traceID"

	// TraceIDHeader carries a caller supplied trace ID and echoes it back.
	TraceIDHeader = "X-Request-ID"
)

// Caller supplied IDs are accepted only in this shape so they are safe to log.
var traceIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)

// NewTraceID returns a random 32 character hex trace ID.
func NewTraceID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// TraceIDFromRequest returns the trace ID sent by the caller, or a new one
// when the header is missing or malformed.
func TraceIDFromRequest(r *http.Request) string {
	if id := r.Header.Get(TraceIDHeader); traceIDPattern.MatchString(id) {
		return id
	}
	return NewTraceID()
}

// SetTraceID returns a copy of ctx carrying traceID.
func SetTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID retrieves the trace ID from the context.
// If no trace ID exists, it returns an empty string.
func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok {
		return ""
	}
	return traceID
}
