package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// RawResponse is the decoded JSON object returned by a generation service.
// It is expected to hold a "tasks" array but is not trusted until it has
// passed through a Validator.
type RawResponse map[string]any

// Client generates candidate tasks from text. Implementations perform a
// single attempt: retry policy belongs to the caller.
type Client interface {
	// Generate asks the service for count tasks based on text.
	//
	// Failures match ErrGenerationClient; those worth retrying also match
	// ErrTransient. A reply that is not a JSON object matches ErrMalformedResponse.
	Generate(ctx context.Context, text string, count int) (RawResponse, error)
}

// DecodeRawResponse parses the model's message content into a RawResponse.
// Markdown code fences around the JSON are tolerated.
func DecodeRawResponse(content string) (RawResponse, error) {
	content = stripCodeFence(strings.TrimSpace(content))
	if content == "" {
		return nil, fmt.Errorf("%w: empty response content", ErrMalformedResponse)
	}

	var raw RawResponse
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("%w: response is not a JSON object: %v", ErrMalformedResponse, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: response is null", ErrMalformedResponse)
	}
	return raw, nil
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
