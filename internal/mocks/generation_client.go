package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/worksheetgen/internal/generation"
)

// MockGenerationClient implements generation.Client for testing.
type MockGenerationClient struct {
	// GenerateFn overrides the canned behaviour when set.
	GenerateFn func(ctx context.Context, text string, count int) (generation.RawResponse, error)

	// Response is the raw model reply returned by default.
	Response string
	Err      error

	// Gate, when set, blocks every call until it is closed or the call's
	// context ends.
	Gate chan struct{}
	// Started receives a value, without blocking, as each call begins.
	Started chan struct{}

	mu     sync.Mutex
	texts  []string
	counts []int
}

var _ generation.Client = (*MockGenerationClient)(nil)

// Generate implements generation.Client.
func (m *MockGenerationClient) Generate(ctx context.Context, text string, count int) (generation.RawResponse, error) {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.counts = append(m.counts, count)
	m.mu.Unlock()

	if m.Started != nil {
		select {
		case m.Started <- struct{}{}:
		default:
		}
	}
	if m.Gate != nil {
		select {
		case <-m.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.GenerateFn != nil {
		return m.GenerateFn(ctx, text, count)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return generation.DecodeRawResponse(m.Response)
}

// Calls returns the number of Generate calls so far.
func (m *MockGenerationClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.texts)
}

// Texts returns the source texts passed to Generate, in call order.
func (m *MockGenerationClient) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

// Counts returns the task counts passed to Generate, in call order.
func (m *MockGenerationClient) Counts() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.counts...)
}
