package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MemoryBackend keeps values in a bounded in-process LRU. Contents do not
// survive a restart.
type MemoryBackend struct {
	entries *lru.Cache[string, []byte]
}

// NewMemoryBackend creates a MemoryBackend holding at most size keys.
func NewMemoryBackend(size int) (*MemoryBackend, error) {
	if size <= 0 {
		return nil, fmt.Errorf("memory cache size must be positive, got %d", size)
	}
	entries, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru cache: %w", err)
	}
	return &MemoryBackend{entries: entries}, nil
}

// Name implements Backend.
func (m *MemoryBackend) Name() string { return "memory" }

// Get implements Backend.
func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.entries.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Set implements Backend. The retention hint is ignored.
func (m *MemoryBackend) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	m.entries.Add(key, stored)
	return nil
}

// DeletePrefix implements Backend.
func (m *MemoryBackend) DeletePrefix(_ context.Context, prefix string) (int, error) {
	removed := 0
	for _, key := range m.entries.Keys() {
		if strings.HasPrefix(key, prefix) && m.entries.Remove(key) {
			removed++
		}
	}
	return removed, nil
}

// Usage implements Backend.
func (m *MemoryBackend) Usage(_ context.Context, prefix string) (Usage, error) {
	var u Usage
	for _, key := range m.entries.Keys() {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if v, ok := m.entries.Peek(key); ok {
			u.Keys++
			u.Bytes += int64(len(v))
		}
	}
	return u, nil
}
