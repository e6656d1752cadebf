package cache

import (
	"context"
	"time"
)

// Backend is a key to bytes store. Keys have the form "<namespace>:<name>".
type Backend interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	// retention is a hint for how long the bytes must survive; backends
	// without native expiry ignore it.
	Set(ctx context.Context, key string, value []byte, retention time.Duration) error

	// DeletePrefix removes every key starting with prefix and returns how
	// many were removed. An empty prefix removes everything the backend owns.
	DeletePrefix(ctx context.Context, prefix string) (int, error)

	// Usage reports the number of keys starting with prefix and the total
	// size of their values in bytes.
	Usage(ctx context.Context, prefix string) (Usage, error)

	// Name identifies the backend in stats and logs.
	Name() string
}

// Usage is a backend's key count and stored size for a prefix.
type Usage struct {
	Keys  int
	Bytes int64
}
