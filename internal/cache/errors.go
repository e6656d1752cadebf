package cache

import (
	"errors"
	"fmt"
)

var (
	// ErrCacheIO wraps any read, write or decode failure against a backend.
	ErrCacheIO = errors.New("cache I/O error")

	// ErrNotFound is returned by Backend.Get when the key does not exist.
	ErrNotFound = errors.New("cache key not found")

	// ErrInvalidKey is returned for keys a backend cannot represent.
	ErrInvalidKey = errors.New("invalid cache key")

	// ErrInvalidScope is returned by ParseScope for unknown scope names.
	ErrInvalidScope = errors.New("invalid cache clear scope")
)

func ioError(op, key string, err error) error {
	if key == "" {
		return fmt.Errorf("%w: %s: %w", ErrCacheIO, op, err)
	}
	return fmt.Errorf("%w: %s %s: %w", ErrCacheIO, op, key, err)
}
