package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/phrazzld/worksheetgen/internal/domain"
	"github.com/phrazzld/worksheetgen/internal/fingerprint"
)

// DefaultTTL is how long a task entry stays valid.
const DefaultTTL = 24 * time.Hour

const (
	tasksNamespace = "tasks:"
	previewLength  = 100
)

// Scope selects what Clear removes.
type Scope string

// Clear scopes
const (
	// ScopeAll removes every key in the backend, in every namespace.
	ScopeAll Scope = "all"
	// ScopeTasksOnly removes only task entries.
	ScopeTasksOnly Scope = "tasks"
)

// ParseScope converts a scope name into a Scope. An empty name means ScopeAll.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case "", ScopeAll:
		return ScopeAll, nil
	case ScopeTasksOnly:
		return ScopeTasksOnly, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidScope, s)
	}
}

// Entry is the persisted form of a cached task set.
type Entry struct {
	TextHash    string              `json:"text_hash"`
	NumTasks    int                 `json:"num_tasks"`
	Tasks       []domain.TaskRecord `json:"tasks"`
	CachedAt    time.Time           `json:"cached_at"`
	TextPreview string              `json:"text_preview"`
}

// NewEntry builds an Entry for tasks generated from text at count.
// CachedAt is stamped by GenerationCache.Store.
func NewEntry(text string, count int, tasks []domain.TaskRecord) Entry {
	return Entry{
		TextHash:    fingerprint.TextHash(text),
		NumTasks:    count,
		Tasks:       tasks,
		TextPreview: preview(text),
	}
}

// Fingerprint returns the key the entry is stored under.
func (e Entry) Fingerprint() fingerprint.Fingerprint {
	return fingerprint.Fingerprint(e.TextHash + "_" + strconv.Itoa(e.NumTasks))
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLength {
		return text
	}
	return string(runes[:previewLength]) + "..."
}

// IsExpired reports whether an entry cached at cachedAt has outlived ttl at
// now. An entry whose age equals ttl exactly is still valid.
func IsExpired(cachedAt, now time.Time, ttl time.Duration) bool {
	return now.Sub(cachedAt) > ttl
}

// Stats summarizes cache contents for operators.
type Stats struct {
	Backend              string  `json:"backend"`
	EntryCount           int     `json:"entry_count"`
	TasksCached          int     `json:"tasks_cached"`
	ApproximateSizeBytes int64   `json:"approximate_size_bytes"`
	ApproximateSizeMB    float64 `json:"approximate_size_mb"`
}

// Option configures a GenerationCache.
type Option func(*GenerationCache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *GenerationCache) { c.now = now }
}

// GenerationCache maps fingerprints to validated task sets with a TTL.
// It is safe for concurrent use if its Backend is.
type GenerationCache struct {
	backend Backend
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// New creates a GenerationCache over backend. A non-positive ttl uses DefaultTTL.
func New(backend Backend, ttl time.Duration, logger *slog.Logger, opts ...Option) (*GenerationCache, error) {
	if backend == nil {
		return nil, errors.New("cache backend cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &GenerationCache{
		backend: backend,
		ttl:     ttl,
		now:     time.Now,
		logger: logger.With(
			slog.String("component", "generation_cache"),
			slog.String("backend", backend.Name()),
		),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TTL returns the configured entry lifetime.
func (c *GenerationCache) TTL() time.Duration { return c.ttl }

func taskKey(fp fingerprint.Fingerprint) string {
	return tasksNamespace + string(fp)
}

// Lookup returns the entry stored for fp. The boolean is false on a miss,
// including when the stored entry has expired. Backend and decode failures
// are returned wrapped with ErrCacheIO.
func (c *GenerationCache) Lookup(ctx context.Context, fp fingerprint.Fingerprint) (*Entry, bool, error) {
	key := taskKey(fp)
	data, err := c.backend.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		c.logger.DebugContext(ctx, "cache miss", slog.String("fingerprint", fp.String()))
		return nil, false, nil
	}
	if err != nil {
		if !errors.Is(err, ErrCacheIO) {
			err = ioError("get", key, err)
		}
		return nil, false, err
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false, ioError("decode", key, err)
	}

	if IsExpired(entry.CachedAt, c.now(), c.ttl) {
		c.logger.DebugContext(ctx, "cache entry expired",
			slog.String("fingerprint", fp.String()),
			slog.Time("cached_at", entry.CachedAt))
		return nil, false, nil
	}

	c.logger.InfoContext(ctx, "retrieved tasks from cache",
		slog.String("fingerprint", fp.String()),
		slog.Int("task_count", len(entry.Tasks)))
	return &entry, true, nil
}

// Store writes entry under its fingerprint, replacing any previous entry.
// CachedAt is set to the current time.
func (c *GenerationCache) Store(ctx context.Context, entry Entry) error {
	entry.CachedAt = c.now().UTC()
	key := taskKey(entry.Fingerprint())

	data, err := json.Marshal(entry)
	if err != nil {
		return ioError("encode", key, err)
	}
	if err := c.backend.Set(ctx, key, data, c.ttl); err != nil {
		if !errors.Is(err, ErrCacheIO) {
			err = ioError("set", key, err)
		}
		return err
	}

	c.logger.InfoContext(ctx, "cached tasks",
		slog.String("fingerprint", entry.Fingerprint().String()),
		slog.Int("task_count", len(entry.Tasks)))
	return nil
}

// Clear removes entries in scope and returns how many keys were deleted.
func (c *GenerationCache) Clear(ctx context.Context, scope Scope) (int, error) {
	var prefix string
	switch scope {
	case ScopeAll:
		prefix = ""
	case ScopeTasksOnly:
		prefix = tasksNamespace
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidScope, scope)
	}

	n, err := c.backend.DeletePrefix(ctx, prefix)
	if err != nil {
		if !errors.Is(err, ErrCacheIO) {
			err = ioError("clear", prefix, err)
		}
		return n, err
	}
	c.logger.InfoContext(ctx, "cleared cache", slog.String("scope", string(scope)), slog.Int("removed", n))
	return n, nil
}

// Stats reports entry counts and stored size. Expired entries that have not
// been cleared yet are included.
func (c *GenerationCache) Stats(ctx context.Context) (Stats, error) {
	all, err := c.backend.Usage(ctx, "")
	if err != nil {
		return Stats{}, err
	}
	tasks, err := c.backend.Usage(ctx, tasksNamespace)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Backend:              c.backend.Name(),
		EntryCount:           all.Keys,
		TasksCached:          tasks.Keys,
		ApproximateSizeBytes: all.Bytes,
		ApproximateSizeMB:    math.Round(float64(all.Bytes)/(1<<20)*100) / 100,
	}, nil
}
