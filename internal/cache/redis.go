package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisScanCount = 100

// RedisClient is the subset of the go-redis client RedisBackend uses.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	StrLen(ctx context.Context, key string) *redis.IntCmd
}

// RedisBackend stores values in Redis under a fixed key prefix so that
// clearing the cache never touches keys owned by other applications.
type RedisBackend struct {
	client RedisClient
	prefix string
}

// NewRedisBackend creates a RedisBackend. keyPrefix is prepended to every key,
// e.g. "worksheetgen:".
func NewRedisBackend(client RedisClient, keyPrefix string) *RedisBackend {
	return &RedisBackend{client: client, prefix: keyPrefix}
}

// NewRedisClient parses a redis:// URL and returns a connected client.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// Name implements Backend.
func (r *RedisBackend) Name() string { return "redis" }

// Get implements Backend.
func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, ioError("get", key, err)
	}
	return data, nil
}

// Set implements Backend. Keys expire natively after retention so entries
// that are never read again do not accumulate.
func (r *RedisBackend) Set(ctx context.Context, key string, value []byte, retention time.Duration) error {
	if err := r.client.Set(ctx, r.prefix+key, value, retention).Err(); err != nil {
		return ioError("set", key, err)
	}
	return nil
}

// scan calls fn with each batch of full keys matching prefix.
func (r *RedisBackend) scan(ctx context.Context, prefix string, fn func([]string) error) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+prefix+"*", redisScanCount).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// DeletePrefix implements Backend.
func (r *RedisBackend) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	removed := 0
	err := r.scan(ctx, prefix, func(keys []string) error {
		n, err := r.client.Del(ctx, keys...).Result()
		removed += int(n)
		return err
	})
	if err != nil {
		return removed, ioError("delete", prefix, err)
	}
	return removed, nil
}

// Usage implements Backend.
func (r *RedisBackend) Usage(ctx context.Context, prefix string) (Usage, error) {
	var u Usage
	err := r.scan(ctx, prefix, func(keys []string) error {
		for _, k := range keys {
			n, err := r.client.StrLen(ctx, k).Result()
			if err != nil {
				return err
			}
			u.Keys++
			u.Bytes += n
		}
		return nil
	})
	if err != nil {
		return Usage{}, ioError("scan", prefix, err)
	}
	return u, nil
}
