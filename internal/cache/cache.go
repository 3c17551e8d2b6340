package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrCacheMiss is returned when the key is absent. Callers fall through to
// the store and repopulate.
var ErrCacheMiss = errors.New("cache miss")

// Cache stores serialized history pages under TTL keys. Misses and cache
// failures are equivalent to the caller; the store is always authoritative.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// PageKey builds the cache key for one history page.
func PageKey(prefix, channelID, cursor string, limit int, direction string) string {
	if cursor == "" {
		cursor = "latest"
	}
	return fmt.Sprintf("%s:%s:%s:%d:%s", prefix, channelID, cursor, limit, direction)
}

// NoopCache is used when Redis is disabled; every read is a miss.
type NoopCache struct{}

func (NoopCache) Get(ctx context.Context, key string) ([]byte, error) { return nil, ErrCacheMiss }
func (NoopCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}
func (NoopCache) Delete(ctx context.Context, key string) error { return nil }
func (NoopCache) Close() error                                 { return nil }
