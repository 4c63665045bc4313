// Package cache provides the shared cache used for tokenization locks,
// rate counters and issued-symbol markers, with Redis and Memcached
// backends.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrCacheMiss is returned by Get when the key does not exist.
var ErrCacheMiss = errors.New("cache: miss")

// Cache is the atomic key/value surface shared across instances.
type Cache interface {
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, key string) error
	// DelIfValue deletes key only while it still holds value.
	DelIfValue(ctx context.Context, key, value string) (bool, error)
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Ping(ctx context.Context) error
	Close() error
}

// Backend names accepted by New.
const (
	BackendRedis    = "redis"
	BackendMemcache = "memcache"
)

// Options selects and configures a backend.
type Options struct {
	Backend       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	MemcacheAddrs []string
}

// New builds the configured backend.
func New(opts Options) (Cache, error) {
	switch opts.Backend {
	case "", BackendRedis:
		if opts.RedisAddr == "" {
			return nil, fmt.Errorf("cache: redis address is required")
		}
		return NewRedisCache(opts.RedisAddr, opts.RedisPassword, opts.RedisDB), nil
	case BackendMemcache:
		mc, err := NewMemcacheCache(0, opts.MemcacheAddrs...)
		if err != nil {
			return nil, err
		}
		return mc, nil
	}
	return nil, fmt.Errorf("cache: unknown backend %q", opts.Backend)
}
