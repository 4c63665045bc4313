package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// memcacheClient is the subset of *memcache.Client used here.
type memcacheClient interface {
	Add(item *memcache.Item) error
	Get(key string) (*memcache.Item, error)
	Delete(key string) error
	Increment(key string, delta uint64) (uint64, error)
	Touch(key string, seconds int32) error
	Ping() error
}

// MemcacheCache implements Cache on Memcached. Memcached has no
// conditional delete, so DelIfValue is a read followed by a delete.
type MemcacheCache struct {
	client memcacheClient
	now    func() time.Time
}

// NewMemcacheCache connects to the given servers.
func NewMemcacheCache(maxIdleConns int, addrs ...string) (*MemcacheCache, error) {
	trimmed := make([]string, 0, len(addrs))
	for _, a := range addrs {
		a = strings.TrimSpace(a)
		a = strings.TrimPrefix(a, "memcache://")
		if a != "" {
			trimmed = append(trimmed, a)
		}
	}
	if len(trimmed) == 0 {
		return nil, errors.New("cache: at least one memcache address is required")
	}
	c := memcache.New(trimmed...)
	if maxIdleConns > 0 {
		c.MaxIdleConns = maxIdleConns
	}
	return &MemcacheCache{client: c, now: time.Now}, nil
}

// NewMemcacheCacheWithClient is intended for tests.
func NewMemcacheCacheWithClient(c memcacheClient) *MemcacheCache {
	return &MemcacheCache{client: c, now: time.Now}
}

// maxRelativeExpiration is the longest expiration Memcached reads as a
// relative number of seconds. Larger values are absolute Unix times.
const maxRelativeExpiration = 30 * 24 * time.Hour

// expiration converts ttl to Memcached's expiration field.
func (m *MemcacheCache) expiration(ttl time.Duration) int32 {
	switch {
	case ttl <= 0:
		return 0
	case ttl < time.Second:
		return 1
	case ttl > maxRelativeExpiration:
		return int32(m.now().Add(ttl).Unix())
	}
	return int32(ttl / time.Second)
}

func (m *MemcacheCache) SetIfAbsent(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	err := m.client.Add(&memcache.Item{Key: key, Value: []byte(value), Expiration: m.expiration(ttl)})
	if errors.Is(err, memcache.ErrNotStored) {
		return false, nil
	}
	return err == nil, err
}

func (m *MemcacheCache) Get(_ context.Context, key string) (string, error) {
	item, err := m.client.Get(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return "", ErrCacheMiss
	}
	if err != nil {
		return "", err
	}
	// Incremented values can carry trailing padding.
	return strings.TrimSpace(string(item.Value)), nil
}

func (m *MemcacheCache) Del(_ context.Context, key string) error {
	err := m.client.Delete(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil
	}
	return err
}

func (m *MemcacheCache) DelIfValue(ctx context.Context, key, value string) (bool, error) {
	current, err := m.Get(ctx, key)
	if errors.Is(err, ErrCacheMiss) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if current != value {
		return false, nil
	}
	return true, m.Del(ctx, key)
}

func (m *MemcacheCache) Incr(_ context.Context, key string) (int64, error) {
	for attempt := 0; attempt < 2; attempt++ {
		n, err := m.client.Increment(key, 1)
		if err == nil {
			return int64(n), nil
		}
		if !errors.Is(err, memcache.ErrCacheMiss) {
			return 0, err
		}
		err = m.client.Add(&memcache.Item{Key: key, Value: []byte("1")})
		if err == nil {
			return 1, nil
		}
		if !errors.Is(err, memcache.ErrNotStored) {
			return 0, err
		}
		// Lost the race to create the counter, increment it instead.
	}
	return 0, errors.New("cache: counter kept disappearing")
}

func (m *MemcacheCache) Expire(_ context.Context, key string, ttl time.Duration) error {
	return m.client.Touch(key, m.expiration(ttl))
}

func (m *MemcacheCache) Ping(_ context.Context) error {
	return m.client.Ping()
}

func (m *MemcacheCache) Close() error {
	return nil
}
