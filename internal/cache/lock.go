package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rwatoken/internal/domain"
	"rwatoken/internal/metrics"
	"rwatoken/internal/uuid"
)

const lockPrefix = "tokenize:lock:"

// LockKey is the cache key guarding one (symbol, wallet) pair.
func LockKey(symbol, wallet string) string {
	return lockPrefix + symbol + ":" + wallet
}

var errUnreadableLease = errors.New("unreadable lease")

// BusyError is returned when another operation holds the lock.
type BusyError struct {
	Key         string
	OperationID string
	StartedAt   time.Time
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("lock %s held by operation %s", e.Key, e.OperationID)
}

// Lease is a held lock.
type Lease struct {
	Operation domain.TokenizationOperation
	key       string
	value     string
}

// Key returns the cache key of the lease.
func (l *Lease) Key() string { return l.key }

// Locker hands out at most one lease per key across all instances.
type Locker struct {
	cache Cache
	now   func() time.Time
}

// NewLocker returns a Locker storing leases in c.
func NewLocker(c Cache) *Locker {
	return &Locker{cache: c, now: time.Now}
}

// TryAcquire takes the lock for (symbol, wallet) for at most ttl. When
// the key is held it returns a *BusyError naming the holder.
func (l *Locker) TryAcquire(ctx context.Context, symbol, wallet string, ttl time.Duration) (*Lease, error) {
	key := LockKey(symbol, wallet)
	op := domain.TokenizationOperation{
		OperationID: uuid.New(),
		Symbol:      symbol,
		Wallet:      wallet,
		Status:      domain.OperationInProgress,
		StartedAt:   l.now().UTC(),
		TTL:         ttl,
	}
	raw, err := json.Marshal(op)
	if err != nil {
		return nil, fmt.Errorf("encoding lease: %w", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		ok, err := l.cache.SetIfAbsent(ctx, key, string(raw), ttl)
		if err != nil {
			return nil, fmt.Errorf("acquiring %s: %w", key, err)
		}
		if ok {
			return &Lease{Operation: op, key: key, value: string(raw)}, nil
		}

		held, err := l.Holder(ctx, symbol, wallet)
		if errors.Is(err, ErrCacheMiss) {
			// Expired or released between the two calls.
			continue
		}
		if err != nil && !errors.Is(err, errUnreadableLease) {
			return nil, fmt.Errorf("reading %s: %w", key, err)
		}
		metrics.LockConflicts.Inc()
		busy := &BusyError{Key: key}
		if held != nil {
			busy.OperationID = held.OperationID
			busy.StartedAt = held.StartedAt
		}
		return nil, busy
	}
	return nil, &BusyError{Key: key}
}

// Release drops the lease. A lease that already expired and was taken
// over by another operation is left alone.
func (l *Locker) Release(ctx context.Context, lease *Lease) error {
	if lease == nil {
		return nil
	}
	if _, err := l.cache.DelIfValue(ctx, lease.key, lease.value); err != nil {
		return fmt.Errorf("releasing %s: %w", lease.key, err)
	}
	return nil
}

// Holder returns the operation currently holding (symbol, wallet). It
// returns ErrCacheMiss when the key is free.
func (l *Locker) Holder(ctx context.Context, symbol, wallet string) (*domain.TokenizationOperation, error) {
	raw, err := l.cache.Get(ctx, LockKey(symbol, wallet))
	if err != nil {
		return nil, err
	}
	var op domain.TokenizationOperation
	if err := json.Unmarshal([]byte(raw), &op); err != nil {
		return nil, fmt.Errorf("%w: %v", errUnreadableLease, err)
	}
	return &op, nil
}
