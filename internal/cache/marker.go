package cache

import (
	"context"
	"errors"
	"time"
)

const (
	issuedPrefix = "tokenize:issued:"

	// IssuedMarkerTTL bounds how long a marker shadows the store.
	IssuedMarkerTTL = 90 * 24 * time.Hour
)

// IssuedMarkers record symbols that were issued on the ledger, so the
// duplicate check still holds while their rows are missing from the store.
type IssuedMarkers struct {
	cache Cache
}

// NewIssuedMarkers returns markers stored in c.
func NewIssuedMarkers(c Cache) *IssuedMarkers {
	return &IssuedMarkers{cache: c}
}

// Mark records that symbol was issued by txHash. An existing marker wins.
func (m *IssuedMarkers) Mark(ctx context.Context, symbol, txHash string) error {
	_, err := m.cache.SetIfAbsent(ctx, issuedPrefix+symbol, txHash, IssuedMarkerTTL)
	return err
}

// IssuedBy returns the transaction hash recorded for symbol.
func (m *IssuedMarkers) IssuedBy(ctx context.Context, symbol string) (string, bool, error) {
	hash, err := m.cache.Get(ctx, issuedPrefix+symbol)
	if errors.Is(err, ErrCacheMiss) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return hash, true, nil
}

// Clear removes the marker for symbol.
func (m *IssuedMarkers) Clear(ctx context.Context, symbol string) error {
	return m.cache.Del(ctx, issuedPrefix+symbol)
}
