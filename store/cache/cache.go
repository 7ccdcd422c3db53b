// Package cache provides the side-cache in front of the store of record.
//
// The cache is never authoritative: every value it holds is a serialized
// projection of store data with a TTL. Callers treat any cache error as a
// miss on reads and as a logged, non-fatal condition on writes, so an
// unavailable cache degrades the system to store-only operation instead of
// failing requests.
package cache

import (
	"context"
	"time"
)

// Cache is a byte store with per-key TTLs.
//
// Get returns (value, true, nil) on hit and (nil, false, nil) on a missing
// or expired key; a non-nil error means the cache itself is unavailable.
// Set overwrites unconditionally and resets the TTL. Delete is idempotent:
// deleting an absent key succeeds silently.
//
// Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
