package room

import (
	"context"
	"log/slog"
	"time"

	"github.com/hrygo/blubb/store/cache"
)

// MembershipState is the tri-state value of a cached membership flag.
type MembershipState int

const (
	// MembershipUnknown means the flag is absent or the cache is
	// unavailable; callers must recheck against the store.
	MembershipUnknown MembershipState = iota
	MembershipMember
	MembershipNonMember
)

// Cached flag payloads. Single bytes keep the flag cheap to read on the hot
// path; membership is checked far more often than lists are rendered.
var (
	membershipTrue  = []byte("1")
	membershipFalse = []byte("0")
)

// membershipCache caches the per-(user, room) membership flag with its own
// TTL, independent of the list projections. A cached true must correspond to
// an existing participant fact at the moment it was written; staleness is
// bounded by the TTL.
type membershipCache struct {
	cache cache.Cache
	ttl   time.Duration
}

func newMembershipCache(c cache.Cache, ttl time.Duration) *membershipCache {
	return &membershipCache{cache: c, ttl: ttl}
}

// Get returns the cached membership state. Cache unavailability and corrupt
// payloads both degrade to MembershipUnknown.
func (m *membershipCache) Get(ctx context.Context, userID, roomID int32) MembershipState {
	key := cache.MembershipKey(userID, roomID)
	value, ok, err := m.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("membership cache unavailable, treating as unknown", "key", key, "error", err)
		return MembershipUnknown
	}
	if !ok {
		return MembershipUnknown
	}
	switch string(value) {
	case string(membershipTrue):
		return MembershipMember
	case string(membershipFalse):
		return MembershipNonMember
	default:
		slog.Warn("corrupt membership flag, treating as unknown", "key", key)
		return MembershipUnknown
	}
}

// Set writes the membership flag, resetting its TTL. Failures are logged and
// swallowed: the store of record stays authoritative.
func (m *membershipCache) Set(ctx context.Context, userID, roomID int32, isMember bool) {
	key := cache.MembershipKey(userID, roomID)
	value := membershipFalse
	if isMember {
		value = membershipTrue
	}
	if err := m.cache.Set(ctx, key, value, m.ttl); err != nil {
		slog.Warn("failed to cache membership flag", "key", key, "error", err)
	}
}

// Invalidate deletes the membership flag. Idempotent; failures are logged
// and swallowed.
func (m *membershipCache) Invalidate(ctx context.Context, userID, roomID int32) {
	key := cache.MembershipKey(userID, roomID)
	if err := m.cache.Delete(ctx, key); err != nil {
		slog.Warn("failed to invalidate membership flag", "key", key, "error", err)
	}
}
