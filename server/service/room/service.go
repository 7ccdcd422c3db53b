// Package room implements the room membership service and its
// cache-consistency layer.
//
// Every read is cache-aside: check the projection cache, fall back to the
// store of record on miss, then populate. Every write goes to the store
// first and only then touches the cache, invalidating the full key set a
// join or leave can affect (room list, room details, participant list,
// membership flag) as one unit. A partial invalidation of that set is the
// consistency bug class this package exists to prevent.
//
// The cache is allowed to be unavailable: reads degrade to store-only and
// cache write failures are logged, never surfaced. Where an invalidation
// races a concurrent reader's populate, the last writer to the cache wins;
// staleness from a lost race or a failed invalidation is bounded by the
// projection's TTL.
package room

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/hrygo/blubb/internal/profile"
	svcerrors "github.com/hrygo/blubb/internal/errors"
	"github.com/hrygo/blubb/internal/observability"
	"github.com/hrygo/blubb/store"
	"github.com/hrygo/blubb/store/cache"
)

// Default projection TTLs. The participant list churns fastest and carries
// the shortest TTL; the membership flag changes least and carries the
// longest.
const (
	DefaultRoomListTTL     = 180 * time.Second
	DefaultRoomDetailTTL   = 120 * time.Second
	DefaultParticipantsTTL = 60 * time.Second
	DefaultMembershipTTL   = 300 * time.Second
)

// Config holds the projection TTLs.
type Config struct {
	RoomListTTL     time.Duration
	RoomDetailTTL   time.Duration
	ParticipantsTTL time.Duration
	MembershipTTL   time.Duration
}

// DefaultConfig returns the default TTL configuration.
func DefaultConfig() Config {
	return Config{
		RoomListTTL:     DefaultRoomListTTL,
		RoomDetailTTL:   DefaultRoomDetailTTL,
		ParticipantsTTL: DefaultParticipantsTTL,
		MembershipTTL:   DefaultMembershipTTL,
	}
}

// ConfigFromProfile builds the TTL configuration from the profile, filling
// defaults for unset values.
func ConfigFromProfile(p *profile.Profile) Config {
	config := DefaultConfig()
	if p.RoomListTTL > 0 {
		config.RoomListTTL = p.RoomListTTL
	}
	if p.RoomDetailTTL > 0 {
		config.RoomDetailTTL = p.RoomDetailTTL
	}
	if p.ParticipantsTTL > 0 {
		config.ParticipantsTTL = p.ParticipantsTTL
	}
	if p.MembershipTTL > 0 {
		config.MembershipTTL = p.MembershipTTL
	}
	return config
}

// Store is the interface for store operations needed by the room service.
type Store interface {
	CreateRoomWithOwner(ctx context.Context, create *store.Room) (*store.Room, error)
	GetRoom(ctx context.Context, id int32) (*store.Room, error)
	ListRoomsForUser(ctx context.Context, userID int32) ([]*store.Room, error)
	AddRoomParticipant(ctx context.Context, create *store.RoomParticipant) (*store.RoomParticipant, error)
	RemoveRoomParticipant(ctx context.Context, roomID, userID int32) (bool, error)
	ListRoomParticipants(ctx context.Context, roomID int32) ([]*store.RoomParticipantUser, error)
	MembershipExists(ctx context.Context, roomID, userID int32) (bool, error)
}

type service struct {
	store      Store
	cache      cache.Cache
	membership *membershipCache
	config     Config

	// group collapses concurrent miss-path refetches of the same key into
	// a single store query.
	group singleflight.Group
}

// NewService creates a new room service on top of the store of record and
// the projection cache.
func NewService(st Store, c cache.Cache, config Config) Service {
	if config.RoomListTTL <= 0 {
		config.RoomListTTL = DefaultRoomListTTL
	}
	if config.RoomDetailTTL <= 0 {
		config.RoomDetailTTL = DefaultRoomDetailTTL
	}
	if config.ParticipantsTTL <= 0 {
		config.ParticipantsTTL = DefaultParticipantsTTL
	}
	if config.MembershipTTL <= 0 {
		config.MembershipTTL = DefaultMembershipTTL
	}
	return &service{
		store:      st,
		cache:      c,
		membership: newMembershipCache(c, config.MembershipTTL),
		config:     config,
	}
}

// ListRooms implements the cache-aside read of a user's room list.
func (s *service) ListRooms(ctx context.Context, userID int32) ([]*RoomSummary, error) {
	key := cache.UserRoomsKey(userID)
	if data, ok := s.cacheGet(ctx, key); ok {
		var rooms []*RoomSummary
		if err := json.Unmarshal(data, &rooms); err == nil {
			return rooms, nil
		}
		slog.Warn("corrupt room list projection, refetching", "key", key)
	}

	value, err, _ := s.group.Do(key, func() (any, error) {
		return s.refreshRoomList(ctx, userID, false)
	})
	if err != nil {
		return nil, err
	}
	return value.([]*RoomSummary), nil
}

// GetRoom implements the cache-aside read of a room's detail projection.
func (s *service) GetRoom(ctx context.Context, roomID int32) (*RoomSummary, error) {
	key := cache.RoomDetailsKey(roomID)
	if data, ok := s.cacheGet(ctx, key); ok {
		var summary RoomSummary
		if err := json.Unmarshal(data, &summary); err == nil {
			return &summary, nil
		}
		slog.Warn("corrupt room detail projection, refetching", "key", key)
	}

	r, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, svcerrors.StoreFailure("failed to get room", err)
	}
	if r == nil {
		return nil, svcerrors.NotFound("room not found")
	}

	summary := roomSummary(r)
	s.cacheSetJSON(ctx, key, summary, s.config.RoomDetailTTL)
	return summary, nil
}

// ListParticipants resolves membership before anything else: non-members get
// Forbidden without populating or reading the participant projection, so a
// warm cache never leaks data.
func (s *service) ListParticipants(ctx context.Context, userID, roomID int32) ([]*ParticipantSummary, error) {
	state := s.membership.Get(ctx, userID, roomID)
	if state == MembershipUnknown {
		exists, err := s.store.MembershipExists(ctx, roomID, userID)
		if err != nil {
			return nil, svcerrors.StoreFailure("failed to check membership", err)
		}
		s.membership.Set(ctx, userID, roomID, exists)
		if exists {
			state = MembershipMember
		} else {
			state = MembershipNonMember
		}
	}

	if state == MembershipNonMember {
		// Distinguish "no such room" from "not your room".
		r, err := s.store.GetRoom(ctx, roomID)
		if err != nil {
			return nil, svcerrors.StoreFailure("failed to get room", err)
		}
		if r == nil {
			return nil, svcerrors.NotFound("room not found")
		}
		return nil, svcerrors.Forbidden("not a participant of this room")
	}

	key := cache.RoomParticipantsKey(roomID)
	if data, ok := s.cacheGet(ctx, key); ok {
		var participants []*ParticipantSummary
		if err := json.Unmarshal(data, &participants); err == nil {
			return participants, nil
		}
		slog.Warn("corrupt participant list projection, refetching", "key", key)
	}

	value, err, _ := s.group.Do(key, func() (any, error) {
		r, err := s.store.GetRoom(ctx, roomID)
		if err != nil {
			return nil, svcerrors.StoreFailure("failed to get room", err)
		}
		if r == nil {
			return nil, svcerrors.NotFound("room not found")
		}

		list, err := s.store.ListRoomParticipants(ctx, roomID)
		if err != nil {
			return nil, svcerrors.StoreFailure("failed to list room participants", err)
		}

		participants := make([]*ParticipantSummary, 0, len(list))
		for _, p := range list {
			participants = append(participants, &ParticipantSummary{
				ID:       p.User.ID,
				Name:     p.User.Name,
				Email:    p.User.Email,
				JoinedTs: p.JoinedTs,
				IsMuted:  p.IsMuted,
			})
		}

		s.cacheSetJSON(ctx, key, participants, s.config.ParticipantsTTL)
		return participants, nil
	})
	if err != nil {
		return nil, err
	}
	return value.([]*ParticipantSummary), nil
}

// CreateRoom writes to the store first; the cache is only touched after the
// transaction committed. The owner's room list is invalidated rather than
// patched in place, forcing a refetch on the next read.
func (s *service) CreateRoom(ctx context.Context, userID int32, name string, description *string) (*RoomSummary, error) {
	created, err := s.store.CreateRoomWithOwner(ctx, &store.Room{
		UID:         uuid.NewString(),
		Name:        name,
		Description: description,
		CreatorID:   userID,
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, svcerrors.Conflict("room already exists")
		}
		return nil, svcerrors.StoreFailure("failed to create room", err)
	}

	s.membership.Set(ctx, userID, created.ID, true)
	s.cacheDelete(ctx, cache.UserRoomsKey(userID))

	return roomSummary(created), nil
}

// JoinRoom short-circuits on a cached membership flag; only a confirmed
// non-member reaches the store insert, where the unique constraint turns a
// duplicate-insert race into an absorbed already-member outcome.
func (s *service) JoinRoom(ctx context.Context, userID, roomID int32) (bool, error) {
	switch s.membership.Get(ctx, userID, roomID) {
	case MembershipMember:
		return true, nil
	case MembershipUnknown:
		exists, err := s.store.MembershipExists(ctx, roomID, userID)
		if err != nil {
			return false, svcerrors.StoreFailure("failed to check membership", err)
		}
		if exists {
			s.membership.Set(ctx, userID, roomID, true)
			return true, nil
		}
	}

	if err := s.ensureRoomExists(ctx, roomID); err != nil {
		return false, err
	}

	_, err := s.store.AddRoomParticipant(ctx, &store.RoomParticipant{
		RoomID: roomID,
		UserID: userID,
	})
	if err != nil && !errors.Is(err, store.ErrAlreadyExists) {
		// The write did not commit; leave every cache entry untouched.
		return false, svcerrors.StoreFailure("failed to add room participant", err)
	}
	alreadyMember := errors.Is(err, store.ErrAlreadyExists)

	// Invalidation first, repopulation second. The lost-race insert still
	// runs the full set: the winning join may have raced our stale reads.
	s.invalidateRoomSet(ctx, userID, roomID)
	s.membership.Set(ctx, userID, roomID, true)

	return alreadyMember, nil
}

// LeaveRoom trusts a cached false flag enough to skip the store round trip;
// the flag was written by this layer and only ever after a store check.
func (s *service) LeaveRoom(ctx context.Context, userID, roomID int32) error {
	if s.membership.Get(ctx, userID, roomID) == MembershipNonMember {
		return svcerrors.NotMember("not a participant of this room")
	}

	removed, err := s.store.RemoveRoomParticipant(ctx, roomID, userID)
	if err != nil {
		return svcerrors.StoreFailure("failed to remove room participant", err)
	}
	if !removed {
		// The flag was stale or absent; record reality before reporting.
		s.membership.Set(ctx, userID, roomID, false)
		return svcerrors.NotMember("not a participant of this room")
	}

	s.invalidateRoomSet(ctx, userID, roomID)
	s.membership.Set(ctx, userID, roomID, false)
	return nil
}

// Warmup runs the room list miss path unconditionally, also populating the
// membership flag for every returned room.
func (s *service) Warmup(ctx context.Context, userID int32) error {
	_, err, _ := s.group.Do(cache.UserRoomsKey(userID), func() (any, error) {
		return s.refreshRoomList(ctx, userID, true)
	})
	return err
}

// refreshRoomList queries the store for the user's rooms with participant
// counts, populates each room's detail projection as a side effect, then
// populates the list projection itself.
func (s *service) refreshRoomList(ctx context.Context, userID int32, withMembership bool) ([]*RoomSummary, error) {
	list, err := s.store.ListRoomsForUser(ctx, userID)
	if err != nil {
		return nil, svcerrors.StoreFailure("failed to list rooms", err)
	}

	rooms := make([]*RoomSummary, 0, len(list))
	for _, r := range list {
		summary := roomSummary(r)
		rooms = append(rooms, summary)

		s.cacheSetJSON(ctx, cache.RoomDetailsKey(r.ID), summary, s.config.RoomDetailTTL)
		if withMembership {
			s.membership.Set(ctx, userID, r.ID, true)
		}
	}

	s.cacheSetJSON(ctx, cache.UserRoomsKey(userID), rooms, s.config.RoomListTTL)
	return rooms, nil
}

// invalidateRoomSet deletes every projection a join or leave can affect.
// The four keys form one invalidation set: dropping the participant list
// without the membership flag (or vice versa) is exactly the partial
// invalidation this layer must never perform.
func (s *service) invalidateRoomSet(ctx context.Context, userID, roomID int32) {
	s.cacheDelete(ctx, cache.UserRoomsKey(userID))
	s.cacheDelete(ctx, cache.RoomDetailsKey(roomID))
	s.cacheDelete(ctx, cache.RoomParticipantsKey(roomID))
	s.membership.Invalidate(ctx, userID, roomID)
}

// ensureRoomExists checks the detail projection first; any cached detail
// implies the room exists. Only a miss costs a store query.
func (s *service) ensureRoomExists(ctx context.Context, roomID int32) error {
	if _, ok := s.cacheGet(ctx, cache.RoomDetailsKey(roomID)); ok {
		return nil
	}
	r, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return svcerrors.StoreFailure("failed to get room", err)
	}
	if r == nil {
		return svcerrors.NotFound("room not found")
	}
	return nil
}

// cacheGet reads a key, degrading unavailability to a miss.
func (s *service) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("cache unavailable, falling back to store", "key", key, "error", err)
		observability.GlobalCacheMetrics().RecordDegraded()
		return nil, false
	}
	if ok {
		observability.GlobalCacheMetrics().RecordHit()
	} else {
		observability.GlobalCacheMetrics().RecordMiss()
	}
	return data, ok
}

// cacheSetJSON best-effort populates a projection. The store of record
// remains authoritative when a populate fails.
func (s *service) cacheSetJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		slog.Warn("failed to marshal projection", "key", key, "error", err)
		return
	}
	if err := s.cache.Set(ctx, key, data, ttl); err != nil {
		slog.Warn("failed to populate cache", "key", key, "error", err)
	}
}

// cacheDelete best-effort invalidates a key. A failed invalidation leaves a
// stale entry whose lifetime is bounded by its TTL.
func (s *service) cacheDelete(ctx context.Context, key string) {
	observability.GlobalCacheMetrics().RecordInvalidation()
	if err := s.cache.Delete(ctx, key); err != nil {
		slog.Warn("failed to invalidate cache key", "key", key, "error", err)
	}
}

func roomSummary(r *store.Room) *RoomSummary {
	return &RoomSummary{
		ID:                r.ID,
		UID:               r.UID,
		Name:              r.Name,
		Description:       r.Description,
		CreatedBy:         r.CreatorID,
		CreatedTs:         r.CreatedTs,
		ParticipantsCount: r.ParticipantCount,
	}
}
