package room

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	svcerrors "github.com/hrygo/blubb/internal/errors"
	"github.com/hrygo/blubb/store"
	"github.com/hrygo/blubb/store/cache"
)

// fakeStore is an in-memory Store with per-method call counters and error
// injection.
type fakeStore struct {
	mu sync.Mutex

	rooms        map[int32]*store.Room
	participants map[int32]map[int32]*store.RoomParticipant
	users        map[int32]*store.User

	nextRoomID        int32
	nextParticipantID int32

	failAll error

	listRoomsCalls        int
	getRoomCalls          int
	listParticipantsCalls int
	membershipCalls       int
	addParticipantCalls   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rooms:        map[int32]*store.Room{},
		participants: map[int32]map[int32]*store.RoomParticipant{},
		users:        map[int32]*store.User{},
	}
}

func (f *fakeStore) addUser(id int32, name, email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[id] = &store.User{ID: id, Name: name, Email: email}
}

func (f *fakeStore) CreateRoomWithOwner(ctx context.Context, create *store.Room) (*store.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	f.nextRoomID++
	r := &store.Room{
		ID:               f.nextRoomID,
		UID:              create.UID,
		Name:             create.Name,
		Description:      create.Description,
		CreatorID:        create.CreatorID,
		CreatedTs:        time.Now().Unix(),
		ParticipantCount: 1,
	}
	f.rooms[r.ID] = r
	f.nextParticipantID++
	f.participants[r.ID] = map[int32]*store.RoomParticipant{
		create.CreatorID: {
			ID:       f.nextParticipantID,
			RoomID:   r.ID,
			UserID:   create.CreatorID,
			JoinedTs: r.CreatedTs,
		},
	}
	return r, nil
}

func (f *fakeStore) GetRoom(ctx context.Context, id int32) (*store.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getRoomCalls++
	if f.failAll != nil {
		return nil, f.failAll
	}
	r, ok := f.rooms[id]
	if !ok {
		return nil, nil
	}
	copied := *r
	copied.ParticipantCount = len(f.participants[id])
	return &copied, nil
}

func (f *fakeStore) ListRoomsForUser(ctx context.Context, userID int32) ([]*store.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listRoomsCalls++
	if f.failAll != nil {
		return nil, f.failAll
	}
	var list []*store.Room
	for id, members := range f.participants {
		if _, ok := members[userID]; ok {
			copied := *f.rooms[id]
			copied.ParticipantCount = len(members)
			list = append(list, &copied)
		}
	}
	return list, nil
}

func (f *fakeStore) AddRoomParticipant(ctx context.Context, create *store.RoomParticipant) (*store.RoomParticipant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addParticipantCalls++
	if f.failAll != nil {
		return nil, f.failAll
	}
	members, ok := f.participants[create.RoomID]
	if !ok {
		return nil, fmt.Errorf("room %d does not exist", create.RoomID)
	}
	if _, ok := members[create.UserID]; ok {
		return nil, store.ErrAlreadyExists
	}
	f.nextParticipantID++
	p := &store.RoomParticipant{
		ID:       f.nextParticipantID,
		RoomID:   create.RoomID,
		UserID:   create.UserID,
		JoinedTs: time.Now().Unix(),
	}
	members[create.UserID] = p
	return p, nil
}

func (f *fakeStore) RemoveRoomParticipant(ctx context.Context, roomID, userID int32) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return false, f.failAll
	}
	members, ok := f.participants[roomID]
	if !ok {
		return false, nil
	}
	if _, ok := members[userID]; !ok {
		return false, nil
	}
	delete(members, userID)
	return true, nil
}

func (f *fakeStore) ListRoomParticipants(ctx context.Context, roomID int32) ([]*store.RoomParticipantUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listParticipantsCalls++
	if f.failAll != nil {
		return nil, f.failAll
	}
	var list []*store.RoomParticipantUser
	for userID, p := range f.participants[roomID] {
		u := f.users[userID]
		if u == nil {
			u = &store.User{ID: userID}
		}
		list = append(list, &store.RoomParticipantUser{RoomParticipant: *p, User: u})
	}
	return list, nil
}

func (f *fakeStore) MembershipExists(ctx context.Context, roomID, userID int32) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.membershipCalls++
	if f.failAll != nil {
		return false, f.failAll
	}
	members, ok := f.participants[roomID]
	if !ok {
		return false, nil
	}
	_, ok = members[userID]
	return ok, nil
}

// brokenCache fails every operation, simulating an unreachable cache.
type brokenCache struct{}

func (brokenCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}
func (brokenCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.New("connection refused")
}
func (brokenCache) Delete(ctx context.Context, key string) error {
	return errors.New("connection refused")
}
func (brokenCache) Close() error { return nil }

// recordingCache wraps a real cache and records every deleted key.
type recordingCache struct {
	cache.Cache

	mu      sync.Mutex
	deleted []string
}

func (r *recordingCache) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	r.deleted = append(r.deleted, key)
	r.mu.Unlock()
	return r.Cache.Delete(ctx, key)
}

func (r *recordingCache) deletedKeys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.deleted...)
}

func newTestService(t *testing.T) (Service, *fakeStore, *cache.MemoryCache) {
	t.Helper()
	st := newFakeStore()
	c := cache.NewMemory(cache.Config{DefaultTTL: time.Minute})
	t.Cleanup(func() { _ = c.Close() })
	return NewService(st, c, DefaultConfig()), st, c
}

func TestCreateRoomReadAfterWrite(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	// Warm the (empty) list projection first so a stale hit would show.
	rooms, err := svc.ListRooms(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, rooms)

	created, err := svc.CreateRoom(ctx, 1, "general", nil)
	require.NoError(t, err)
	assert.Equal(t, "general", created.Name)
	assert.Equal(t, int32(1), created.CreatedBy)
	assert.Equal(t, 1, created.ParticipantsCount)
	assert.NotEmpty(t, created.UID)

	rooms, err = svc.ListRooms(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, created.ID, rooms[0].ID)
}

func TestCreateRoomOwnerIsMember(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	created, err := svc.CreateRoom(ctx, 1, "general", nil)
	require.NoError(t, err)

	participants, err := svc.ListParticipants(ctx, 1, created.ID)
	require.NoError(t, err)
	require.Len(t, participants, 1)
	assert.Equal(t, int32(1), participants[0].ID)
}

func TestListRoomsCacheHitSkipsStore(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := newTestService(t)

	_, err := svc.CreateRoom(ctx, 1, "general", nil)
	require.NoError(t, err)

	_, err = svc.ListRooms(ctx, 1)
	require.NoError(t, err)
	calls := st.listRoomsCalls

	_, err = svc.ListRooms(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, calls, st.listRoomsCalls)
}

func TestListRoomsPopulatesRoomDetails(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := newTestService(t)

	created, err := svc.CreateRoom(ctx, 1, "general", nil)
	require.NoError(t, err)

	_, err = svc.ListRooms(ctx, 1)
	require.NoError(t, err)
	calls := st.getRoomCalls

	// The list refresh side-populated the detail projection.
	detail, err := svc.GetRoom(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, detail.ID)
	assert.Equal(t, calls, st.getRoomCalls)
}

func TestGetRoomNotFound(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, err := svc.GetRoom(ctx, 42)
	require.Error(t, err)
	assert.True(t, svcerrors.IsCode(err, svcerrors.ErrCodeNotFound))
}

func TestJoinRoomInvalidatesAllProjections(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	st.addUser(1, "alice", "alice@example.com")
	st.addUser(2, "bob", "bob@example.com")
	mem := cache.NewMemory(cache.Config{DefaultTTL: time.Minute})
	t.Cleanup(func() { _ = mem.Close() })
	rec := &recordingCache{Cache: mem}
	svc := NewService(st, rec, DefaultConfig())

	created, err := svc.CreateRoom(ctx, 1, "general", nil)
	require.NoError(t, err)

	// Warm every projection the join must invalidate.
	_, err = svc.ListRooms(ctx, 2)
	require.NoError(t, err)
	_, err = svc.GetRoom(ctx, created.ID)
	require.NoError(t, err)
	_, err = svc.ListParticipants(ctx, 1, created.ID)
	require.NoError(t, err)

	alreadyMember, err := svc.JoinRoom(ctx, 2, created.ID)
	require.NoError(t, err)
	assert.False(t, alreadyMember)

	deleted := rec.deletedKeys()
	assert.Contains(t, deleted, cache.UserRoomsKey(2))
	assert.Contains(t, deleted, cache.RoomDetailsKey(created.ID))
	assert.Contains(t, deleted, cache.RoomParticipantsKey(created.ID))

	// The participant list read by a member now reflects the join.
	participants, err := svc.ListParticipants(ctx, 1, created.ID)
	require.NoError(t, err)
	assert.Len(t, participants, 2)
}

func TestJoinRoomAlreadyMemberShortCircuits(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := newTestService(t)

	created, err := svc.CreateRoom(ctx, 1, "general", nil)
	require.NoError(t, err)

	alreadyMember, err := svc.JoinRoom(ctx, 1, created.ID)
	require.NoError(t, err)
	assert.True(t, alreadyMember)
	// Create cached the owner's membership flag; the join never hit the
	// participant table.
	assert.Equal(t, 0, st.addParticipantCalls)
}

func TestJoinRoomNotFound(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, err := svc.JoinRoom(ctx, 1, 42)
	require.Error(t, err)
	assert.True(t, svcerrors.IsCode(err, svcerrors.ErrCodeNotFound))
}

func TestJoinRoomAbsorbsDuplicateInsertRace(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	mem := cache.NewMemory(cache.Config{DefaultTTL: time.Minute})
	t.Cleanup(func() { _ = mem.Close() })
	svc := NewService(st, mem, DefaultConfig())

	created, err := svc.CreateRoom(ctx, 1, "general", nil)
	require.NoError(t, err)

	// Insert behind the service's back, as a racing request would after
	// this one's membership check.
	_, err = st.AddRoomParticipant(ctx, &store.RoomParticipant{RoomID: created.ID, UserID: 2})
	require.NoError(t, err)

	// The membership flag is unset, the store check below is skipped by
	// pre-seeding the flag to false, so the service proceeds to insert
	// and loses the race.
	require.NoError(t, mem.Set(ctx, cache.MembershipKey(2, created.ID), []byte("0"), time.Minute))

	alreadyMember, err := svc.JoinRoom(ctx, 2, created.ID)
	require.NoError(t, err)
	assert.True(t, alreadyMember)
}

func TestJoinRoomStoreFailureLeavesCacheUntouched(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	st.addUser(1, "alice", "alice@example.com")
	mem := cache.NewMemory(cache.Config{DefaultTTL: time.Minute})
	t.Cleanup(func() { _ = mem.Close() })
	rec := &recordingCache{Cache: mem}
	svc := NewService(st, rec, DefaultConfig())

	created, err := svc.CreateRoom(ctx, 1, "general", nil)
	require.NoError(t, err)

	// Known non-member so the join reaches the insert, plus an existing
	// detail projection so the existence check stays in cache.
	require.NoError(t, mem.Set(ctx, cache.MembershipKey(2, created.ID), []byte("0"), time.Minute))
	_, err = svc.GetRoom(ctx, created.ID)
	require.NoError(t, err)

	st.mu.Lock()
	st.failAll = errors.New("disk full")
	st.mu.Unlock()

	deletedBefore := len(rec.deletedKeys())
	_, err = svc.JoinRoom(ctx, 2, created.ID)
	require.Error(t, err)
	assert.True(t, svcerrors.IsCode(err, svcerrors.ErrCodeStoreFailure))
	assert.Len(t, rec.deletedKeys(), deletedBefore)
}

func TestLeaveRoomIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	created, err := svc.CreateRoom(ctx, 1, "general", nil)
	require.NoError(t, err)
	_, err = svc.JoinRoom(ctx, 2, created.ID)
	require.NoError(t, err)

	require.NoError(t, svc.LeaveRoom(ctx, 2, created.ID))

	err = svc.LeaveRoom(ctx, 2, created.ID)
	require.Error(t, err)
	assert.True(t, svcerrors.IsCode(err, svcerrors.ErrCodeNotMember))
}

func TestLeaveRoomCachedNonMemberShortCircuits(t *testing.T) {
	ctx := context.Background()
	svc, st, mem := newTestService(t)

	created, err := svc.CreateRoom(ctx, 1, "general", nil)
	require.NoError(t, err)
	require.NoError(t, mem.Set(ctx, cache.MembershipKey(2, created.ID), []byte("0"), time.Minute))

	calls := st.membershipCalls
	err = svc.LeaveRoom(ctx, 2, created.ID)
	require.Error(t, err)
	assert.True(t, svcerrors.IsCode(err, svcerrors.ErrCodeNotMember))
	assert.Equal(t, calls, st.membershipCalls)
}

func TestLeaveRoomInvalidatesAndFlagsNonMember(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	st.addUser(1, "alice", "alice@example.com")
	st.addUser(2, "bob", "bob@example.com")
	mem := cache.NewMemory(cache.Config{DefaultTTL: time.Minute})
	t.Cleanup(func() { _ = mem.Close() })
	rec := &recordingCache{Cache: mem}
	svc := NewService(st, rec, DefaultConfig())

	created, err := svc.CreateRoom(ctx, 1, "general", nil)
	require.NoError(t, err)
	_, err = svc.JoinRoom(ctx, 2, created.ID)
	require.NoError(t, err)

	require.NoError(t, svc.LeaveRoom(ctx, 2, created.ID))

	deleted := rec.deletedKeys()
	assert.Contains(t, deleted, cache.UserRoomsKey(2))
	assert.Contains(t, deleted, cache.RoomDetailsKey(created.ID))
	assert.Contains(t, deleted, cache.RoomParticipantsKey(created.ID))

	// The flag is repopulated as false after the invalidation, so the
	// departed user is locked out of member-only reads immediately.
	value, ok, err := mem.Get(ctx, cache.MembershipKey(2, created.ID))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("0"), value)
}

func TestListParticipantsForbiddenForNonMember(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	created, err := svc.CreateRoom(ctx, 1, "general", nil)
	require.NoError(t, err)

	// Warm the participant projection through the member.
	_, err = svc.ListParticipants(ctx, 1, created.ID)
	require.NoError(t, err)

	// A warm cache must not leak to a non-member.
	_, err = svc.ListParticipants(ctx, 2, created.ID)
	require.Error(t, err)
	assert.True(t, svcerrors.IsCode(err, svcerrors.ErrCodeForbidden))
}

func TestListParticipantsNotFound(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, err := svc.ListParticipants(ctx, 1, 42)
	require.Error(t, err)
	assert.True(t, svcerrors.IsCode(err, svcerrors.ErrCodeNotFound))
}

func TestListParticipantsCacheHitSkipsStore(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := newTestService(t)
	st.addUser(1, "alice", "alice@example.com")

	created, err := svc.CreateRoom(ctx, 1, "general", nil)
	require.NoError(t, err)

	_, err = svc.ListParticipants(ctx, 1, created.ID)
	require.NoError(t, err)
	calls := st.listParticipantsCalls

	_, err = svc.ListParticipants(ctx, 1, created.ID)
	require.NoError(t, err)
	assert.Equal(t, calls, st.listParticipantsCalls)
}

func TestCacheUnavailableDegradesToStore(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	st.addUser(1, "alice", "alice@example.com")
	svc := NewService(st, brokenCache{}, DefaultConfig())

	created, err := svc.CreateRoom(ctx, 1, "general", nil)
	require.NoError(t, err)

	rooms, err := svc.ListRooms(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, rooms, 1)

	detail, err := svc.GetRoom(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, detail.ID)

	participants, err := svc.ListParticipants(ctx, 1, created.ID)
	require.NoError(t, err)
	assert.Len(t, participants, 1)

	alreadyMember, err := svc.JoinRoom(ctx, 2, created.ID)
	require.NoError(t, err)
	assert.False(t, alreadyMember)

	require.NoError(t, svc.LeaveRoom(ctx, 2, created.ID))

	require.NoError(t, svc.Warmup(ctx, 1))
}

func TestWarmupPopulatesProjections(t *testing.T) {
	ctx := context.Background()
	svc, st, mem := newTestService(t)

	created, err := svc.CreateRoom(ctx, 1, "general", nil)
	require.NoError(t, err)

	require.NoError(t, svc.Warmup(ctx, 1))

	_, ok, err := mem.Get(ctx, cache.UserRoomsKey(1))
	require.NoError(t, err)
	assert.True(t, ok)
	_, ok, err = mem.Get(ctx, cache.RoomDetailsKey(created.ID))
	require.NoError(t, err)
	assert.True(t, ok)
	value, ok, err := mem.Get(ctx, cache.MembershipKey(1, created.ID))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("1"), value)

	// Subsequent reads hit the warmed projections.
	listCalls := st.listRoomsCalls
	_, err = svc.ListRooms(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, listCalls, st.listRoomsCalls)
}

func TestWarmupIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, err := svc.CreateRoom(ctx, 1, "general", nil)
	require.NoError(t, err)

	require.NoError(t, svc.Warmup(ctx, 1))
	require.NoError(t, svc.Warmup(ctx, 1))
}

func TestStaleProjectionExpiresByTTL(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	mem := cache.NewMemory(cache.Config{DefaultTTL: time.Minute})
	t.Cleanup(func() { _ = mem.Close() })

	now := time.Now()
	mem.SetClock(func() time.Time { return now })

	config := DefaultConfig()
	svc := NewService(st, mem, config)

	created, err := svc.CreateRoom(ctx, 1, "general", nil)
	require.NoError(t, err)
	_, err = svc.ListRooms(ctx, 1)
	require.NoError(t, err)

	// Mutate the store behind the cache, simulating a lost invalidation.
	_, err = st.AddRoomParticipant(ctx, &store.RoomParticipant{RoomID: created.ID, UserID: 2})
	require.NoError(t, err)

	rooms, err := svc.ListRooms(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, rooms[0].ParticipantsCount)

	// Past the list TTL the stale projection is gone and the refetch sees
	// the new participant count.
	now = now.Add(config.RoomListTTL + time.Second)

	rooms, err = svc.ListRooms(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, rooms[0].ParticipantsCount)
}

func TestConcurrentJoinLeave(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	mem := cache.NewMemory(cache.Config{DefaultTTL: time.Minute})
	t.Cleanup(func() { _ = mem.Close() })
	svc := NewService(st, mem, DefaultConfig())

	created, err := svc.CreateRoom(ctx, 1, "general", nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(userID int32) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_, _ = svc.JoinRoom(ctx, userID, created.ID)
				_ = svc.LeaveRoom(ctx, userID, created.ID)
			}
		}(int32(i + 2))
	}
	wg.Wait()

	// Whatever interleaving won, store and service agree afterwards.
	for userID := int32(2); userID < 10; userID++ {
		exists, err := st.MembershipExists(ctx, created.ID, userID)
		require.NoError(t, err)
		require.False(t, exists)
	}
	participants, err := svc.ListParticipants(ctx, 1, created.ID)
	require.NoError(t, err)
	assert.Len(t, participants, 1)
}
