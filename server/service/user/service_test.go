package user

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	svcerrors "github.com/hrygo/blubb/internal/errors"
	"github.com/hrygo/blubb/store"
	"github.com/hrygo/blubb/store/cache"
)

type fakeStore struct {
	mu    sync.Mutex
	users map[int32]*store.User

	getCalls    int
	updateErr   error
	updateCalls int
}

func newFakeStore(users ...*store.User) *fakeStore {
	f := &fakeStore{users: map[int32]*store.User{}}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeStore) GetUser(ctx context.Context, find *store.FindUser) (*store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if find.ID == nil {
		return nil, nil
	}
	u, ok := f.users[*find.ID]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (f *fakeStore) UpdateUser(ctx context.Context, update *store.UpdateUser) (*store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	u, ok := f.users[update.ID]
	if !ok {
		return nil, nil
	}
	if update.Email != nil {
		u.Email = *update.Email
	}
	if update.Name != nil {
		u.Name = *update.Name
	}
	if update.Profile != nil {
		u.Profile = *update.Profile
	}
	copied := *u
	return &copied, nil
}

func newTestService(t *testing.T, st Store) (Service, *cache.MemoryCache) {
	t.Helper()
	c := cache.NewMemory(cache.Config{DefaultTTL: time.Minute})
	t.Cleanup(func() { _ = c.Close() })
	return NewService(st, c, DefaultProfileTTL), c
}

func TestGetUserCacheAside(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore(&store.User{ID: 1, Email: "alice@example.com", Name: "alice", Role: "user"})
	svc, _ := newTestService(t, st)

	u, err := svc.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Name)
	calls := st.getCalls

	// Second read is a cache hit.
	u, err = svc.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Name)
	assert.Equal(t, calls, st.getCalls)
}

func TestGetUserNotFound(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, newFakeStore())

	_, err := svc.GetUser(ctx, 42)
	require.Error(t, err)
	assert.True(t, svcerrors.IsCode(err, svcerrors.ErrCodeNotFound))
}

func TestUpdateUserRepopulatesProjection(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore(&store.User{ID: 1, Email: "alice@example.com", Name: "alice"})
	svc, mem := newTestService(t, st)

	// Warm the projection with the old name.
	_, err := svc.GetUser(ctx, 1)
	require.NoError(t, err)

	name := "alice2"
	updated, err := svc.UpdateUser(ctx, 1, &UpdateRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "alice2", updated.Name)

	// Read-after-write through the cache sees the new name.
	u, err := svc.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "alice2", u.Name)

	_, ok, err := mem.Get(ctx, cache.UserProfileKey(1))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUpdateUserNotFound(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, newFakeStore())

	name := "ghost"
	_, err := svc.UpdateUser(ctx, 42, &UpdateRequest{Name: &name})
	require.Error(t, err)
	assert.True(t, svcerrors.IsCode(err, svcerrors.ErrCodeNotFound))
}

func TestUpdateUserEmailConflict(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore(&store.User{ID: 1, Email: "alice@example.com"})
	st.updateErr = store.ErrAlreadyExists
	svc, _ := newTestService(t, st)

	email := "bob@example.com"
	_, err := svc.UpdateUser(ctx, 1, &UpdateRequest{Email: &email})
	require.Error(t, err)
	assert.True(t, svcerrors.IsCode(err, svcerrors.ErrCodeConflict))
}

func TestUpdateUserStoreFailure(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore(&store.User{ID: 1})
	st.updateErr = errors.New("disk full")
	svc, mem := newTestService(t, st)

	// Warm the projection; a failed write must leave it untouched.
	_, err := svc.GetUser(ctx, 1)
	require.NoError(t, err)

	name := "alice2"
	_, err = svc.UpdateUser(ctx, 1, &UpdateRequest{Name: &name})
	require.Error(t, err)
	assert.True(t, svcerrors.IsCode(err, svcerrors.ErrCodeStoreFailure))

	_, ok, err := mem.Get(ctx, cache.UserProfileKey(1))
	require.NoError(t, err)
	assert.True(t, ok)
}
