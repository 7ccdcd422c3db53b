// Package user implements the user profile service with a cache-aside
// projection under user:{id}. Updates write to the store first, then delete
// and repopulate the projection.
package user

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hrygo/blubb/internal/profile"
	svcerrors "github.com/hrygo/blubb/internal/errors"
	"github.com/hrygo/blubb/store"
	"github.com/hrygo/blubb/store/cache"
)

// DefaultProfileTTL bounds the staleness of the user profile projection.
const DefaultProfileTTL = 300 * time.Second

// UserSummary is the cached projection of a user.
type UserSummary struct {
	ID        int32  `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Profile   string `json:"profile"`
	Role      string `json:"role"`
	CreatedTs int64  `json:"created_at"`
}

// UpdateRequest carries the optional fields of a profile update. Nil means
// leave unchanged.
type UpdateRequest struct {
	Email   *string
	Name    *string
	Profile *string
}

// Service is the interface for user-related operations.
type Service interface {
	// GetUser returns a user's profile projection (cache-aside).
	GetUser(ctx context.Context, userID int32) (*UserSummary, error)

	// UpdateUser applies a partial update, then invalidates and repopulates
	// the profile projection.
	UpdateUser(ctx context.Context, userID int32, update *UpdateRequest) (*UserSummary, error)
}

// Store is the interface for store operations needed by the user service.
type Store interface {
	GetUser(ctx context.Context, find *store.FindUser) (*store.User, error)
	UpdateUser(ctx context.Context, update *store.UpdateUser) (*store.User, error)
}

type service struct {
	store Store
	cache cache.Cache
	ttl   time.Duration
}

// NewService creates a new user service.
func NewService(st Store, c cache.Cache, ttl time.Duration) Service {
	if ttl <= 0 {
		ttl = DefaultProfileTTL
	}
	return &service{store: st, cache: c, ttl: ttl}
}

// TTLFromProfile returns the configured profile TTL, defaulted.
func TTLFromProfile(p *profile.Profile) time.Duration {
	if p.UserProfileTTL > 0 {
		return p.UserProfileTTL
	}
	return DefaultProfileTTL
}

func (s *service) GetUser(ctx context.Context, userID int32) (*UserSummary, error) {
	key := cache.UserProfileKey(userID)
	if data, ok, err := s.cache.Get(ctx, key); err != nil {
		slog.Warn("cache unavailable, falling back to store", "key", key, "error", err)
	} else if ok {
		var summary UserSummary
		if err := json.Unmarshal(data, &summary); err == nil {
			return &summary, nil
		}
		slog.Warn("corrupt user profile projection, refetching", "key", key)
	}

	u, err := s.store.GetUser(ctx, &store.FindUser{ID: &userID})
	if err != nil {
		return nil, svcerrors.StoreFailure("failed to get user", err)
	}
	if u == nil {
		return nil, svcerrors.NotFound("user not found")
	}

	summary := userSummary(u)
	s.populate(ctx, key, summary)
	return summary, nil
}

func (s *service) UpdateUser(ctx context.Context, userID int32, update *UpdateRequest) (*UserSummary, error) {
	u, err := s.store.UpdateUser(ctx, &store.UpdateUser{
		ID:      userID,
		Email:   update.Email,
		Name:    update.Name,
		Profile: update.Profile,
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, svcerrors.Conflict("email already in use")
		}
		return nil, svcerrors.StoreFailure("failed to update user", err)
	}
	if u == nil {
		return nil, svcerrors.NotFound("user not found")
	}

	// Invalidate, then repopulate from the row the update returned.
	key := cache.UserProfileKey(userID)
	if err := s.cache.Delete(ctx, key); err != nil {
		slog.Warn("failed to invalidate user profile projection", "key", key, "error", err)
	}
	summary := userSummary(u)
	s.populate(ctx, key, summary)
	return summary, nil
}

func (s *service) populate(ctx context.Context, key string, summary *UserSummary) {
	data, err := json.Marshal(summary)
	if err != nil {
		slog.Warn("failed to marshal user profile projection", "key", key, "error", err)
		return
	}
	if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
		slog.Warn("failed to populate user profile projection", "key", key, "error", err)
	}
}

func userSummary(u *store.User) *UserSummary {
	return &UserSummary{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Profile:   u.Profile,
		Role:      u.Role,
		CreatedTs: u.CreatedTs,
	}
}
