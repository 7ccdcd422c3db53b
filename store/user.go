package store

import (
	"context"

	"github.com/pkg/errors"
)

// ErrAlreadyExists is returned by create methods when a uniqueness
// constraint rejects the row.
var ErrAlreadyExists = errors.New("already exists")

// User is the object representing a user.
type User struct {
	ID        int32
	Email     string
	Name      string
	Profile   string
	Role      string
	CreatedTs int64
}

// FindUser is the find condition for user.
type FindUser struct {
	ID    *int32
	Email *string
}

// UpdateUser is the update request for user.
type UpdateUser struct {
	ID      int32
	Email   *string
	Name    *string
	Profile *string
}

// CreateUser creates a new user.
func (s *Store) CreateUser(ctx context.Context, create *User) (*User, error) {
	return s.driver.CreateUser(ctx, create)
}

// GetUser gets a user with filter.
func (s *Store) GetUser(ctx context.Context, find *FindUser) (*User, error) {
	return s.driver.GetUser(ctx, find)
}

// UpdateUser updates a user.
func (s *Store) UpdateUser(ctx context.Context, update *UpdateUser) (*User, error) {
	return s.driver.UpdateUser(ctx, update)
}
