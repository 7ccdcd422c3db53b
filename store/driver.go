package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	// Migrate applies the latest schema.
	Migrate(ctx context.Context) error

	// User model related methods.
	CreateUser(ctx context.Context, create *User) (*User, error)
	GetUser(ctx context.Context, find *FindUser) (*User, error)
	UpdateUser(ctx context.Context, update *UpdateUser) (*User, error)

	// Room model related methods.
	//
	// CreateRoomWithOwner must create the room row and the owner's
	// participant row in a single transaction; partial creation must never
	// be observable.
	CreateRoomWithOwner(ctx context.Context, create *Room) (*Room, error)
	GetRoom(ctx context.Context, id int32) (*Room, error)
	ListRoomsForUser(ctx context.Context, userID int32) ([]*Room, error)

	// RoomParticipant model related methods.
	//
	// AddRoomParticipant returns ErrAlreadyExists when the (room, user)
	// fact is already present; the store-level unique constraint makes
	// duplicate-insert races fail safely instead of producing duplicates.
	AddRoomParticipant(ctx context.Context, create *RoomParticipant) (*RoomParticipant, error)
	RemoveRoomParticipant(ctx context.Context, roomID, userID int32) (bool, error)
	ListRoomParticipants(ctx context.Context, roomID int32) ([]*RoomParticipantUser, error)
	MembershipExists(ctx context.Context, roomID, userID int32) (bool, error)
}
