package store

import (
	"context"
)

// Room is the object representing a room.
type Room struct {
	ID          int32
	UID         string
	Name        string
	Description *string
	CreatorID   int32
	CreatedTs   int64

	// ParticipantCount is populated by list and get queries; it is not a
	// column of the room table.
	ParticipantCount int
}

// CreateRoomWithOwner creates a room together with the creator's participant
// row. Both rows are created atomically or not at all.
func (s *Store) CreateRoomWithOwner(ctx context.Context, create *Room) (*Room, error) {
	return s.driver.CreateRoomWithOwner(ctx, create)
}

// GetRoom gets a room by id. Returns nil when the room does not exist.
func (s *Store) GetRoom(ctx context.Context, id int32) (*Room, error) {
	return s.driver.GetRoom(ctx, id)
}

// ListRoomsForUser lists all rooms the user participates in, ordered by room
// id, with participant counts populated.
func (s *Store) ListRoomsForUser(ctx context.Context, userID int32) ([]*Room, error) {
	return s.driver.ListRoomsForUser(ctx, userID)
}
