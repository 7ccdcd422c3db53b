package store

import (
	"context"
)

// RoomParticipant is the fact that a user has joined a room. Its existence
// IS the membership relation; membership is derived by existence query.
type RoomParticipant struct {
	ID       int32
	RoomID   int32
	UserID   int32
	JoinedTs int64
	IsMuted  bool
}

// RoomParticipantUser is a participant row joined with its user.
type RoomParticipantUser struct {
	RoomParticipant
	User *User
}

// AddRoomParticipant adds a participant fact. Returns ErrAlreadyExists when
// the (room, user) pair is already present.
func (s *Store) AddRoomParticipant(ctx context.Context, create *RoomParticipant) (*RoomParticipant, error) {
	return s.driver.AddRoomParticipant(ctx, create)
}

// RemoveRoomParticipant removes a participant fact. The bool reports whether
// a fact existed.
func (s *Store) RemoveRoomParticipant(ctx context.Context, roomID, userID int32) (bool, error) {
	return s.driver.RemoveRoomParticipant(ctx, roomID, userID)
}

// ListRoomParticipants lists the participants of a room joined with their
// users, ordered by join time.
func (s *Store) ListRoomParticipants(ctx context.Context, roomID int32) ([]*RoomParticipantUser, error) {
	return s.driver.ListRoomParticipants(ctx, roomID)
}

// MembershipExists reports whether the (room, user) participant fact exists.
func (s *Store) MembershipExists(ctx context.Context, roomID, userID int32) (bool, error) {
	return s.driver.MembershipExists(ctx, roomID, userID)
}
