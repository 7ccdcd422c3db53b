package room

import (
	"context"
)

// RoomSummary is the cached projection of a room. The JSON encoding of this
// struct is what lands in the cache under room:{id}:details and, as a list,
// under user:{id}:rooms.
type RoomSummary struct {
	ID                int32   `json:"id"`
	UID               string  `json:"uid"`
	Name              string  `json:"name"`
	Description       *string `json:"description"`
	CreatedBy         int32   `json:"created_by"`
	CreatedTs         int64   `json:"created_at"`
	ParticipantsCount int     `json:"participants_count"`
}

// ParticipantSummary is the cached projection of one room participant joined
// with its user, stored as a list under room:{id}:participants.
type ParticipantSummary struct {
	ID       int32  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	JoinedTs int64  `json:"joined_at"`
	IsMuted  bool   `json:"is_muted"`
}

// Service is the interface for room-related operations.
type Service interface {
	// ListRooms returns the rooms the user participates in (cache-aside).
	ListRooms(ctx context.Context, userID int32) ([]*RoomSummary, error)

	// GetRoom returns a single room's detail projection (cache-aside).
	GetRoom(ctx context.Context, roomID int32) (*RoomSummary, error)

	// ListParticipants returns the participants of a room. Only members may
	// read the participant list.
	ListParticipants(ctx context.Context, userID, roomID int32) ([]*ParticipantSummary, error)

	// CreateRoom creates a room with the caller as owner and first
	// participant.
	CreateRoom(ctx context.Context, userID int32, name string, description *string) (*RoomSummary, error)

	// JoinRoom adds the caller to a room. alreadyMember reports that the
	// caller was a member before the call; a lost duplicate-insert race is
	// absorbed into that outcome.
	JoinRoom(ctx context.Context, userID, roomID int32) (alreadyMember bool, err error)

	// LeaveRoom removes the caller from a room.
	LeaveRoom(ctx context.Context, userID, roomID int32) error

	// Warmup force-refreshes the caller's room list projection and
	// eagerly populates room details and membership flags. Idempotent and
	// safe to run concurrently with reads.
	Warmup(ctx context.Context, userID int32) error
}
