package sqlite

import (
	"context"
	"fmt"

	"github.com/hrygo/blubb/store"
)

func (d *DB) AddRoomParticipant(ctx context.Context, create *store.RoomParticipant) (*store.RoomParticipant, error) {
	stmt := `INSERT INTO room_participant (room_id, user_id)
		VALUES (` + placeholders(2) + `)
		RETURNING id, joined_ts, is_muted`

	if err := d.db.QueryRowContext(ctx, stmt, create.RoomID, create.UserID).Scan(
		&create.ID,
		&create.JoinedTs,
		&create.IsMuted,
	); err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to add room participant: %w", err)
	}

	return create, nil
}

func (d *DB) RemoveRoomParticipant(ctx context.Context, roomID, userID int32) (bool, error) {
	stmt := `DELETE FROM room_participant WHERE room_id = ` + placeholder(1) + ` AND user_id = ` + placeholder(2)
	result, err := d.db.ExecContext(ctx, stmt, roomID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to remove room participant: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return rows > 0, nil
}

func (d *DB) ListRoomParticipants(ctx context.Context, roomID int32) ([]*store.RoomParticipantUser, error) {
	query := `
		SELECT
			room_participant.id, room_participant.room_id, room_participant.user_id,
			room_participant.joined_ts, room_participant.is_muted,
			user.id, user.email, user.name, user.profile, user.role, user.created_ts
		FROM room_participant
		JOIN user ON user.id = room_participant.user_id
		WHERE room_participant.room_id = ` + placeholder(1) + `
		ORDER BY room_participant.joined_ts ASC, room_participant.id ASC`

	rows, err := d.db.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to query room participants: %w", err)
	}
	defer rows.Close()

	list := make([]*store.RoomParticipantUser, 0)
	for rows.Next() {
		participant := store.RoomParticipantUser{User: &store.User{}}
		if err := rows.Scan(
			&participant.ID,
			&participant.RoomID,
			&participant.UserID,
			&participant.JoinedTs,
			&participant.IsMuted,
			&participant.User.ID,
			&participant.User.Email,
			&participant.User.Name,
			&participant.User.Profile,
			&participant.User.Role,
			&participant.User.CreatedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan room participant: %w", err)
		}
		list = append(list, &participant)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate room participants: %w", err)
	}

	return list, nil
}

func (d *DB) MembershipExists(ctx context.Context, roomID, userID int32) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM room_participant
		WHERE room_id = ` + placeholder(1) + ` AND user_id = ` + placeholder(2) + `
	)`

	var exists bool
	if err := d.db.QueryRowContext(ctx, query, roomID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return exists, nil
}
