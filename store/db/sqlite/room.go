package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hrygo/blubb/store"
)

const roomSelectFields = `
	room.id, room.uid, room.name, room.description, room.creator_id, room.created_ts,
	(SELECT COUNT(*) FROM room_participant WHERE room_participant.room_id = room.id) AS participant_count`

func (d *DB) CreateRoomWithOwner(ctx context.Context, create *store.Room) (*store.Room, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt := `INSERT INTO room (uid, name, description, creator_id)
		VALUES (` + placeholders(4) + `)
		RETURNING id, created_ts`
	if err := tx.QueryRowContext(ctx, stmt,
		create.UID,
		create.Name,
		create.Description,
		create.CreatorID,
	).Scan(&create.ID, &create.CreatedTs); err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	stmt = `INSERT INTO room_participant (room_id, user_id) VALUES (` + placeholders(2) + `)`
	if _, err := tx.ExecContext(ctx, stmt, create.ID, create.CreatorID); err != nil {
		return nil, fmt.Errorf("failed to create owner participant: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit room creation: %w", err)
	}

	create.ParticipantCount = 1
	return create, nil
}

func (d *DB) GetRoom(ctx context.Context, id int32) (*store.Room, error) {
	query := `SELECT ` + roomSelectFields + ` FROM room WHERE room.id = ` + placeholder(1)

	room, err := scanRoom(d.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return room, nil
}

func (d *DB) ListRoomsForUser(ctx context.Context, userID int32) ([]*store.Room, error) {
	query := `
		SELECT ` + roomSelectFields + `
		FROM room
		JOIN room_participant ON room_participant.room_id = room.id
		WHERE room_participant.user_id = ` + placeholder(1) + `
		ORDER BY room.id ASC`

	rows, err := d.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rooms: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Room, 0)
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		list = append(list, room)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rooms: %w", err)
	}

	return list, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (*store.Room, error) {
	var room store.Room
	var description sql.NullString
	if err := row.Scan(
		&room.ID,
		&room.UID,
		&room.Name,
		&description,
		&room.CreatorID,
		&room.CreatedTs,
		&room.ParticipantCount,
	); err != nil {
		return nil, err
	}
	if description.Valid {
		room.Description = &description.String
	}
	return &room, nil
}
