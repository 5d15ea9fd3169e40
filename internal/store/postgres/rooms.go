package postgres

import (
	"context"

	"github.com/groblegark/roomstore/internal/model"
)

// queryEnsureRoom creates the room if it does not exist yet.
// Uses INSERT...ON CONFLICT DO NOTHING so existing rooms are never reset.
func queryEnsureRoom(ctx context.Context, db executor, room *model.Room) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO rooms (room_id, is_public, creator)
		VALUES ($1, $2, $3)
		ON CONFLICT (room_id) DO NOTHING`,
		room.RoomID,
		room.IsPublic,
		room.Creator,
	)
	return mapError(err)
}

func queryGetRoom(ctx context.Context, db executor, roomID string) (*model.Room, error) {
	row := db.QueryRowContext(ctx,
		`SELECT room_id, is_public, creator FROM rooms WHERE room_id = $1`, roomID)
	r, err := scanRoom(row)
	if err != nil {
		return nil, mapError(err)
	}
	return r, nil
}

func queryListRooms(ctx context.Context, db executor) ([]*model.Room, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT room_id, is_public, creator FROM rooms ORDER BY room_id`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var rooms []*model.Room
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rooms, nil
}

func queryAddRoomHost(ctx context.Context, db executor, roomID, host string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO room_hosts (room_id, host)
		VALUES ($1, $2)
		ON CONFLICT (room_id, host) DO NOTHING`,
		roomID, host)
	return mapError(err)
}

func queryRoomHosts(ctx context.Context, db executor, roomID string) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT host FROM room_hosts WHERE room_id = $1 ORDER BY host`, roomID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var hosts []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		hosts = append(hosts, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return hosts, nil
}

func queryIsRoomHost(ctx context.Context, db executor, roomID, host string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM room_hosts WHERE room_id = $1 AND host = $2)`,
		roomID, host).Scan(&exists)
	if err != nil {
		return false, mapError(err)
	}
	return exists, nil
}
