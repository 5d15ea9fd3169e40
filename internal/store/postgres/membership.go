package postgres

import (
	"context"

	"github.com/groblegark/roomstore/internal/model"
)

// membershipColumns is the column list for room_memberships selects, with the
// table aliased as m for joins against current_state_events.
const membershipColumns = `m.event_id, m.user_id, m.sender, m.room_id, m.membership`

func queryInsertMembership(ctx context.Context, db executor, m *model.RoomMembership) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO room_memberships (event_id, user_id, sender, room_id, membership)
		VALUES ($1, $2, $3, $4, $5)`,
		m.EventID,
		m.UserID,
		m.Sender,
		m.RoomID,
		string(m.Membership),
	)
	return mapError(err)
}

// queryRoomMembers returns the current membership row for every user with a
// winning m.room.member slot in the room. Membership history rows that are
// not the current winner are excluded by the join.
func queryRoomMembers(ctx context.Context, db executor, roomID string) ([]*model.RoomMembership, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+membershipColumns+`
		FROM room_memberships m
		JOIN current_state_events c ON c.event_id = m.event_id
		WHERE c.room_id = $1 AND c.type = $2
		ORDER BY m.user_id`,
		roomID, model.TypeMember)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	return scanMemberships(rows)
}

func queryUserRooms(ctx context.Context, db executor, userID string) ([]*model.RoomMembership, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+membershipColumns+`
		FROM room_memberships m
		JOIN current_state_events c ON c.event_id = m.event_id
		WHERE m.user_id = $1 AND c.type = $2
		ORDER BY m.room_id`,
		userID, model.TypeMember)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	return scanMemberships(rows)
}

func queryMembership(ctx context.Context, db executor, roomID, userID string) (*model.RoomMembership, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+membershipColumns+`
		FROM room_memberships m
		JOIN current_state_events c ON c.event_id = m.event_id
		WHERE c.room_id = $1 AND c.type = $2 AND c.state_key = $3`,
		roomID, model.TypeMember, userID)
	m, err := scanMembership(row)
	if err != nil {
		return nil, mapError(err)
	}
	return m, nil
}
