package postgres

import (
	"context"

	"github.com/groblegark/roomstore/internal/model"
)

// queryRecomputeRoomStats re-derives every counter for the room in a single
// upsert. Member counts consider only current winners, through the same join
// the membership reads use, so a non-winning membership row never moves a
// counter.
func queryRecomputeRoomStats(ctx context.Context, db executor, roomID string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO room_stats (room_id, current_state_events, joined_members,
			invited_members, left_members, banned_members, sent_events)
		SELECT $1,
			(SELECT COUNT(*) FROM current_state_events WHERE room_id = $1),
			(SELECT COUNT(*) FROM room_memberships m
				JOIN current_state_events c ON c.event_id = m.event_id
				WHERE m.room_id = $1 AND m.membership = $2),
			(SELECT COUNT(*) FROM room_memberships m
				JOIN current_state_events c ON c.event_id = m.event_id
				WHERE m.room_id = $1 AND m.membership = $3),
			(SELECT COUNT(*) FROM room_memberships m
				JOIN current_state_events c ON c.event_id = m.event_id
				WHERE m.room_id = $1 AND m.membership = $4),
			(SELECT COUNT(*) FROM room_memberships m
				JOIN current_state_events c ON c.event_id = m.event_id
				WHERE m.room_id = $1 AND m.membership = $5),
			(SELECT COUNT(*) FROM events WHERE room_id = $1)
		ON CONFLICT (room_id) DO UPDATE SET
			current_state_events = EXCLUDED.current_state_events,
			joined_members = EXCLUDED.joined_members,
			invited_members = EXCLUDED.invited_members,
			left_members = EXCLUDED.left_members,
			banned_members = EXCLUDED.banned_members,
			sent_events = EXCLUDED.sent_events`,
		roomID,
		string(model.MembershipJoin),
		string(model.MembershipInvite),
		string(model.MembershipLeave),
		string(model.MembershipBan),
	)
	return mapError(err)
}

func queryRoomStats(ctx context.Context, db executor, roomID string) (*model.RoomStats, error) {
	row := db.QueryRowContext(ctx, `
		SELECT room_id, current_state_events, joined_members, invited_members,
			left_members, banned_members, sent_events
		FROM room_stats WHERE room_id = $1`, roomID)

	var st model.RoomStats
	err := row.Scan(
		&st.RoomID,
		&st.CurrentStateEvents,
		&st.JoinedMembers,
		&st.InvitedMembers,
		&st.LeftMembers,
		&st.BannedMembers,
		&st.SentEvents,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return &st, nil
}
