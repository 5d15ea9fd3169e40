package postgres

import (
	"context"
	"database/sql"

	"github.com/groblegark/roomstore/internal/model"
)

func queryInsertFeedback(ctx context.Context, db executor, f *model.Feedback) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO feedback (event_id, room_id, sender, target_event_id, feedback_type)
		VALUES ($1, $2, $3, $4, $5)`,
		f.EventID,
		f.RoomID,
		f.Sender,
		nullString(f.TargetEventID),
		nullString(f.FeedbackType),
	)
	return mapError(err)
}

func queryInsertTopic(ctx context.Context, db executor, t *model.Topic) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO topics (event_id, room_id, topic)
		VALUES ($1, $2, $3)`,
		t.EventID, t.RoomID, t.Topic)
	return mapError(err)
}

func queryInsertRoomName(ctx context.Context, db executor, n *model.RoomName) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO room_names (event_id, room_id, name)
		VALUES ($1, $2, $3)`,
		n.EventID, n.RoomID, n.Name)
	return mapError(err)
}

func queryRoomFeedback(ctx context.Context, db executor, roomID string) ([]*model.Feedback, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT event_id, room_id, sender, target_event_id, feedback_type
		FROM feedback WHERE room_id = $1
		ORDER BY event_id`, roomID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var items []*model.Feedback
	for rows.Next() {
		var f model.Feedback
		var sender, target, ftype sql.NullString
		if err := rows.Scan(&f.EventID, &f.RoomID, &sender, &target, &ftype); err != nil {
			return nil, err
		}
		f.Sender = sender.String
		f.TargetEventID = target.String
		f.FeedbackType = ftype.String
		items = append(items, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// queryCurrentTopic resolves the room's winning m.room.topic slot and joins
// to the annotation row, so superseded topics are never returned.
func queryCurrentTopic(ctx context.Context, db executor, roomID string) (*model.Topic, error) {
	var t model.Topic
	err := db.QueryRowContext(ctx, `
		SELECT t.event_id, t.room_id, t.topic
		FROM topics t
		JOIN current_state_events c ON c.event_id = t.event_id
		WHERE c.room_id = $1 AND c.type = $2 AND c.state_key = ''`,
		roomID, model.TypeTopic).
		Scan(&t.EventID, &t.RoomID, &t.Topic)
	if err != nil {
		return nil, mapError(err)
	}
	return &t, nil
}

func queryCurrentRoomName(ctx context.Context, db executor, roomID string) (*model.RoomName, error) {
	var n model.RoomName
	err := db.QueryRowContext(ctx, `
		SELECT r.event_id, r.room_id, r.name
		FROM room_names r
		JOIN current_state_events c ON c.event_id = r.event_id
		WHERE c.room_id = $1 AND c.type = $2 AND c.state_key = ''`,
		roomID, model.TypeName).
		Scan(&n.EventID, &n.RoomID, &n.Name)
	if err != nil {
		return nil, mapError(err)
	}
	return &n, nil
}
