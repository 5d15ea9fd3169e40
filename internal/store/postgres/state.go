package postgres

import (
	"context"

	"github.com/groblegark/roomstore/internal/model"
)

func queryInsertStateEvent(ctx context.Context, db executor, se *model.StateEvent) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO state_events (event_id, room_id, type, state_key, prev_state)
		VALUES ($1, $2, $3, $4, $5)`,
		se.EventID,
		se.RoomID,
		se.Type,
		se.StateKey,
		nullString(se.PrevState),
	)
	return mapError(err)
}

// querySetCurrentState upserts the winner pointer for the slot. The row-level
// lock taken by ON CONFLICT DO UPDATE serializes concurrent writes to the
// same slot; writes to different slots do not block each other.
func querySetCurrentState(ctx context.Context, db executor, se *model.StateEvent) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO current_state_events (event_id, room_id, type, state_key)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (room_id, type, state_key) DO UPDATE SET event_id = EXCLUDED.event_id`,
		se.EventID,
		se.RoomID,
		se.Type,
		se.StateKey,
	)
	return mapError(err)
}

func queryGetStateEvent(ctx context.Context, db executor, eventID string) (*model.StateEvent, error) {
	row := db.QueryRowContext(ctx, `
		SELECT event_id, room_id, type, state_key, prev_state
		FROM state_events WHERE event_id = $1`, eventID)
	se, err := scanStateEvent(row)
	if err != nil {
		return nil, mapError(err)
	}
	return se, nil
}

func queryCurrentStateEvent(ctx context.Context, db executor, roomID, eventType, stateKey string) (*model.CurrentStateEvent, error) {
	row := db.QueryRowContext(ctx, `
		SELECT event_id, room_id, type, state_key
		FROM current_state_events
		WHERE room_id = $1 AND type = $2 AND state_key = $3`,
		roomID, eventType, stateKey)
	c, err := scanCurrentState(row)
	if err != nil {
		return nil, mapError(err)
	}
	return c, nil
}

func queryCurrentStateEvents(ctx context.Context, db executor, roomID string) ([]*model.CurrentStateEvent, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT event_id, room_id, type, state_key
		FROM current_state_events
		WHERE room_id = $1
		ORDER BY type, state_key`, roomID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var states []*model.CurrentStateEvent
	for rows.Next() {
		c, err := scanCurrentState(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return states, nil
}
