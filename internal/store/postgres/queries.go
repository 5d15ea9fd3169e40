package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/groblegark/roomstore/internal/model"
)

// eventColumns is the column list used for SELECT statements on the events table.
const eventColumns = `event_id, stream_ordering, topological_ordering, room_id, type,
	sender, content, unrecognized_keys, depth, processed, outlier, received_at`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queryInsertEvent inserts an event and its payload. The two inserts share
// the caller's executor; the ingester runs them inside one transaction so
// an event never exists without its payload.
func queryInsertEvent(ctx context.Context, db executor, e *model.Event, p *model.EventPayload) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO events (
			event_id, stream_ordering, topological_ordering, room_id, type,
			sender, content, unrecognized_keys, depth, processed, outlier, received_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10, $11, $12
		)`,
		e.EventID,
		e.StreamOrdering,
		e.TopologicalOrdering,
		e.RoomID,
		e.Type,
		e.Sender,
		jsonOrEmpty(e.Content),
		jsonbBytes(e.UnrecognizedKeys),
		e.Depth,
		e.Processed,
		e.Outlier,
		e.ReceivedAt,
	)
	if err != nil {
		return mapError(err)
	}

	if p == nil {
		p = &model.EventPayload{EventID: e.EventID}
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO event_json (event_id, json, internal_metadata)
		VALUES ($1, $2, $3)`,
		e.EventID,
		emptyBytes(p.JSON),
		emptyBytes(p.InternalMetadata),
	)
	return mapError(err)
}

func queryGetEvent(ctx context.Context, db executor, eventID string) (*model.Event, *model.EventPayload, error) {
	row := db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE event_id = $1`, eventID)
	e, err := scanEvent(row)
	if err != nil {
		return nil, nil, mapError(err)
	}

	p := &model.EventPayload{EventID: eventID}
	err = db.QueryRowContext(ctx,
		`SELECT json, internal_metadata FROM event_json WHERE event_id = $1`, eventID).
		Scan(&p.JSON, &p.InternalMetadata)
	if err == sql.ErrNoRows {
		// The payload is created with the event; a missing row means the
		// event predates this schema. Return the event anyway.
		return e, nil, nil
	}
	if err != nil {
		return nil, nil, mapError(err)
	}
	return e, p, nil
}

func queryEventExists(ctx context.Context, db executor, eventID string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM events WHERE event_id = $1)`, eventID).Scan(&exists)
	if err != nil {
		return false, mapError(err)
	}
	return exists, nil
}

func queryListRoomEvents(ctx context.Context, db executor, roomID string, filter model.EventFilter) ([]*model.Event, error) {
	filter = filter.Normalize()

	// The primary ordering column is the pagination token axis; topological
	// listings break ties by stream ordering for a deterministic total order.
	tokenCol := "stream_ordering"
	orderBy := "stream_ordering ASC"
	if filter.Order == model.OrderTopological {
		tokenCol = "topological_ordering"
		orderBy = "topological_ordering ASC, stream_ordering ASC"
	}
	if filter.Backward {
		orderBy = "stream_ordering DESC"
		if filter.Order == model.OrderTopological {
			orderBy = "topological_ordering DESC, stream_ordering DESC"
		}
	}

	query := `SELECT ` + eventColumns + ` FROM events WHERE room_id = $1`
	args := []any{roomID}
	argIdx := 1

	nextArg := func() string {
		argIdx++
		return fmt.Sprintf("$%d", argIdx)
	}

	if filter.From > 0 {
		op := ">"
		if filter.Backward {
			op = "<"
		}
		query += fmt.Sprintf(" AND %s %s %s", tokenCol, op, nextArg())
		args = append(args, filter.From)
	}
	if filter.To > 0 {
		op := "<"
		if filter.Backward {
			op = ">"
		}
		query += fmt.Sprintf(" AND %s %s %s", tokenCol, op, nextArg())
		args = append(args, filter.To)
	}

	query += " ORDER BY " + orderBy + " LIMIT " + nextArg()
	args = append(args, filter.Limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func queryEventDepths(ctx context.Context, db executor, eventIDs []string) (map[string]int64, error) {
	depths := make(map[string]int64, len(eventIDs))
	if len(eventIDs) == 0 {
		return depths, nil
	}

	rows, err := db.QueryContext(ctx,
		`SELECT event_id, depth FROM events WHERE event_id = ANY($1)`, pq.Array(eventIDs))
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var depth int64
		if err := rows.Scan(&id, &depth); err != nil {
			return nil, err
		}
		depths[id] = depth
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return depths, nil
}

func queryMaxStreamOrdering(ctx context.Context, db executor) (int64, error) {
	var max int64
	err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(stream_ordering), 0) FROM events`).Scan(&max)
	if err != nil {
		return 0, mapError(err)
	}
	return max, nil
}

func queryUnprocessedEvents(ctx context.Context, db executor, limit int) ([]*model.Event, error) {
	if limit <= 0 {
		limit = model.DefaultEventLimit
	}
	rows, err := db.QueryContext(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE NOT processed
		ORDER BY stream_ordering
		LIMIT $1`, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func queryMarkEventProcessed(ctx context.Context, db executor, eventID string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE events SET processed = TRUE WHERE event_id = $1`, eventID)
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return mapError(sql.ErrNoRows)
	}
	return nil
}
