package postgres

import (
	"database/sql"
	"encoding/json"

	"github.com/groblegark/roomstore/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanEvent scans a single row into a model.Event.
// The row must contain columns in the order defined by eventColumns.
func scanEvent(row scannable) (*model.Event, error) {
	var e model.Event
	var (
		sender           sql.NullString
		content          []byte
		unrecognizedKeys []byte
	)

	err := row.Scan(
		&e.EventID,
		&e.StreamOrdering,
		&e.TopologicalOrdering,
		&e.RoomID,
		&e.Type,
		&sender,
		&content,
		&unrecognizedKeys,
		&e.Depth,
		&e.Processed,
		&e.Outlier,
		&e.ReceivedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Sender = sender.String
	if len(content) > 0 {
		e.Content = json.RawMessage(content)
	}
	if len(unrecognizedKeys) > 0 {
		e.UnrecognizedKeys = json.RawMessage(unrecognizedKeys)
	}

	return &e, nil
}

// scanEvents scans multiple rows into a slice of model.Event pointers.
func scanEvents(rows *sql.Rows) ([]*model.Event, error) {
	var events []*model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// scanStateEvent scans a single row into a model.StateEvent.
func scanStateEvent(row scannable) (*model.StateEvent, error) {
	var se model.StateEvent
	var prevState sql.NullString
	err := row.Scan(&se.EventID, &se.RoomID, &se.Type, &se.StateKey, &prevState)
	if err != nil {
		return nil, err
	}
	se.PrevState = prevState.String
	return &se, nil
}

// scanCurrentState scans a single row into a model.CurrentStateEvent.
func scanCurrentState(row scannable) (*model.CurrentStateEvent, error) {
	var c model.CurrentStateEvent
	err := row.Scan(&c.EventID, &c.RoomID, &c.Type, &c.StateKey)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// scanMembership scans a single row into a model.RoomMembership.
func scanMembership(row scannable) (*model.RoomMembership, error) {
	var m model.RoomMembership
	var sender sql.NullString
	err := row.Scan(&m.EventID, &m.UserID, &sender, &m.RoomID, &m.Membership)
	if err != nil {
		return nil, err
	}
	m.Sender = sender.String
	return &m, nil
}

// scanMemberships scans multiple rows into a slice of model.RoomMembership pointers.
func scanMemberships(rows *sql.Rows) ([]*model.RoomMembership, error) {
	var members []*model.RoomMembership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return members, nil
}

// scanRoom scans a single row into a model.Room.
func scanRoom(row scannable) (*model.Room, error) {
	var r model.Room
	var creator sql.NullString
	err := row.Scan(&r.RoomID, &r.IsPublic, &creator)
	if err != nil {
		return nil, err
	}
	r.Creator = creator.String
	return &r, nil
}

// nullString converts a string to sql.NullString; empty string is null.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// jsonbBytes converts json.RawMessage to a []byte suitable for JSONB columns.
func jsonbBytes(m json.RawMessage) []byte {
	if len(m) == 0 {
		return nil
	}
	return []byte(m)
}

// jsonOrEmpty is jsonbBytes for NOT NULL JSONB columns: empty input becomes
// an empty object instead of SQL NULL.
func jsonOrEmpty(m json.RawMessage) []byte {
	if len(m) == 0 {
		return []byte("{}")
	}
	return []byte(m)
}

// emptyBytes maps nil to an empty slice for NOT NULL BYTEA columns.
func emptyBytes(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
