package store

import (
	"context"

	"github.com/groblegark/roomstore/internal/model"
)

// Store defines the persistence interface for the room event graph and the
// projections derived from it.
//
// Every write is idempotent on event identifier: re-inserting an existing
// row returns ErrDuplicateEvent, which callers treat as success (federation
// delivery is at-least-once). No operation here deletes anything.
type Store interface {
	// Event repository
	InsertEvent(ctx context.Context, event *model.Event, payload *model.EventPayload) error
	GetEvent(ctx context.Context, eventID string) (*model.Event, *model.EventPayload, error)
	EventExists(ctx context.Context, eventID string) (bool, error)
	ListRoomEvents(ctx context.Context, roomID string, filter model.EventFilter) ([]*model.Event, error)
	// EventDepths returns depth per event id for the ids that exist; absent
	// ids are simply missing from the result.
	EventDepths(ctx context.Context, eventIDs []string) (map[string]int64, error)
	// MaxStreamOrdering returns the highest assigned arrival sequence
	// number, or 0 when the store is empty. Used to recover the sequence
	// counter at startup.
	MaxStreamOrdering(ctx context.Context) (int64, error)
	UnprocessedEvents(ctx context.Context, limit int) ([]*model.Event, error)
	MarkEventProcessed(ctx context.Context, eventID string) error

	// State projection
	InsertStateEvent(ctx context.Context, se *model.StateEvent) error
	// SetCurrentState upserts the winner pointer for the state event's
	// (room, type, state_key) slot. Which event wins is decided by the
	// external resolver; this is last-applied-wins storage.
	SetCurrentState(ctx context.Context, se *model.StateEvent) error
	GetStateEvent(ctx context.Context, eventID string) (*model.StateEvent, error)
	CurrentStateEvent(ctx context.Context, roomID, eventType, stateKey string) (*model.CurrentStateEvent, error)
	CurrentStateEvents(ctx context.Context, roomID string) ([]*model.CurrentStateEvent, error)

	// Membership index (reads return current winners only)
	InsertMembership(ctx context.Context, m *model.RoomMembership) error
	RoomMembers(ctx context.Context, roomID string) ([]*model.RoomMembership, error)
	UserRooms(ctx context.Context, userID string) ([]*model.RoomMembership, error)
	Membership(ctx context.Context, roomID, userID string) (*model.RoomMembership, error)

	// Room registry
	EnsureRoom(ctx context.Context, room *model.Room) error
	GetRoom(ctx context.Context, roomID string) (*model.Room, error)
	ListRooms(ctx context.Context) ([]*model.Room, error)
	AddRoomHost(ctx context.Context, roomID, host string) error
	RoomHosts(ctx context.Context, roomID string) ([]string, error)
	IsRoomHost(ctx context.Context, roomID, host string) (bool, error)

	// Statistics projection
	// RecomputeRoomStats re-derives the room's counters from the event
	// graph and current state winners and upserts the stats row. Idempotent
	// by construction; safe to repeat during re-drive.
	RecomputeRoomStats(ctx context.Context, roomID string) error
	RoomStats(ctx context.Context, roomID string) (*model.RoomStats, error)

	// Annotation stores
	InsertFeedback(ctx context.Context, f *model.Feedback) error
	InsertTopic(ctx context.Context, t *model.Topic) error
	InsertRoomName(ctx context.Context, n *model.RoomName) error
	RoomFeedback(ctx context.Context, roomID string) ([]*model.Feedback, error)
	CurrentTopic(ctx context.Context, roomID string) (*model.Topic, error)
	CurrentRoomName(ctx context.Context, roomID string) (*model.RoomName, error)

	// Transaction support
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Lifecycle
	Close() error
}
