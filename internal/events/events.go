package events

import (
	"context"

	"github.com/groblegark/roomstore/internal/model"
)

// Outbound topic constants, published after an event has been fully fanned
// out to the derived stores.
const (
	TopicEventPersisted    = "rooms.event.persisted"
	TopicStateChanged      = "rooms.state.changed"
	TopicMembershipChanged = "rooms.membership.changed"
	TopicRoomCreated       = "rooms.room.created"
	TopicTopicChanged      = "rooms.topic.changed"
	TopicNameChanged       = "rooms.name.changed"
)

// Inbound topic constants, consumed by the serve loop. The federation layer
// publishes fully-formed events here; the state-resolution collaborator
// publishes winner decisions.
const (
	TopicIngestEvent  = "rooms.ingest.event"
	TopicIngestWinner = "rooms.ingest.winner"
)

// Event types

type EventPersisted struct {
	Event *model.Event `json:"event"`
}

type StateChanged struct {
	RoomID   string `json:"room_id"`
	Type     string `json:"type"`
	StateKey string `json:"state_key"`
	EventID  string `json:"event_id"`
}

type MembershipChanged struct {
	Membership *model.RoomMembership `json:"membership"`
}

type RoomCreated struct {
	Room *model.Room `json:"room"`
}

type TopicChanged struct {
	Topic *model.Topic `json:"topic"`
}

type NameChanged struct {
	Name *model.RoomName `json:"name"`
}

// Inbound payload types

// IngestEvent is the envelope the federation layer publishes for each
// inbound event: the interpreted event plus its raw signed JSON. Winner is
// set when the resolver already decided this state event wins its slot.
type IngestEvent struct {
	Event   *model.Event        `json:"event"`
	Payload *model.EventPayload `json:"payload,omitempty"`
	Winner  bool                `json:"winner,omitempty"`
}

// IngestWinner is a standalone winner decision from the state-resolution
// collaborator for an already-persisted state event.
type IngestWinner struct {
	EventID string `json:"event_id"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
