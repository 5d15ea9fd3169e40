package model

import (
	"encoding/json"
	"time"
)

// Well-known event types. Event types are extensible; any non-empty string
// is a valid type, these are the ones the derived stores recognize.
const (
	TypeCreate   = "m.room.create"
	TypeMember   = "m.room.member"
	TypeName     = "m.room.name"
	TypeTopic    = "m.room.topic"
	TypeMessage  = "m.room.message"
	TypeFeedback = "m.room.message.feedback"
	TypeJoinRule = "m.room.join_rules"
)

// Event is a single event in a room's append-only graph.
//
// Two independent orderings are tracked: StreamOrdering is the arrival axis
// (unique, strictly increasing with insertion, used for pagination) and
// Depth/TopologicalOrdering is the causal axis (ancestors sort before
// descendants). Neither alone totally orders concurrent events; queries
// break topological ties by stream ordering.
type Event struct {
	EventID string `json:"event_id"`
	RoomID  string `json:"room_id"`
	Type    string `json:"type"`
	Sender  string `json:"sender,omitempty"`

	// StateKey is non-nil for state events. The empty string is a valid
	// state key, so presence is tracked with a pointer.
	StateKey *string `json:"state_key,omitempty"`

	// PrevState is the event this one supersedes for its (type, state_key)
	// slot, when the sender declared one. State events only.
	PrevState string `json:"prev_state,omitempty"`

	Content json.RawMessage `json:"content"`

	// UnrecognizedKeys preserves top-level keys this layer does not
	// interpret, verbatim, so re-serialization is lossless.
	UnrecognizedKeys json.RawMessage `json:"unrecognized_keys,omitempty"`

	// PrevEventIDs are the declared causal predecessors. They are input to
	// depth assignment and are not themselves a stored relation.
	PrevEventIDs []string `json:"prev_events,omitempty"`

	Depth               int64 `json:"depth"`
	StreamOrdering      int64 `json:"stream_ordering"`
	TopologicalOrdering int64 `json:"topological_ordering"`

	// Processed is set once the event has been fully fanned out to the
	// derived stores. Events persisted but not yet processed are re-driven
	// after a crash.
	Processed bool `json:"processed"`

	// Outlier marks an event fetched out of causal context (no usable
	// ancestry). Outliers take depth 0 and skip predecessor checks.
	Outlier bool `json:"outlier"`

	ReceivedAt time.Time `json:"received_at"`
}

// IsState reports whether the event carries room state.
func (e *Event) IsState() bool {
	return e.StateKey != nil
}

// EventPayload is the 1:1 companion to Event holding the raw signed JSON
// and storage-internal metadata. It is created with the event and never
// independently.
type EventPayload struct {
	EventID          string `json:"event_id"`
	JSON             []byte `json:"json"`
	InternalMetadata []byte `json:"internal_metadata,omitempty"`
}

// StateEvent is a row in the state history: one per state event, carrying
// the slot coordinates and the optional supersession back-reference.
// Supersession chains may branch under concurrent history; which branch
// wins is decided externally and recorded in CurrentStateEvent.
type StateEvent struct {
	EventID   string `json:"event_id"`
	RoomID    string `json:"room_id"`
	Type      string `json:"type"`
	StateKey  string `json:"state_key"`
	PrevState string `json:"prev_state,omitempty"`
}

// CurrentStateEvent points at the winning event for one
// (room, type, state_key) slot. At most one row exists per slot.
type CurrentStateEvent struct {
	RoomID   string `json:"room_id"`
	Type     string `json:"type"`
	StateKey string `json:"state_key"`
	EventID  string `json:"event_id"`
}

// StateEventOf projects an event into its state-history row. The event must
// be a state event.
func StateEventOf(e *Event) *StateEvent {
	key := ""
	if e.StateKey != nil {
		key = *e.StateKey
	}
	return &StateEvent{
		EventID:   e.EventID,
		RoomID:    e.RoomID,
		Type:      e.Type,
		StateKey:  key,
		PrevState: e.PrevState,
	}
}

// contentOf unmarshals the event content into dst, tolerating empty content.
func contentOf(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
