package model

// Room is one row per room identifier, created when the first event for the
// room is observed. Rooms are never deleted by this layer.
type Room struct {
	RoomID   string `json:"room_id"`
	IsPublic bool   `json:"is_public"`
	Creator  string `json:"creator,omitempty"`
}

// RoomHost records that a federated host is known to participate in a room.
// Hosts are only ever added.
type RoomHost struct {
	RoomID string `json:"room_id"`
	Host   string `json:"host"`
}

// RoomStats is the per-room statistics projection: counters derived from the
// event graph and the current state winners. Counters are recomputed, never
// incremented, so re-applying an event leaves them correct.
type RoomStats struct {
	RoomID             string `json:"room_id"`
	CurrentStateEvents int64  `json:"current_state_events"`
	JoinedMembers      int64  `json:"joined_members"`
	InvitedMembers     int64  `json:"invited_members"`
	LeftMembers        int64  `json:"left_members"`
	BannedMembers      int64  `json:"banned_members"`
	SentEvents         int64  `json:"sent_events"`
}

// Feedback is the annotation row for an m.room.message.feedback event.
type Feedback struct {
	EventID       string `json:"event_id"`
	RoomID        string `json:"room_id"`
	Sender        string `json:"sender"`
	TargetEventID string `json:"target_event_id,omitempty"`
	FeedbackType  string `json:"feedback_type,omitempty"`
}

// Topic is the annotation row for an m.room.topic event.
type Topic struct {
	EventID string `json:"event_id"`
	RoomID  string `json:"room_id"`
	Topic   string `json:"topic"`
}

// RoomName is the annotation row for an m.room.name event.
type RoomName struct {
	EventID string `json:"event_id"`
	RoomID  string `json:"room_id"`
	Name    string `json:"name"`
}

// feedbackContent is the interpreted portion of feedback event content.
type feedbackContent struct {
	TargetEventID string `json:"target_event_id"`
	Type          string `json:"type"`
}

// topicContent is the interpreted portion of m.room.topic content.
type topicContent struct {
	Topic string `json:"topic"`
}

// nameContent is the interpreted portion of m.room.name content.
type nameContent struct {
	Name string `json:"name"`
}

// FeedbackOf projects a feedback event into its annotation row.
func FeedbackOf(e *Event) (*Feedback, bool) {
	if e.Type != TypeFeedback {
		return nil, false
	}
	var c feedbackContent
	if err := contentOf(e.Content, &c); err != nil {
		return nil, false
	}
	return &Feedback{
		EventID:       e.EventID,
		RoomID:        e.RoomID,
		Sender:        e.Sender,
		TargetEventID: c.TargetEventID,
		FeedbackType:  c.Type,
	}, true
}

// TopicOf projects an m.room.topic event into its annotation row.
func TopicOf(e *Event) (*Topic, bool) {
	if e.Type != TypeTopic {
		return nil, false
	}
	var c topicContent
	if err := contentOf(e.Content, &c); err != nil {
		return nil, false
	}
	return &Topic{EventID: e.EventID, RoomID: e.RoomID, Topic: c.Topic}, true
}

// RoomNameOf projects an m.room.name event into its annotation row.
func RoomNameOf(e *Event) (*RoomName, bool) {
	if e.Type != TypeName {
		return nil, false
	}
	var c nameContent
	if err := contentOf(e.Content, &c); err != nil {
		return nil, false
	}
	return &RoomName{EventID: e.EventID, RoomID: e.RoomID, Name: c.Name}, true
}

// ServerName extracts the host part of a federated identifier such as
// "@alice:example.org" or "!room:example.org". Returns "" when the
// identifier carries no host.
func ServerName(id string) string {
	for i := 0; i < len(id); i++ {
		if id[i] == ':' {
			return id[i+1:]
		}
	}
	return ""
}
