package model

// Membership is the value of an m.room.member state event.
type Membership string

const (
	MembershipJoin   Membership = "join"
	MembershipInvite Membership = "invite"
	MembershipLeave  Membership = "leave"
	MembershipBan    Membership = "ban"
	MembershipKnock  Membership = "knock"
)

// String returns the string representation of the membership value.
func (m Membership) String() string {
	return string(m)
}

// IsValid checks whether the membership is a known value.
func (m Membership) IsValid() bool {
	switch m {
	case MembershipJoin, MembershipInvite, MembershipLeave, MembershipBan, MembershipKnock:
		return true
	}
	return false
}

// RoomMembership is the derived membership fact for one m.room.member event.
// One row exists per originating event; whether it is the current membership
// for its (room, user) pair is decided by the current-state pointer, not here.
type RoomMembership struct {
	EventID    string     `json:"event_id"`
	UserID     string     `json:"user_id"`
	Sender     string     `json:"sender"`
	RoomID     string     `json:"room_id"`
	Membership Membership `json:"membership"`
}

// memberContent is the interpreted portion of m.room.member content.
type memberContent struct {
	Membership string `json:"membership"`
}

// MembershipOf projects an m.room.member event into its RoomMembership row.
// The target user is the event's state key; the membership value comes from
// content. Returns false when the event is not a well-formed member event.
func MembershipOf(e *Event) (*RoomMembership, bool) {
	if e.Type != TypeMember || e.StateKey == nil {
		return nil, false
	}
	var c memberContent
	if err := contentOf(e.Content, &c); err != nil {
		return nil, false
	}
	m := Membership(c.Membership)
	if !m.IsValid() {
		return nil, false
	}
	return &RoomMembership{
		EventID:    e.EventID,
		UserID:     *e.StateKey,
		Sender:     e.Sender,
		RoomID:     e.RoomID,
		Membership: m,
	}, true
}
