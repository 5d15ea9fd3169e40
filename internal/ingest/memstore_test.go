package ingest

import (
	"context"
	"sort"
	"sync"

	"github.com/groblegark/roomstore/internal/model"
	"github.com/groblegark/roomstore/internal/store"
)

// memStore is an in-memory store.Store used by the pipeline tests. It
// mirrors the database semantics the pipeline depends on: duplicate ids,
// stream ordering uniqueness, current-state winner pointers and the
// membership join against them.
type memStore struct {
	mu sync.Mutex

	events       map[string]*model.Event
	payloads     map[string]*model.EventPayload
	stateEvents  map[string]*model.StateEvent
	currentState map[string]*model.CurrentStateEvent
	memberships  map[string]*model.RoomMembership
	rooms        map[string]*model.Room
	hosts        map[string]map[string]bool
	feedback     map[string]*model.Feedback
	topics       map[string]*model.Topic
	names        map[string]*model.RoomName
	stats        map[string]*model.RoomStats
}

func newMemStore() *memStore {
	return &memStore{
		events:       make(map[string]*model.Event),
		payloads:     make(map[string]*model.EventPayload),
		stateEvents:  make(map[string]*model.StateEvent),
		currentState: make(map[string]*model.CurrentStateEvent),
		memberships:  make(map[string]*model.RoomMembership),
		rooms:        make(map[string]*model.Room),
		hosts:        make(map[string]map[string]bool),
		feedback:     make(map[string]*model.Feedback),
		topics:       make(map[string]*model.Topic),
		names:        make(map[string]*model.RoomName),
		stats:        make(map[string]*model.RoomStats),
	}
}

func slotKey(roomID, typ, stateKey string) string {
	return roomID + "\x00" + typ + "\x00" + stateKey
}

func (m *memStore) InsertEvent(ctx context.Context, e *model.Event, p *model.EventPayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[e.EventID]; ok {
		return store.ErrDuplicateEvent
	}
	for _, other := range m.events {
		if other.StreamOrdering == e.StreamOrdering {
			return store.ErrOrderingConflict
		}
	}
	cp := *e
	m.events[e.EventID] = &cp
	if p != nil {
		pc := *p
		m.payloads[e.EventID] = &pc
	}
	return nil
}

func (m *memStore) GetEvent(ctx context.Context, eventID string) (*model.Event, *model.EventPayload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[eventID]
	if !ok {
		return nil, nil, store.ErrNotFound
	}
	cp := *e
	return &cp, m.payloads[eventID], nil
}

func (m *memStore) EventExists(ctx context.Context, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.events[eventID]
	return ok, nil
}

func (m *memStore) ListRoomEvents(ctx context.Context, roomID string, filter model.EventFilter) ([]*model.Event, error) {
	filter = filter.Normalize()
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.Event
	for _, e := range m.events {
		if e.RoomID != roomID {
			continue
		}
		token := e.StreamOrdering
		if filter.Order == model.OrderTopological {
			token = e.TopologicalOrdering
		}
		if filter.Backward {
			if filter.From > 0 && token >= filter.From {
				continue
			}
			if filter.To > 0 && token <= filter.To {
				continue
			}
		} else {
			if filter.From > 0 && token <= filter.From {
				continue
			}
			if filter.To > 0 && token >= filter.To {
				continue
			}
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		less := a.StreamOrdering < b.StreamOrdering
		if filter.Order == model.OrderTopological && a.TopologicalOrdering != b.TopologicalOrdering {
			less = a.TopologicalOrdering < b.TopologicalOrdering
		}
		if filter.Backward {
			return !less
		}
		return less
	})
	if len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *memStore) EventDepths(ctx context.Context, eventIDs []string) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	depths := make(map[string]int64)
	for _, id := range eventIDs {
		if e, ok := m.events[id]; ok {
			depths[id] = e.Depth
		}
	}
	return depths, nil
}

func (m *memStore) MaxStreamOrdering(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var max int64
	for _, e := range m.events {
		if e.StreamOrdering > max {
			max = e.StreamOrdering
		}
	}
	return max, nil
}

func (m *memStore) UnprocessedEvents(ctx context.Context, limit int) ([]*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Event
	for _, e := range m.events {
		if !e.Processed {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StreamOrdering < out[j].StreamOrdering })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) MarkEventProcessed(ctx context.Context, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[eventID]
	if !ok {
		return store.ErrNotFound
	}
	e.Processed = true
	return nil
}

func (m *memStore) InsertStateEvent(ctx context.Context, se *model.StateEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stateEvents[se.EventID]; ok {
		return store.ErrDuplicateEvent
	}
	cp := *se
	m.stateEvents[se.EventID] = &cp
	return nil
}

func (m *memStore) SetCurrentState(ctx context.Context, se *model.StateEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentState[slotKey(se.RoomID, se.Type, se.StateKey)] = &model.CurrentStateEvent{
		RoomID: se.RoomID, Type: se.Type, StateKey: se.StateKey, EventID: se.EventID,
	}
	return nil
}

func (m *memStore) GetStateEvent(ctx context.Context, eventID string) (*model.StateEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	se, ok := m.stateEvents[eventID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *se
	return &cp, nil
}

func (m *memStore) CurrentStateEvent(ctx context.Context, roomID, eventType, stateKey string) (*model.CurrentStateEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.currentState[slotKey(roomID, eventType, stateKey)]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) CurrentStateEvents(ctx context.Context, roomID string) ([]*model.CurrentStateEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.CurrentStateEvent
	for _, c := range m.currentState {
		if c.RoomID == roomID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) InsertMembership(ctx context.Context, rm *model.RoomMembership) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.memberships[rm.EventID]; ok {
		return store.ErrDuplicateEvent
	}
	cp := *rm
	m.memberships[rm.EventID] = &cp
	return nil
}

// currentMembership resolves the membership row pointed at by the winning
// m.room.member slot, mirroring the store's join.
func (m *memStore) currentMembership(roomID, userID string) *model.RoomMembership {
	c, ok := m.currentState[slotKey(roomID, model.TypeMember, userID)]
	if !ok {
		return nil
	}
	rm, ok := m.memberships[c.EventID]
	if !ok {
		return nil
	}
	cp := *rm
	return &cp
}

func (m *memStore) RoomMembers(ctx context.Context, roomID string) ([]*model.RoomMembership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.RoomMembership
	for _, c := range m.currentState {
		if c.RoomID != roomID || c.Type != model.TypeMember {
			continue
		}
		if rm := m.currentMembership(roomID, c.StateKey); rm != nil {
			out = append(out, rm)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *memStore) UserRooms(ctx context.Context, userID string) ([]*model.RoomMembership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.RoomMembership
	for _, c := range m.currentState {
		if c.Type != model.TypeMember || c.StateKey != userID {
			continue
		}
		if rm := m.currentMembership(c.RoomID, userID); rm != nil {
			out = append(out, rm)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomID < out[j].RoomID })
	return out, nil
}

func (m *memStore) Membership(ctx context.Context, roomID, userID string) (*model.RoomMembership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rm := m.currentMembership(roomID, userID)
	if rm == nil {
		return nil, store.ErrNotFound
	}
	return rm, nil
}

func (m *memStore) EnsureRoom(ctx context.Context, room *model.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[room.RoomID]; ok {
		return nil
	}
	cp := *room
	m.rooms[room.RoomID] = &cp
	return nil
}

func (m *memStore) GetRoom(ctx context.Context, roomID string) (*model.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[roomID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memStore) ListRooms(ctx context.Context) ([]*model.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Room
	for _, r := range m.rooms {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomID < out[j].RoomID })
	return out, nil
}

func (m *memStore) AddRoomHost(ctx context.Context, roomID, host string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hosts[roomID] == nil {
		m.hosts[roomID] = make(map[string]bool)
	}
	m.hosts[roomID][host] = true
	return nil
}

func (m *memStore) RoomHosts(ctx context.Context, roomID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for h := range m.hosts[roomID] {
		out = append(out, h)
	}
	sort.Strings(out)
	return out, nil
}

func (m *memStore) IsRoomHost(ctx context.Context, roomID, host string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hosts[roomID][host], nil
}

func (m *memStore) InsertFeedback(ctx context.Context, f *model.Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.feedback[f.EventID]; ok {
		return store.ErrDuplicateEvent
	}
	cp := *f
	m.feedback[f.EventID] = &cp
	return nil
}

func (m *memStore) InsertTopic(ctx context.Context, t *model.Topic) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.topics[t.EventID]; ok {
		return store.ErrDuplicateEvent
	}
	cp := *t
	m.topics[t.EventID] = &cp
	return nil
}

func (m *memStore) InsertRoomName(ctx context.Context, n *model.RoomName) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.names[n.EventID]; ok {
		return store.ErrDuplicateEvent
	}
	cp := *n
	m.names[n.EventID] = &cp
	return nil
}

func (m *memStore) RoomFeedback(ctx context.Context, roomID string) ([]*model.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Feedback
	for _, f := range m.feedback {
		if f.RoomID == roomID {
			cp := *f
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventID < out[j].EventID })
	return out, nil
}

func (m *memStore) CurrentTopic(ctx context.Context, roomID string) (*model.Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.currentState[slotKey(roomID, model.TypeTopic, "")]
	if !ok {
		return nil, store.ErrNotFound
	}
	t, ok := m.topics[c.EventID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) CurrentRoomName(ctx context.Context, roomID string) (*model.RoomName, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.currentState[slotKey(roomID, model.TypeName, "")]
	if !ok {
		return nil, store.ErrNotFound
	}
	n, ok := m.names[c.EventID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

// RecomputeRoomStats mirrors the store's full re-derivation: counters come
// from the live maps, never from the previous stats row.
func (m *memStore) RecomputeRoomStats(ctx context.Context, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := &model.RoomStats{RoomID: roomID}
	for _, c := range m.currentState {
		if c.RoomID != roomID {
			continue
		}
		st.CurrentStateEvents++
		if c.Type != model.TypeMember {
			continue
		}
		rm, ok := m.memberships[c.EventID]
		if !ok {
			continue
		}
		switch rm.Membership {
		case model.MembershipJoin:
			st.JoinedMembers++
		case model.MembershipInvite:
			st.InvitedMembers++
		case model.MembershipLeave:
			st.LeftMembers++
		case model.MembershipBan:
			st.BannedMembers++
		}
	}
	for _, e := range m.events {
		if e.RoomID == roomID {
			st.SentEvents++
		}
	}
	m.stats[roomID] = st
	return nil
}

func (m *memStore) RoomStats(ctx context.Context, roomID string) (*model.RoomStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.stats[roomID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *st
	return &cp, nil
}

// RunInTransaction runs fn against the store directly; the in-memory store
// has no rollback, which the pipeline tests do not rely on.
func (m *memStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(m)
}

func (m *memStore) Close() error { return nil }

var _ store.Store = (*memStore)(nil)

// seedEvent inserts an event directly, bypassing the pipeline. Used to
// model rows written by another process or an earlier crashed run.
func (m *memStore) seedEvent(e *model.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.events[e.EventID] = &cp
}

// recordPublisher captures published topics for assertions.
type recordPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *recordPublisher) Publish(ctx context.Context, topic string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return nil
}

func (p *recordPublisher) Close() error { return nil }

func (p *recordPublisher) published(topic string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range p.topics {
		if t == topic {
			return true
		}
	}
	return false
}

func (p *recordPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = nil
}
