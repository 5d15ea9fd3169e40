// Package ordering issues the two monotonic coordinates every event needs:
// a process-wide arrival sequence number and a per-room causal depth.
package ordering

import (
	"context"
	"fmt"
	"sync"

	"github.com/groblegark/roomstore/internal/model"
	"github.com/groblegark/roomstore/internal/store"
)

// Assigner allocates arrival sequence numbers and derives causal depths.
//
// The sequence counter is process-wide mutable state recovered from the
// durable store at startup; there is no implicit singleton, callers pass the
// handle to whatever needs it. Per-room locks serialize coordinate
// assignment with respect to other writes in the same room, so depth
// derivation never races; writes to different rooms proceed without mutual
// blocking.
type Assigner struct {
	mu      sync.Mutex
	lastSeq int64

	roomsMu sync.Mutex
	rooms   map[string]*sync.Mutex
}

// New creates an assigner whose next sequence number is lastSeq+1.
func New(lastSeq int64) *Assigner {
	return &Assigner{
		lastSeq: lastSeq,
		rooms:   make(map[string]*sync.Mutex),
	}
}

// Recover creates an assigner initialized from the highest sequence number
// already persisted, so restarts never reuse a coordinate.
func Recover(ctx context.Context, s store.Store) (*Assigner, error) {
	last, err := s.MaxStreamOrdering(ctx)
	if err != nil {
		return nil, fmt.Errorf("recover stream ordering: %w", err)
	}
	return New(last), nil
}

// NextSeq returns the next arrival sequence number. Numbers are unique and
// strictly increasing for the lifetime of the process.
func (a *Assigner) NextSeq() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastSeq++
	return a.lastSeq
}

// LastSeq returns the most recently issued sequence number.
func (a *Assigner) LastSeq() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastSeq
}

// Resync raises the counter to at least the store's high-water mark. Called
// after an ordering conflict, which means another writer (a second process
// on the same database) claimed a number this assigner also issued.
func (a *Assigner) Resync(ctx context.Context, s store.Store) error {
	last, err := s.MaxStreamOrdering(ctx)
	if err != nil {
		return fmt.Errorf("resync stream ordering: %w", err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if last > a.lastSeq {
		a.lastSeq = last
	}
	return nil
}

// LockRoom acquires the write lock for a room and returns the unlock
// function. Held across depth derivation and the event insert so same-room
// writers cannot interleave.
func (a *Assigner) LockRoom(roomID string) func() {
	a.roomsMu.Lock()
	mu, ok := a.rooms[roomID]
	if !ok {
		mu = &sync.Mutex{}
		a.rooms[roomID] = mu
	}
	a.roomsMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// Depth derives the causal depth for an event: one greater than the maximum
// depth of its declared predecessors, zero when it has none. Outliers are
// assigned depth zero without consulting ancestry, since they arrive without
// causal context. A non-outlier referencing an unknown predecessor is
// rejected with store.ErrReferentialViolation; the ingest layer must fetch
// the missing ancestry first.
func Depth(ctx context.Context, s store.Store, e *model.Event) (int64, error) {
	if e.Outlier || len(e.PrevEventIDs) == 0 {
		return 0, nil
	}

	depths, err := s.EventDepths(ctx, e.PrevEventIDs)
	if err != nil {
		return 0, fmt.Errorf("look up predecessor depths: %w", err)
	}

	var max int64 = -1
	for _, id := range e.PrevEventIDs {
		d, ok := depths[id]
		if !ok {
			return 0, fmt.Errorf("predecessor %s of %s: %w", id, e.EventID, store.ErrReferentialViolation)
		}
		if d > max {
			max = d
		}
	}
	return max + 1, nil
}
