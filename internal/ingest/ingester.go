// Package ingest drives the write path: coordinate assignment, the atomic
// event insert, and the idempotent fan-out into the derived stores.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/groblegark/roomstore/internal/events"
	"github.com/groblegark/roomstore/internal/model"
	"github.com/groblegark/roomstore/internal/ordering"
	"github.com/groblegark/roomstore/internal/store"
)

// maxOrderingRetries bounds how often a persist is retried after an
// ordering conflict before the failure is surfaced.
const maxOrderingRetries = 3

// errAlreadyPersisted short-circuits the persist transaction when the event
// id is already present. Never escapes Persist.
var errAlreadyPersisted = errors.New("already persisted")

// Ingester owns the write path for inbound events.
type Ingester struct {
	store     store.Store
	assigner  *ordering.Assigner
	publisher events.Publisher
	logger    *slog.Logger
}

// New creates an ingester. The assigner must have been recovered from the
// same store so sequence numbers continue where the last run stopped.
func New(s store.Store, a *ordering.Assigner, pub events.Publisher, logger *slog.Logger) *Ingester {
	if pub == nil {
		pub = &events.NoopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingester{store: s, assigner: a, publisher: pub, logger: logger}
}

// PersistResult reports what Persist did with an event.
type PersistResult struct {
	Event *model.Event
	// Duplicate is true when the event id was already present. Redelivery
	// is expected, so this is a success, and no sequence number was
	// consumed for it.
	Duplicate bool
}

// Persist writes one event and fans it out to the derived stores.
//
// The event and its payload are inserted in a single transaction under the
// room's write lock, after coordinate assignment. A duplicate identifier is
// reported as success without consuming a sequence number. Ordering
// conflicts (another process claimed the same sequence number) are retried
// with re-derived coordinates. Fan-out failures leave the event persisted
// but unprocessed; Redrive picks those up, so callers normally treat the
// returned error as transient.
func (in *Ingester) Persist(ctx context.Context, e *model.Event, payload *model.EventPayload, winner bool) (*PersistResult, error) {
	if e == nil || e.EventID == "" || e.RoomID == "" || e.Type == "" {
		return nil, fmt.Errorf("event id, room id and type are required")
	}
	if e.ReceivedAt.IsZero() {
		e.ReceivedAt = time.Now().UTC()
	}

	unlock := in.assigner.LockRoom(e.RoomID)
	defer unlock()

	var lastErr error
	for attempt := 0; attempt < maxOrderingRetries; attempt++ {
		err := in.store.RunInTransaction(ctx, func(tx store.Store) error {
			return in.persistTx(ctx, tx, e, payload)
		})
		switch {
		case err == nil:
			lastErr = nil
		case errors.Is(err, errAlreadyPersisted):
			return &PersistResult{Event: e, Duplicate: true}, nil
		case errors.Is(err, store.ErrOrderingConflict):
			lastErr = err
			if rerr := in.assigner.Resync(ctx, in.store); rerr != nil {
				return nil, rerr
			}
			in.logger.Warn("ordering conflict, retrying", "event_id", e.EventID, "attempt", attempt+1)
			continue
		default:
			return nil, err
		}
		break
	}
	if lastErr != nil {
		return nil, fmt.Errorf("persist %s: %w", e.EventID, lastErr)
	}

	if err := in.fanout(ctx, e, winner); err != nil {
		return nil, fmt.Errorf("fan out %s: %w", e.EventID, err)
	}

	return &PersistResult{Event: e}, nil
}

// persistTx runs the insert half of Persist inside one transaction: the
// duplicate check, room creation, coordinate assignment, referential checks
// and the event+payload insert. Either everything lands or nothing does.
func (in *Ingester) persistTx(ctx context.Context, tx store.Store, e *model.Event, payload *model.EventPayload) error {
	// Check identity before touching the sequence counter so duplicate
	// deliveries never consume a number.
	exists, err := tx.EventExists(ctx, e.EventID)
	if err != nil {
		return err
	}
	if exists {
		return errAlreadyPersisted
	}

	if err := tx.EnsureRoom(ctx, roomForEvent(e)); err != nil {
		return err
	}

	depth, err := ordering.Depth(ctx, tx, e)
	if err != nil {
		return err
	}

	// A declared supersession target must exist before the event is
	// accepted; rejecting here keeps the whole write atomic.
	if e.IsState() && e.PrevState != "" {
		ok, err := tx.EventExists(ctx, e.PrevState)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("supersession target %s of %s: %w", e.PrevState, e.EventID, store.ErrReferentialViolation)
		}
	}

	e.Depth = depth
	e.TopologicalOrdering = depth
	e.StreamOrdering = in.assigner.NextSeq()
	e.Processed = false

	err = tx.InsertEvent(ctx, e, payload)
	if errors.Is(err, store.ErrDuplicateEvent) {
		// Lost a race with another writer inserting the same id.
		return errAlreadyPersisted
	}
	return err
}

// ApplyStateWinner records an external resolution decision: the given state
// event becomes the winner for its (room, type, state_key) slot. Applying
// the same winner twice is a no-op.
func (in *Ingester) ApplyStateWinner(ctx context.Context, eventID string) error {
	se, err := in.store.GetStateEvent(ctx, eventID)
	if err != nil {
		return fmt.Errorf("load state event %s: %w", eventID, err)
	}
	err = in.store.RunInTransaction(ctx, func(tx store.Store) error {
		if err := tx.SetCurrentState(ctx, se); err != nil {
			return err
		}
		// A winner change moves the member and state counters.
		return tx.RecomputeRoomStats(ctx, se.RoomID)
	})
	if err != nil {
		return fmt.Errorf("set current state for %s: %w", eventID, err)
	}

	in.notify(ctx, events.TopicStateChanged, events.StateChanged{
		RoomID:   se.RoomID,
		Type:     se.Type,
		StateKey: se.StateKey,
		EventID:  se.EventID,
	})
	return nil
}

// notify publishes a bus notification, logging instead of failing: the
// store is already consistent by the time notifications go out.
func (in *Ingester) notify(ctx context.Context, topic string, payload any) {
	if err := in.publisher.Publish(ctx, topic, payload); err != nil {
		in.logger.Warn("failed to publish event", "topic", topic, "err", err)
	}
}

// roomForEvent builds the registry row created when the first event for a
// room arrives. Creation events carry the creator and visibility; for any
// other event the registry learns only that the room exists.
func roomForEvent(e *model.Event) *model.Room {
	r := &model.Room{RoomID: e.RoomID}
	if e.Type == model.TypeCreate {
		r.Creator = e.Sender
		var c struct {
			Visibility string `json:"visibility"`
		}
		if len(e.Content) > 0 {
			_ = json.Unmarshal(e.Content, &c)
		}
		r.IsPublic = c.Visibility == "public"
	}
	return r
}
