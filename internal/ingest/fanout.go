package ingest

import (
	"context"
	"errors"

	"github.com/groblegark/roomstore/internal/events"
	"github.com/groblegark/roomstore/internal/model"
	"github.com/groblegark/roomstore/internal/store"
)

// fanout applies an event to every derived store and marks it processed, in
// one transaction. Every upsert is idempotent on event identifier, so
// re-driving a partially-applied event after a crash is always safe.
func (in *Ingester) fanout(ctx context.Context, e *model.Event, winner bool) error {
	var (
		membership *model.RoomMembership
		topic      *model.Topic
		name       *model.RoomName
	)

	err := in.store.RunInTransaction(ctx, func(tx store.Store) error {
		if host := model.ServerName(e.Sender); host != "" {
			if err := tx.AddRoomHost(ctx, e.RoomID, host); err != nil {
				return err
			}
		}

		if e.IsState() {
			se := model.StateEventOf(e)
			if err := ignoreDuplicate(tx.InsertStateEvent(ctx, se)); err != nil {
				return err
			}
			if winner {
				if err := tx.SetCurrentState(ctx, se); err != nil {
					return err
				}
			}
		}

		if m, ok := model.MembershipOf(e); ok {
			if err := ignoreDuplicate(tx.InsertMembership(ctx, m)); err != nil {
				return err
			}
			if host := model.ServerName(m.UserID); host != "" {
				if err := tx.AddRoomHost(ctx, e.RoomID, host); err != nil {
					return err
				}
			}
			membership = m
		}

		if f, ok := model.FeedbackOf(e); ok {
			if err := ignoreDuplicate(tx.InsertFeedback(ctx, f)); err != nil {
				return err
			}
		}
		if t, ok := model.TopicOf(e); ok {
			if err := ignoreDuplicate(tx.InsertTopic(ctx, t)); err != nil {
				return err
			}
			topic = t
		}
		if n, ok := model.RoomNameOf(e); ok {
			if err := ignoreDuplicate(tx.InsertRoomName(ctx, n)); err != nil {
				return err
			}
			name = n
		}

		if err := tx.RecomputeRoomStats(ctx, e.RoomID); err != nil {
			return err
		}
		return tx.MarkEventProcessed(ctx, e.EventID)
	})
	if err != nil {
		return err
	}
	e.Processed = true

	in.notify(ctx, events.TopicEventPersisted, events.EventPersisted{Event: e})
	if e.Type == model.TypeCreate {
		in.notify(ctx, events.TopicRoomCreated, events.RoomCreated{Room: roomForEvent(e)})
	}
	if e.IsState() && winner {
		se := model.StateEventOf(e)
		in.notify(ctx, events.TopicStateChanged, events.StateChanged{
			RoomID:   se.RoomID,
			Type:     se.Type,
			StateKey: se.StateKey,
			EventID:  se.EventID,
		})
	}
	if membership != nil {
		in.notify(ctx, events.TopicMembershipChanged, events.MembershipChanged{Membership: membership})
	}
	if topic != nil {
		in.notify(ctx, events.TopicTopicChanged, events.TopicChanged{Topic: topic})
	}
	if name != nil {
		in.notify(ctx, events.TopicNameChanged, events.NameChanged{Name: name})
	}

	return nil
}

// ignoreDuplicate keeps fan-out idempotent: a row already written by an
// earlier attempt is not an error.
func ignoreDuplicate(err error) error {
	if errors.Is(err, store.ErrDuplicateEvent) {
		return nil
	}
	return err
}
