package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/groblegark/roomstore/internal/events"
	"github.com/groblegark/roomstore/internal/store"
)

// StartSubscriber consumes inbound federation traffic from the event bus
// and feeds it through the write path. It blocks until ctx is cancelled.
//
// Two subjects are consumed: fully-formed events from the federation layer,
// and winner decisions from the state-resolution collaborator.
func (in *Ingester) StartSubscriber(ctx context.Context, sub events.Subscriber) error {
	eventCh, cancelEvents, err := sub.Subscribe(events.TopicIngestEvent)
	if err != nil {
		return fmt.Errorf("ingest: subscribe events: %w", err)
	}
	defer cancelEvents()

	winnerCh, cancelWinners, err := sub.Subscribe(events.TopicIngestWinner)
	if err != nil {
		return fmt.Errorf("ingest: subscribe winners: %w", err)
	}
	defer cancelWinners()

	in.logger.Info("ingest: subscriber started")

	for {
		select {
		case <-ctx.Done():
			in.logger.Info("ingest: subscriber stopping")
			return nil
		case raw, ok := <-eventCh:
			if !ok {
				in.logger.Info("ingest: event subscription channel closed")
				return nil
			}
			in.handleEvent(ctx, raw)
		case raw, ok := <-winnerCh:
			if !ok {
				in.logger.Info("ingest: winner subscription channel closed")
				return nil
			}
			in.handleWinner(ctx, raw)
		}
	}
}

func (in *Ingester) handleEvent(ctx context.Context, raw []byte) {
	var msg events.IngestEvent
	if err := json.Unmarshal(raw, &msg); err != nil {
		in.logger.Warn("ingest: bad event payload", "err", err)
		return
	}
	if msg.Event == nil {
		in.logger.Warn("ingest: event payload missing event")
		return
	}

	res, err := in.Persist(ctx, msg.Event, msg.Payload, msg.Winner)
	if err != nil {
		// Referential violations mean the sender must backfill ancestry
		// first; anything else is transient. Either way the failure is
		// scoped to this one event.
		in.logger.Warn("ingest: persist failed",
			"event_id", msg.Event.EventID, "room_id", msg.Event.RoomID, "err", err)
		return
	}
	if res.Duplicate {
		in.logger.Debug("ingest: duplicate delivery", "event_id", msg.Event.EventID)
	}
}

func (in *Ingester) handleWinner(ctx context.Context, raw []byte) {
	var msg events.IngestWinner
	if err := json.Unmarshal(raw, &msg); err != nil {
		in.logger.Warn("ingest: bad winner payload", "err", err)
		return
	}
	if msg.EventID == "" {
		in.logger.Warn("ingest: winner payload missing event id")
		return
	}

	if err := in.ApplyStateWinner(ctx, msg.EventID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			in.logger.Warn("ingest: winner for unknown state event", "event_id", msg.EventID)
			return
		}
		in.logger.Warn("ingest: apply winner failed", "event_id", msg.EventID, "err", err)
	}
}
