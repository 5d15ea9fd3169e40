package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/groblegark/roomstore/internal/model"
	"github.com/groblegark/roomstore/internal/store"
)

// exportPageSize is how many events each journal page fetches per room.
const exportPageSize = 500

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version    string    `json:"version"`
	Type       string    `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	RoomCount  int       `json:"room_count"`
	EventCount int       `json:"event_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// eventRecord is an event plus its raw payload, as exported. The payload
// JSON is emitted verbatim; internal metadata is an opaque blob and goes
// out base64-encoded.
type eventRecord struct {
	Event            *model.Event    `json:"event"`
	JSON             json.RawMessage `json:"json,omitempty"`
	InternalMetadata []byte          `json:"internal_metadata,omitempty"`
}

// ExportJSONL writes all rooms and their events from the store as JSONL to
// w, in stream order per room. The export walks each room's journal page by
// page, so a restarted export re-pages from the store rather than holding a
// cursor open.
func ExportJSONL(ctx context.Context, s store.Store, w io.Writer) error {
	rooms, err := s.ListRooms(ctx)
	if err != nil {
		return fmt.Errorf("list rooms: %w", err)
	}

	var allEvents []*eventRecord
	for _, room := range rooms {
		from := int64(0)
		for {
			page, err := s.ListRoomEvents(ctx, room.RoomID, model.EventFilter{
				From:  from,
				Limit: exportPageSize,
				Order: model.OrderStream,
			})
			if err != nil {
				return fmt.Errorf("list events for %s: %w", room.RoomID, err)
			}
			for _, e := range page {
				_, payload, err := s.GetEvent(ctx, e.EventID)
				if err != nil {
					return fmt.Errorf("get payload for %s: %w", e.EventID, err)
				}
				rec := &eventRecord{Event: e}
				if payload != nil {
					rec.JSON = json.RawMessage(payload.JSON)
					rec.InternalMetadata = payload.InternalMetadata
				}
				allEvents = append(allEvents, rec)
				from = e.StreamOrdering
			}
			if len(page) < exportPageSize {
				break
			}
		}
	}

	enc := json.NewEncoder(w)

	h := header{
		Version:    "1",
		Type:       "roomstore.journal",
		Timestamp:  time.Now().UTC(),
		RoomCount:  len(rooms),
		EventCount: len(allEvents),
	}
	if err := enc.Encode(h); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, room := range rooms {
		if err := enc.Encode(record{Type: "room", Data: room}); err != nil {
			return fmt.Errorf("write room %s: %w", room.RoomID, err)
		}
	}
	for _, rec := range allEvents {
		if err := enc.Encode(record{Type: "event", Data: rec}); err != nil {
			return fmt.Errorf("write event %s: %w", rec.Event.EventID, err)
		}
	}

	return nil
}
