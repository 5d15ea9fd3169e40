package sync

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/groblegark/roomstore/internal/model"
	"github.com/groblegark/roomstore/internal/store"
)

// journalStore serves a fixed journal; the embedded interface panics on
// anything the export does not call.
type journalStore struct {
	store.Store
	rooms    []*model.Room
	events   map[string][]*model.Event // by room, in stream order
	payloads map[string]*model.EventPayload
}

func (s *journalStore) ListRooms(ctx context.Context) ([]*model.Room, error) {
	return s.rooms, nil
}

func (s *journalStore) ListRoomEvents(ctx context.Context, roomID string, filter model.EventFilter) ([]*model.Event, error) {
	filter = filter.Normalize()
	var out []*model.Event
	for _, e := range s.events[roomID] {
		if filter.From > 0 && e.StreamOrdering <= filter.From {
			continue
		}
		out = append(out, e)
		if len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (s *journalStore) GetEvent(ctx context.Context, eventID string) (*model.Event, *model.EventPayload, error) {
	for _, events := range s.events {
		for _, e := range events {
			if e.EventID == eventID {
				return e, s.payloads[eventID], nil
			}
		}
	}
	return nil, nil, store.ErrNotFound
}

func testJournal() *journalStore {
	now := time.Now().UTC()
	return &journalStore{
		rooms: []*model.Room{
			{RoomID: "!a:example.org", IsPublic: true, Creator: "@alice:example.org"},
			{RoomID: "!b:example.org"},
		},
		events: map[string][]*model.Event{
			"!a:example.org": {
				{EventID: "$1:example.org", RoomID: "!a:example.org", Type: model.TypeCreate, StreamOrdering: 1, ReceivedAt: now},
				{EventID: "$2:example.org", RoomID: "!a:example.org", Type: model.TypeMessage, StreamOrdering: 2, ReceivedAt: now},
			},
			"!b:example.org": {
				{EventID: "$3:example.org", RoomID: "!b:example.org", Type: model.TypeCreate, StreamOrdering: 3, ReceivedAt: now},
			},
		},
		payloads: map[string]*model.EventPayload{
			"$2:example.org": {EventID: "$2:example.org", JSON: []byte(`{"type":"m.room.message"}`)},
		},
	}
}

func TestExportJSONL(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportJSONL(context.Background(), testJournal(), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	scanner := bufio.NewScanner(&buf)

	// Header first.
	if !scanner.Scan() {
		t.Fatal("missing header line")
	}
	var h header
	if err := json.Unmarshal(scanner.Bytes(), &h); err != nil {
		t.Fatalf("bad header: %v", err)
	}
	if h.Type != "roomstore.journal" || h.RoomCount != 2 || h.EventCount != 3 {
		t.Fatalf("got header %+v", h)
	}

	// Then rooms, then events, each line typed.
	var roomLines, eventLines int
	var sawPayload bool
	for scanner.Scan() {
		var rec struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("bad line: %v", err)
		}
		switch rec.Type {
		case "room":
			roomLines++
		case "event":
			eventLines++
			var er eventRecord
			if err := json.Unmarshal(rec.Data, &er); err != nil {
				t.Fatalf("bad event record: %v", err)
			}
			if er.Event.EventID == "$2:example.org" {
				if string(er.JSON) != `{"type":"m.room.message"}` {
					t.Fatalf("payload bytes altered: %s", er.JSON)
				}
				sawPayload = true
			}
		default:
			t.Fatalf("unknown record type %q", rec.Type)
		}
	}
	if roomLines != 2 || eventLines != 3 {
		t.Fatalf("got %d room and %d event lines", roomLines, eventLines)
	}
	if !sawPayload {
		t.Fatal("exported event should carry its raw payload")
	}
}

// Internal metadata is an opaque blob; an export must survive bytes that
// are not valid JSON and hand them back unchanged on decode.
func TestExportJSONL_OpaqueMetadata(t *testing.T) {
	js := testJournal()
	meta := []byte{0x00, 0xff, 'r', 'a', 'w'}
	js.payloads["$2:example.org"].InternalMetadata = meta

	var buf bytes.Buffer
	if err := ExportJSONL(context.Background(), js, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	scanner := bufio.NewScanner(&buf)
	var found bool
	for scanner.Scan() {
		var rec struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("bad line: %v", err)
		}
		if rec.Type != "event" {
			continue
		}
		var er eventRecord
		if err := json.Unmarshal(rec.Data, &er); err != nil {
			t.Fatalf("bad event record: %v", err)
		}
		if er.Event.EventID == "$2:example.org" {
			if !bytes.Equal(er.InternalMetadata, meta) {
				t.Fatalf("metadata altered: %v", er.InternalMetadata)
			}
			found = true
		}
	}
	if !found {
		t.Fatal("exported event should carry its internal metadata")
	}
}

func TestExportJSONL_Empty(t *testing.T) {
	var buf bytes.Buffer
	empty := &journalStore{}
	if err := ExportJSONL(context.Background(), empty, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var h header
	if err := json.Unmarshal(buf.Bytes(), &h); err != nil {
		t.Fatalf("bad header: %v", err)
	}
	if h.RoomCount != 0 || h.EventCount != 0 {
		t.Fatalf("got header %+v", h)
	}
}

// captureDestination records every payload written to it.
type captureDestination struct {
	mu     sync.Mutex
	writes [][]byte
}

func (d *captureDestination) Write(ctx context.Context, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	d.writes = append(d.writes, cp)
	return nil
}

func (d *captureDestination) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.writes)
}

func TestSchedulerSyncsOnStart(t *testing.T) {
	dest := &captureDestination{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s := NewScheduler(testJournal(), []Destination{dest}, time.Hour, logger)
	s.Start()
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for dest.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if dest.count() == 0 {
		t.Fatal("scheduler should sync immediately at startup")
	}

	var h header
	if err := json.Unmarshal(bytes.SplitN(dest.writes[0], []byte("\n"), 2)[0], &h); err != nil {
		t.Fatalf("destination did not receive a journal: %v", err)
	}
	if h.EventCount != 3 {
		t.Fatalf("got header %+v", h)
	}
}
