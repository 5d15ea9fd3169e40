package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/groblegark/roomstore/internal/events"
	"github.com/groblegark/roomstore/internal/idgen"
	"github.com/groblegark/roomstore/internal/model"
	"github.com/groblegark/roomstore/internal/ui"
)

func defaultNATSURL() string {
	if s := os.Getenv("ROOMSTORE_NATS_URL"); s != "" {
		return s
	}
	return activeProfileNATSURL()
}

// sendCmd injects a locally-minted message through the same path federation
// traffic takes: it publishes an ingest envelope to the bus and lets the
// running daemon assign coordinates and persist it.
var sendCmd = &cobra.Command{
	Use:     "send <room-id> <body>",
	Short:   "Send a message event into a room via the daemon",
	GroupID: "system",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		roomID, body := args[0], args[1]
		sender, _ := cmd.Flags().GetString("sender")
		natsURL, _ := cmd.Flags().GetString("nats")

		origin := model.ServerName(sender)
		if origin == "" {
			return fmt.Errorf("--sender must be a federated identifier like @alice:example.org")
		}
		if natsURL == "" {
			return fmt.Errorf("NATS URL is required (--nats, ROOMSTORE_NATS_URL, or an active profile)")
		}

		eventID, err := idgen.NewEventID(origin)
		if err != nil {
			return err
		}

		// The tip of the room's arrival order becomes the new event's
		// declared predecessor, so depth advances past everything seen.
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		tip, err := s.ListRoomEvents(context.Background(), roomID, model.EventFilter{
			Limit:    1,
			Backward: true,
			Order:    model.OrderStream,
		})
		if err != nil {
			return err
		}
		var prev []string
		for _, e := range tip {
			prev = append(prev, e.EventID)
		}

		content, err := json.Marshal(map[string]string{
			"msgtype": "m.text",
			"body":    body,
		})
		if err != nil {
			return err
		}

		e := &model.Event{
			EventID:      eventID,
			RoomID:       roomID,
			Type:         model.TypeMessage,
			Sender:       sender,
			Content:      content,
			PrevEventIDs: prev,
			ReceivedAt:   time.Now().UTC(),
		}
		raw, err := json.Marshal(e)
		if err != nil {
			return err
		}

		pub, err := events.NewNATSPublisher(natsURL)
		if err != nil {
			return err
		}
		defer pub.Close()

		err = pub.Publish(context.Background(), events.TopicIngestEvent, events.IngestEvent{
			Event:   e,
			Payload: &model.EventPayload{EventID: eventID, JSON: raw},
		})
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(map[string]string{"event_id": eventID})
			return nil
		}
		fmt.Printf("Sent %s to %s\n", ui.RenderAccent(eventID), roomID)
		return nil
	},
}

func init() {
	sendCmd.Flags().String("sender", "", "sender identifier (@user:host)")
	sendCmd.Flags().String("nats", defaultNATSURL(), "NATS server URL")
	_ = sendCmd.MarkFlagRequired("sender")
}
