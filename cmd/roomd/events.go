package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/groblegark/roomstore/internal/model"
)

var eventsCmd = &cobra.Command{
	Use:     "events <room-id>",
	Short:   "List events in a room",
	GroupID: "queries",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		order, _ := cmd.Flags().GetString("order")
		from, _ := cmd.Flags().GetInt64("from")
		to, _ := cmd.Flags().GetInt64("to")
		limit, _ := cmd.Flags().GetInt("limit")
		backward, _ := cmd.Flags().GetBool("backward")

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		events, err := s.ListRoomEvents(context.Background(), args[0], model.EventFilter{
			From:     from,
			To:       to,
			Limit:    limit,
			Backward: backward,
			Order:    model.EventOrder(order),
		})
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(events)
			return nil
		}
		printEventsTable(events)
		return nil
	},
}

var eventCmd = &cobra.Command{
	Use:     "event <event-id>",
	Short:   "Show a single event",
	GroupID: "queries",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		e, _, err := s.GetEvent(context.Background(), args[0])
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(e)
			return nil
		}
		printEventDetail(e)
		return nil
	},
}

func init() {
	eventsCmd.Flags().String("order", "stream", "ordering axis (stream or topological)")
	eventsCmd.Flags().Int64("from", 0, "exclusive lower bound token (resume from here)")
	eventsCmd.Flags().Int64("to", 0, "exclusive upper bound token")
	eventsCmd.Flags().Int("limit", 20, "maximum number of events to return")
	eventsCmd.Flags().Bool("backward", false, "page backward (newest first)")
}
