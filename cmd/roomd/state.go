package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/groblegark/roomstore/internal/store"
)

var stateType string
var stateKey string

var stateCmd = &cobra.Command{
	Use:     "state <room-id>",
	Short:   "Show the current state of a room",
	Long: `Show the current state of a room.

Without flags, lists every current state entry. With --type (and
optionally --key), resolves a single winning state event.`,
	GroupID: "queries",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := context.Background()
		roomID := args[0]

		if stateType != "" {
			cs, err := s.CurrentStateEvent(ctx, roomID, stateType, stateKey)
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no current state for (%s, %q) in %s", stateType, stateKey, roomID)
			}
			if err != nil {
				return err
			}
			e, _, err := s.GetEvent(ctx, cs.EventID)
			if err != nil {
				return err
			}
			if jsonOutput {
				printJSON(e)
				return nil
			}
			printEventDetail(e)
			return nil
		}

		entries, err := s.CurrentStateEvents(ctx, roomID)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(entries)
			return nil
		}
		printCurrentStateTable(entries)
		return nil
	},
}

var topicCmd = &cobra.Command{
	Use:     "topic <room-id>",
	Short:   "Show the current topic of a room",
	GroupID: "queries",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		t, err := s.CurrentTopic(context.Background(), args[0])
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("room %s has no topic", args[0])
		}
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(t)
			return nil
		}
		fmt.Println(t.Topic)
		return nil
	},
}

var nameCmd = &cobra.Command{
	Use:     "name <room-id>",
	Short:   "Show the current name of a room",
	GroupID: "queries",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		n, err := s.CurrentRoomName(context.Background(), args[0])
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("room %s has no name", args[0])
		}
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(n)
			return nil
		}
		fmt.Println(n.Name)
		return nil
	},
}

var feedbackCmd = &cobra.Command{
	Use:     "feedback <room-id>",
	Short:   "List feedback events recorded in a room",
	GroupID: "queries",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		fb, err := s.RoomFeedback(context.Background(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(fb)
			return nil
		}
		printFeedbackTable(fb)
		return nil
	},
}

func init() {
	stateCmd.Flags().StringVar(&stateType, "type", "", "state event type to resolve")
	stateCmd.Flags().StringVar(&stateKey, "key", "", "state key (defaults to empty)")
}
