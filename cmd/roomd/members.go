package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/groblegark/roomstore/internal/store"
)

var membersCmd = &cobra.Command{
	Use:     "members <room-id>",
	Short:   "List current members of a room",
	GroupID: "queries",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		members, err := s.RoomMembers(context.Background(), args[0])
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(members)
			return nil
		}
		printMembershipsTable(members)
		return nil
	},
}

var membershipCmd = &cobra.Command{
	Use:     "membership <room-id> <user-id>",
	Short:   "Show a user's current membership in a room",
	GroupID: "queries",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		m, err := s.Membership(context.Background(), args[0], args[1])
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no current membership for %s in %s", args[1], args[0])
		}
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(m)
			return nil
		}
		fmt.Printf("User:       %s\n", m.UserID)
		fmt.Printf("Room:       %s\n", m.RoomID)
		fmt.Printf("Membership: %s\n", m.Membership)
		fmt.Printf("Sender:     %s\n", m.Sender)
		fmt.Printf("Event:      %s\n", m.EventID)
		return nil
	},
}

var roomsOfCmd = &cobra.Command{
	Use:     "rooms-of <user-id>",
	Short:   "List rooms where a user has a current membership",
	GroupID: "queries",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		memberships, err := s.UserRooms(context.Background(), args[0])
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(memberships)
			return nil
		}
		printMembershipsTable(memberships)
		return nil
	},
}
