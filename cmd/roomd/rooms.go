package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/groblegark/roomstore/internal/store"
)

var roomsCmd = &cobra.Command{
	Use:     "rooms",
	Short:   "List known rooms",
	GroupID: "queries",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		rooms, err := s.ListRooms(context.Background())
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(rooms)
			return nil
		}
		printRoomsTable(rooms)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:     "stats <room-id>",
	Short:   "Show derived statistics for a room",
	GroupID: "queries",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		st, err := s.RoomStats(context.Background(), args[0])
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no statistics recorded for %s", args[0])
		}
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(st)
			return nil
		}
		printRoomStats(st)
		return nil
	},
}

var hostsCmd = &cobra.Command{
	Use:     "hosts <room-id> [host]",
	Short:   "List federated hosts known to participate in a room",
	Long:    "List federated hosts known to participate in a room. With a host argument, check whether that one host is known instead.",
	GroupID: "queries",
	Args:    cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		if len(args) == 2 {
			known, err := s.IsRoomHost(context.Background(), args[0], args[1])
			if err != nil {
				return err
			}
			if jsonOutput {
				printJSON(map[string]bool{"known": known})
				return nil
			}
			if !known {
				return fmt.Errorf("%s is not a known host of %s", args[1], args[0])
			}
			fmt.Printf("%s is a known host of %s\n", args[1], args[0])
			return nil
		}

		hosts, err := s.RoomHosts(context.Background(), args[0])
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(hosts)
			return nil
		}
		for _, h := range hosts {
			fmt.Println(h)
		}
		return nil
	},
}
