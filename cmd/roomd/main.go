package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/groblegark/roomstore/internal/store/postgres"
	"github.com/groblegark/roomstore/internal/ui"
)

var (
	databaseURL string
	jsonOutput  bool
)

func defaultDatabaseURL() string {
	if s := os.Getenv("ROOMSTORE_DATABASE_URL"); s != "" {
		return s
	}
	if u := activeProfileDatabaseURL(); u != "" {
		return u
	}
	return ""
}

// openStore connects the ops subcommands directly to the database; the read
// surface of this layer is the store itself, there is no API tier in front.
func openStore() (*postgres.PostgresStore, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required (--database-url, ROOMSTORE_DATABASE_URL, or an active profile)")
	}
	return postgres.New(databaseURL)
}

var rootCmd = &cobra.Command{
	Use:   "roomd <command>",
	Short: "Room event store daemon and ops tool",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", defaultDatabaseURL(), "PostgreSQL connection URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddGroup(
		&cobra.Group{ID: "queries", Title: "Queries:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false

	// Queries
	rootCmd.AddCommand(roomsCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(eventCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(membersCmd)
	rootCmd.AddCommand(membershipCmd)
	rootCmd.AddCommand(roomsOfCmd)
	rootCmd.AddCommand(hostsCmd)
	rootCmd.AddCommand(topicCmd)
	rootCmd.AddCommand(nameCmd)
	rootCmd.AddCommand(feedbackCmd)
	rootCmd.AddCommand(statsCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(profileCmd)
}

func main() {
	if !ui.ShouldUseColor() {
		ui.ForceNoColor()
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
