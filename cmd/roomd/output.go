package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/groblegark/roomstore/internal/model"
	"github.com/groblegark/roomstore/internal/ui"
)

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func printRoomsTable(rooms []*model.Room) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ROOM\tVISIBILITY\tCREATOR")
	for _, r := range rooms {
		visibility := ui.RenderMuted("private")
		if r.IsPublic {
			visibility = ui.RenderAccent("public")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.RoomID, visibility, r.Creator)
	}
	w.Flush()
	fmt.Printf("\n%d rooms\n", len(rooms))
}

func printEventsTable(events []*model.Event) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STREAM\tDEPTH\tTYPE\tSENDER\tEVENT")
	for _, e := range events {
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\n",
			e.StreamOrdering,
			e.Depth,
			e.Type,
			e.Sender,
			e.EventID,
		)
	}
	w.Flush()
	fmt.Printf("\n%d events\n", len(events))
}

func printEventDetail(e *model.Event) {
	fmt.Printf("Event:      %s\n", e.EventID)
	fmt.Printf("Room:       %s\n", e.RoomID)
	fmt.Printf("Type:       %s\n", e.Type)
	fmt.Printf("Sender:     %s\n", e.Sender)
	if e.StateKey != nil {
		fmt.Printf("State Key:  %q\n", *e.StateKey)
	}
	fmt.Printf("Depth:      %d\n", e.Depth)
	fmt.Printf("Stream:     %d\n", e.StreamOrdering)
	fmt.Printf("Topo:       %d\n", e.TopologicalOrdering)
	fmt.Printf("Processed:  %t\n", e.Processed)
	if e.Outlier {
		fmt.Printf("Outlier:    true\n")
	}
	fmt.Printf("Received:   %s\n", e.ReceivedAt.Format("2006-01-02 15:04:05"))
	if len(e.Content) > 0 {
		fmt.Printf("Content:    %s\n", string(e.Content))
	}
}

func printMembershipsTable(members []*model.RoomMembership) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "USER\tROOM\tMEMBERSHIP\tEVENT")
	for _, m := range members {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			m.UserID, m.RoomID, ui.RenderMembership(m.Membership.String()), ui.RenderMuted(m.EventID))
	}
	w.Flush()
	fmt.Printf("\n%d memberships\n", len(members))
}

func printRoomStats(st *model.RoomStats) {
	fmt.Printf("Room:                 %s\n", st.RoomID)
	fmt.Printf("Current state events: %d\n", st.CurrentStateEvents)
	fmt.Printf("Joined members:       %d\n", st.JoinedMembers)
	fmt.Printf("Invited members:      %d\n", st.InvitedMembers)
	fmt.Printf("Left members:         %d\n", st.LeftMembers)
	fmt.Printf("Banned members:       %d\n", st.BannedMembers)
	fmt.Printf("Events:               %d\n", st.SentEvents)
}

func printFeedbackTable(fb []*model.Feedback) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SENDER\tTYPE\tTARGET\tEVENT")
	for _, f := range fb {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			f.Sender, f.FeedbackType, f.TargetEventID, ui.RenderMuted(f.EventID))
	}
	w.Flush()
	fmt.Printf("\n%d feedback events\n", len(fb))
}

func printCurrentStateTable(entries []*model.CurrentStateEvent) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tSTATE KEY\tEVENT")
	for _, cs := range entries {
		fmt.Fprintf(w, "%s\t%q\t%s\n", cs.Type, cs.StateKey, cs.EventID)
	}
	w.Flush()
	fmt.Printf("\n%d state entries\n", len(entries))
}
