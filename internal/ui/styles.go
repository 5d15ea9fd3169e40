package ui

import "fmt"

// ANSI256 color codes for table output.
const (
	colorAccent = 74  // blue
	colorMuted  = 245 // medium gray
	colorJoin   = 70  // green
	colorLeave  = 131 // dull red
	colorBan    = 160 // red
	colorInvite = 178 // amber
)

var noColor bool

func render(color int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", color, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string {
	return render(colorAccent, s)
}

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string {
	return render(colorMuted, s)
}

// RenderMembership colorizes a membership value: green for join, amber for
// invite, red shades for leave and ban. Unknown values pass through.
func RenderMembership(membership string) string {
	switch membership {
	case "join":
		return render(colorJoin, membership)
	case "invite":
		return render(colorInvite, membership)
	case "leave", "knock":
		return render(colorLeave, membership)
	case "ban":
		return render(colorBan, membership)
	}
	return membership
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}
