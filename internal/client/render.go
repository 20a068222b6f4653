package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Colors for terminal output.
var (
	colorPrimary = lipgloss.Color("#7C3AED") // violet
	colorSuccess = lipgloss.Color("#10B981") // emerald
	colorError   = lipgloss.Color("#EF4444") // red
	colorMuted   = lipgloss.Color("#6B7280") // gray-500
	colorAccent  = lipgloss.Color("#F59E0B") // amber
)

var (
	styleName   = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	styleScope  = lipgloss.NewStyle().Foreground(colorAccent)
	styleSystem = lipgloss.NewStyle().Foreground(colorMuted)
	styleAck    = lipgloss.NewStyle().Foreground(colorSuccess)
	styleError  = lipgloss.NewStyle().Foreground(colorError)
)

// Render formats one relay frame as a terminal line.
func Render(frame map[string]any) string {
	switch frame["type"] {
	case "welcome":
		return styleAck.Render(fmt.Sprintf("%v (%v online)", frame["message"], frame["online"]))

	case "system":
		return styleSystem.Render(fmt.Sprintf("-- %v", frame["message"]))

	case "ack":
		return styleAck.Render(fmt.Sprintf("✓ %v", frame["message"]))

	case "error":
		return styleError.Render(fmt.Sprintf("error: %v", frame["message"]))

	case "chat":
		name := fmt.Sprintf("%v", frame["fromName"])
		scope := fmt.Sprintf("%v", frame["scope"])
		tag := scope
		if to, ok := frame["to"].(string); ok && to != "" {
			tag = to
		}
		return fmt.Sprintf("%s %s: %v",
			styleScope.Render("["+tag+"]"), styleName.Render(name), frame["text"])

	case "list":
		var b strings.Builder
		b.WriteString(styleSystem.Render("online:"))
		if agents, ok := frame["agents"].([]any); ok {
			for _, a := range agents {
				if m, ok := a.(map[string]any); ok {
					b.WriteString(fmt.Sprintf("\n  %s (%v)", styleName.Render(fmt.Sprintf("%v", m["name"])), m["id"]))
				}
			}
		}
		if rooms, ok := frame["rooms"].([]any); ok && len(rooms) > 0 {
			parts := make([]string, len(rooms))
			for i, r := range rooms {
				parts[i] = fmt.Sprintf("%v", r)
			}
			b.WriteString("\n" + styleSystem.Render("rooms: "+strings.Join(parts, " ")))
		}
		return b.String()

	default:
		raw, _ := json.Marshal(frame)
		return styleSystem.Render(string(raw))
	}
}
