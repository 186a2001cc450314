package live

import (
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// renderHeader renders the batch header line.
func renderHeader(state State, now time.Time, noColor bool) string {
	name := state.BenchmarkName
	if name == "" {
		name = state.BenchmarkID
	}
	line := "Benchmark " + name
	if state.Judge.ID != "" {
		line += " | Judge: " + state.Judge.DisplayName()
	}
	if !state.StartedAt.IsZero() {
		line += " | Elapsed: " + formatDuration(now.Sub(state.StartedAt))
	}
	return stylize(line, noColor, lipgloss.Color("33"))
}

// renderSummary renders the state counts line.
func renderSummary(state State, noColor bool) string {
	counts := state.Counts
	line := "Waiting: " + strconv.Itoa(counts.Idle) +
		" Running: " + strconv.Itoa(counts.Running) +
		" Completed: " + strconv.Itoa(counts.Completed) +
		" Error: " + strconv.Itoa(counts.Error) +
		" Cancelled: " + strconv.Itoa(counts.Cancelled) +
		" | Save: " + formatSave(state.Save)
	return stylize(line, noColor, lipgloss.Color("242"))
}

// renderFooter renders the last event line.
func renderFooter(state State, noColor bool) string {
	if state.LastEvent == "" {
		return ""
	}
	return stylize("Last event: "+state.LastEvent, noColor, lipgloss.Color("244"))
}

// stylize applies optional color styling.
func stylize(text string, noColor bool, color lipgloss.Color) string {
	if noColor {
		return text
	}
	return lipgloss.NewStyle().Foreground(color).Render(text)
}
