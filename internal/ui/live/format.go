package live

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"qabench/internal/batch"
	"qabench/internal/bench"
)

// formatIndex formats a run index.
func formatIndex(index int) string {
	return "#" + strconv.Itoa(index+1)
}

// formatModel prefers the display name and truncates long ids.
func formatModel(model bench.ModelConfig) string {
	return truncate(model.DisplayName(), 40)
}

// truncate shortens text for a table cell.
func truncate(text string, limit int) string {
	normalized := strings.Join(strings.Fields(text), " ")
	if len(normalized) <= limit {
		return normalized
	}
	return normalized[:limit-3] + "..."
}

// formatProgress renders current/total with a bar.
func formatProgress(row RunRow) string {
	if row.Total <= 0 {
		return ""
	}
	const width = 10
	filled := row.Current * width / row.Total
	bar := strings.Repeat("#", filled) + strings.Repeat(".", width-filled)
	return fmt.Sprintf("%s %d/%d", bar, row.Current, row.Total)
}

// formatAccuracy renders the running accuracy of a row.
func formatAccuracy(row RunRow) string {
	if row.Current <= 0 {
		return ""
	}
	return fmt.Sprintf("%.1f%%", bench.Accuracy(row.Correct, row.Current)*100)
}

// formatRowDuration returns elapsed or total time for a row.
func formatRowDuration(row RunRow, now time.Time) string {
	if !row.FinishedAt.IsZero() && !row.StartedAt.IsZero() {
		return formatDuration(row.FinishedAt.Sub(row.StartedAt))
	}
	if !row.StartedAt.IsZero() {
		return formatDuration(now.Sub(row.StartedAt))
	}
	return ""
}

// formatStatus renders a run state with optional color.
func formatStatus(row RunRow, noColor bool) string {
	label := string(row.State)
	if row.State == batch.StateError && row.Error != "" {
		label += ": " + truncate(row.Error, 40)
	}
	if noColor {
		return label
	}
	return statusStyle(row.State).Render(label)
}

// formatSave renders the persistence state.
func formatSave(save batch.SaveStatus) string {
	switch save.State {
	case batch.SaveSaved:
		return "saved " + save.Name
	case batch.SaveFailed:
		return "save failed"
	case "":
		return string(batch.SavePending)
	default:
		return string(save.State)
	}
}

// statusStyle selects a style for a given run state.
func statusStyle(state batch.State) lipgloss.Style {
	color := lipgloss.Color("246")
	switch state {
	case batch.StateRunning:
		color = lipgloss.Color("33")
	case batch.StateCompleted:
		color = lipgloss.Color("42")
	case batch.StateError:
		color = lipgloss.Color("196")
	case batch.StateCancelled:
		color = lipgloss.Color("220")
	}
	return lipgloss.NewStyle().Foreground(color)
}
