package report

import "fmt"

// formatAccuracy returns a percentage string for report output.
func formatAccuracy(accuracy float64) string {
	return fmt.Sprintf("%.1f%%", accuracy*100)
}

// truncate shortens text to limit runes, marking the cut with "...".
func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
