package live

import (
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// defaultColumns returns the table columns at their preferred widths.
func defaultColumns() []table.Column {
	return []table.Column{
		{Title: "Run", Width: 4},
		{Title: "Model", Width: 28},
		{Title: "Status", Width: 24},
		{Title: "Progress", Width: 20},
		{Title: "Accuracy", Width: 9},
		{Title: "Elapsed", Width: 9},
		{Title: "Last question", Width: 40},
	}
}

// columnsForWidth shrinks the last column to fit the terminal.
func columnsForWidth(width int) []table.Column {
	columns := defaultColumns()
	used := 0
	for _, column := range columns[:len(columns)-1] {
		used += column.Width + 2
	}
	last := &columns[len(columns)-1]
	last.Width = max(width-used-2, 10)
	return columns
}

// tableStyles returns table styles for the UI.
func tableStyles(noColor bool) table.Styles {
	styles := table.DefaultStyles()
	if noColor {
		return styles
	}
	styles.Header = styles.Header.Foreground(lipgloss.Color("252"))
	return styles
}

// rowsForState converts UI state into table rows.
func rowsForState(state State, now time.Time, noColor bool) []table.Row {
	rows := make([]table.Row, 0, len(state.Rows))
	for _, row := range state.Rows {
		rows = append(rows, table.Row{
			formatIndex(row.Index),
			formatModel(row.Model),
			formatStatus(row, noColor),
			formatProgress(row),
			formatAccuracy(row),
			formatRowDuration(row, now),
			truncate(row.LastQuestion, 60),
		})
	}
	return rows
}
