// Package live renders the progress of a batch as a terminal table.
package live

import (
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"qabench/internal/batch"
)

// Options configures the live display.
type Options struct {
	NoColor      bool
	TickInterval time.Duration
	// OnInterrupt is called when the user presses ctrl+c or q.
	OnInterrupt func()
}

// beginMsg starts a new batch on screen.
type beginMsg struct{ request batch.Request }

// updateMsg carries one coordinator update.
type updateMsg struct{ update batch.Update }

// finishMsg carries the settled save state and ends the program.
type finishMsg struct{ save batch.SaveStatus }

// clockMsg refreshes elapsed times.
type clockMsg time.Time

// Model is the Bubble Tea model behind the live display.
type Model struct {
	opts  Options
	state State
	grid  table.Model
	now   time.Time
}

// NewModel returns an empty display.
func NewModel(opts Options) Model {
	if opts.TickInterval <= 0 {
		opts.TickInterval = 200 * time.Millisecond
	}
	grid := table.New(
		table.WithColumns(defaultColumns()),
		table.WithFocused(false),
	)
	grid.SetStyles(tableStyles(opts.NoColor))
	return Model{opts: opts, grid: grid, now: time.Now()}
}

// Init schedules the first clock refresh.
func (m Model) Init() tea.Cmd {
	return m.nextTick()
}

// Update applies batch messages, key presses and clock ticks.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case beginMsg:
		m.state = Begin(msg.request, m.now)
	case updateMsg:
		m.state = Reduce(m.state, msg.update, m.now)
	case finishMsg:
		save := msg.save
		m.state = Reduce(m.state, batch.Update{RunIndex: -1, Save: &save}, m.now)
		cmd = tea.Quit
	case clockMsg:
		m.now = time.Time(msg)
		cmd = m.nextTick()
	case tea.KeyMsg:
		if key := msg.String(); key == "ctrl+c" || key == "q" {
			if m.opts.OnInterrupt != nil {
				m.opts.OnInterrupt()
			}
			m.state.LastEvent = "cancelling"
		}
	case tea.WindowSizeMsg:
		m.grid.SetWidth(msg.Width)
		m.grid.SetHeight(max(msg.Height-4, 1))
		m.grid.SetColumns(columnsForWidth(msg.Width))
	}
	m.grid.SetRows(rowsForState(m.state, m.now, m.opts.NoColor))
	return m, cmd
}

// View draws the header, counts, run table and last event.
func (m Model) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		renderHeader(m.state, m.now, m.opts.NoColor),
		renderSummary(m.state, m.opts.NoColor),
		m.grid.View(),
		renderFooter(m.state, m.opts.NoColor),
	)
}

// State returns the current display state.
func (m Model) State() State {
	return m.state
}

func (m Model) nextTick() tea.Cmd {
	return tea.Tick(m.opts.TickInterval, func(t time.Time) tea.Msg { return clockMsg(t) })
}
