package live

import (
	"fmt"
	"time"

	"qabench/internal/batch"
	"qabench/internal/bench"
)

// Begin resets the state for a new batch.
func Begin(request batch.Request, at time.Time) State {
	state := State{
		BenchmarkID:   request.Benchmark.ID,
		BenchmarkName: request.Benchmark.Name,
		Judge:         request.Judge,
		StartedAt:     at,
		Save:          batch.SaveStatus{State: batch.SavePending},
	}
	state.Rows = make([]RunRow, len(request.Models))
	for i, model := range request.Models {
		state.Rows[i] = RunRow{Index: i, Model: model, State: batch.StateIdle}
	}
	state.Counts = recount(state.Rows)
	return state
}

// Reduce applies a coordinator update to the UI state.
func Reduce(state State, update batch.Update, at time.Time) State {
	if update.Save != nil {
		state.Save = *update.Save
		state.LastEvent = formatSaveEvent(*update.Save)
		return state
	}
	state = ensureRow(state, update)
	state = applyRunUpdate(state, update, at)
	state.Counts = recount(state.Rows)
	if message := formatLastEvent(update); message != "" {
		state.LastEvent = message
	}
	return state
}

// ensureRow grows the state rows to include the target index.
func ensureRow(state State, update batch.Update) State {
	if update.RunIndex < 0 || update.RunIndex < len(state.Rows) {
		return state
	}
	rows := make([]RunRow, update.RunIndex+1)
	copy(rows, state.Rows)
	for i := len(state.Rows); i < len(rows); i++ {
		rows[i] = RunRow{Index: i, State: batch.StateIdle}
	}
	state.Rows = rows
	return state
}

// applyRunUpdate updates a row with the given update.
func applyRunUpdate(state State, update batch.Update, at time.Time) State {
	if update.RunIndex < 0 || update.RunIndex >= len(state.Rows) {
		return state
	}
	row := state.Rows[update.RunIndex]
	if row.Model.ID == "" {
		row.Model = update.Model
	}
	if update.State == batch.StateRunning && row.StartedAt.IsZero() {
		row.StartedAt = at
	}
	row.State = update.State
	if event := update.Event; event != nil {
		switch event.Type {
		case bench.EventStart:
			row.Total = event.Total
		case bench.EventItemComplete:
			row.Current = event.Current
			row.Total = event.Total
			row.LastQuestion = event.Result.Question
			row.LastCorrect = event.Result.Verdict.Correct
			if event.Result.Verdict.Correct {
				row.Correct++
			}
		case bench.EventDone:
			row.Correct = event.Summary.CorrectCount
			row.Current = event.Summary.TotalQuestions
			row.Total = event.Summary.TotalQuestions
		case bench.EventRunComplete:
			row.Correct = event.Output.Summary.CorrectCount
			row.Current = event.Output.Summary.TotalQuestions
			row.Total = event.Output.Summary.TotalQuestions
		}
	}
	if update.State.Terminal() {
		if row.FinishedAt.IsZero() {
			row.FinishedAt = at
		}
		if update.Err != nil {
			row.Error = update.Err.Error()
		}
	}
	state.Rows[update.RunIndex] = row
	return state
}

// recount recomputes state counts for the current rows.
func recount(rows []RunRow) StatusCounts {
	var counts StatusCounts
	for _, row := range rows {
		switch row.State {
		case batch.StateIdle:
			counts.Idle++
		case batch.StateRunning:
			counts.Running++
		case batch.StateCompleted:
			counts.Completed++
		case batch.StateError:
			counts.Error++
		case batch.StateCancelled:
			counts.Cancelled++
		}
	}
	return counts
}

// formatLastEvent creates a short footer message for the update.
func formatLastEvent(update batch.Update) string {
	name := update.Model.DisplayName()
	switch update.State {
	case batch.StateCompleted:
		return fmt.Sprintf("%s completed", name)
	case batch.StateError:
		if update.Err != nil {
			return fmt.Sprintf("%s failed: %s", name, update.Err)
		}
		return fmt.Sprintf("%s failed", name)
	case batch.StateCancelled:
		return fmt.Sprintf("%s cancelled", name)
	}
	if update.Event != nil && update.Event.Type == bench.EventItemComplete {
		verdict := "incorrect"
		if update.Event.Result.Verdict.Correct {
			verdict = "correct"
		}
		return fmt.Sprintf("%s Q%d %s", name, update.Event.Current, verdict)
	}
	return ""
}

// formatSaveEvent describes a persistence change.
func formatSaveEvent(save batch.SaveStatus) string {
	switch save.State {
	case batch.SaveSaving:
		return "saving results"
	case batch.SaveSaved:
		return "results saved as " + save.Name
	case batch.SaveFailed:
		if save.Err != nil {
			return "saving results failed: " + save.Err.Error()
		}
		return "saving results failed"
	}
	return ""
}

// formatDuration renders a rounded duration for display.
func formatDuration(duration time.Duration) string {
	if duration <= 0 {
		return "0s"
	}
	return duration.Round(100 * time.Millisecond).String()
}
