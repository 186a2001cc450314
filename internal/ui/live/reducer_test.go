package live

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"qabench/internal/batch"
	"qabench/internal/bench"
)

func sampleRequest() batch.Request {
	return batch.Request{
		Benchmark: batch.Benchmark{ID: "capitals", Name: "Capitals"},
		Judge:     bench.ModelConfig{ID: "j", Name: "Judge"},
		Models:    []bench.ModelConfig{{ID: "m/a", Name: "A"}, {ID: "m/b", Name: "B"}},
	}
}

func itemUpdate(index, current, total int, correct bool) batch.Update {
	event := bench.ItemCompleteEvent(current, total, bench.ItemResult{
		Index:    current - 1,
		Question: "Question " + string(rune('0'+current)),
		Verdict:  bench.Verdict{Correct: correct},
	})
	return batch.Update{RunIndex: index, State: batch.StateRunning, Event: &event}
}

// TestReduceRunLifecycle verifies progress and completion are recorded.
func TestReduceRunLifecycle(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	state := Begin(sampleRequest(), start)
	if state.Counts.Idle != 2 {
		t.Fatalf("expected two idle runs, got %+v", state.Counts)
	}
	state = Reduce(state, batch.Update{RunIndex: 0, State: batch.StateRunning}, start)
	startEvent := bench.StartEvent(2)
	state = Reduce(state, batch.Update{RunIndex: 0, State: batch.StateRunning, Event: &startEvent}, start)
	state = Reduce(state, itemUpdate(0, 1, 2, true), start.Add(time.Second))
	state = Reduce(state, itemUpdate(0, 2, 2, false), start.Add(2*time.Second))
	done := bench.DoneEvent(bench.RunSummary{TotalQuestions: 2, CorrectCount: 1, Accuracy: 0.5})
	state = Reduce(state, batch.Update{RunIndex: 0, State: batch.StateCompleted, Event: &done}, start.Add(3*time.Second))

	row := state.Rows[0]
	if row.State != batch.StateCompleted || row.Current != 2 || row.Correct != 1 {
		t.Fatalf("unexpected row %+v", row)
	}
	if got := formatRowDuration(row, start.Add(time.Hour)); got != "3s" {
		t.Fatalf("expected finished duration 3s, got %q", got)
	}
	if got := formatAccuracy(row); got != "50.0%" {
		t.Fatalf("expected 50.0%%, got %q", got)
	}
	if state.Counts.Completed != 1 || state.Counts.Idle != 1 {
		t.Fatalf("unexpected counts %+v", state.Counts)
	}
	if state.LastEvent != "A completed" {
		t.Fatalf("unexpected last event %q", state.LastEvent)
	}
}

// TestReduceErrorAndSave verifies failures and save transitions are shown.
func TestReduceErrorAndSave(t *testing.T) {
	now := time.Now()
	state := Begin(sampleRequest(), now)
	state = Reduce(state, batch.Update{
		RunIndex: 1,
		Model:    bench.ModelConfig{ID: "m/b", Name: "B"},
		State:    batch.StateError,
		Err:      errors.New("connection reset"),
	}, now)
	if state.Rows[1].Error != "connection reset" {
		t.Fatalf("expected error recorded, got %+v", state.Rows[1])
	}
	if !strings.Contains(state.LastEvent, "B failed") {
		t.Fatalf("unexpected last event %q", state.LastEvent)
	}
	if got := formatStatus(state.Rows[1], true); got != "error: connection reset" {
		t.Fatalf("unexpected status %q", got)
	}

	state = Reduce(state, batch.Update{RunIndex: -1, Save: &batch.SaveStatus{State: batch.SaveSaved, Name: "x.json"}}, now)
	if state.Save.State != batch.SaveSaved || state.LastEvent != "results saved as x.json" {
		t.Fatalf("unexpected save state %+v / %q", state.Save, state.LastEvent)
	}
	if len(state.Rows) != 2 {
		t.Fatalf("save updates must not add rows, got %d", len(state.Rows))
	}
}

// TestReduceGrowsRows verifies updates for unknown runs add rows.
func TestReduceGrowsRows(t *testing.T) {
	state := Reduce(State{}, itemUpdate(2, 1, 3, true), time.Now())
	if len(state.Rows) != 3 {
		t.Fatalf("expected three rows, got %d", len(state.Rows))
	}
	if state.Rows[0].State != batch.StateIdle || state.Rows[2].Current != 1 {
		t.Fatalf("unexpected rows %+v", state.Rows)
	}
}

// TestFormatProgress renders the progress bar.
func TestFormatProgress(t *testing.T) {
	if got := formatProgress(RunRow{Current: 5, Total: 10}); got != "#####..... 5/10" {
		t.Fatalf("unexpected progress %q", got)
	}
	if got := formatProgress(RunRow{}); got != "" {
		t.Fatalf("expected empty progress, got %q", got)
	}
}

// TestModelQuitsOnBatchEnd verifies the program stops after the final event.
func TestModelQuitsOnBatchEnd(t *testing.T) {
	interrupted := false
	model := NewModel(Options{NoColor: true, OnInterrupt: func() { interrupted = true }})
	updated, _ := model.Update(beginMsg{request: sampleRequest()})
	updated, _ = updated.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !interrupted {
		t.Fatalf("expected interrupt callback")
	}
	save := batch.SaveStatus{State: batch.SaveSaved, Name: "r.json"}
	updated, cmd := updated.Update(finishMsg{save: save})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected quit message")
	}
	view := updated.(Model).View()
	if !strings.Contains(view, "Benchmark Capitals") || !strings.Contains(view, "saved r.json") {
		t.Fatalf("unexpected view:\n%s", view)
	}
}
