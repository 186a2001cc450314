package runner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"qabench/internal/bench"
	"qabench/internal/dataset"
	"qabench/internal/testutil"
)

type evaluatorFunc func(ctx context.Context, item bench.Item, model, judge bench.ModelConfig) bench.ItemResult

func (f evaluatorFunc) Evaluate(ctx context.Context, item bench.Item, model, judge bench.ModelConfig) bench.ItemResult {
	return f(ctx, item, model, judge)
}

func fixedRunner(evaluator ItemEvaluator) *Runner {
	r := New(evaluator)
	r.Now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }
	return r
}

// TestRunTwoItemsEndToEnd verifies the event sequence and output of a two item run.
func TestRunTwoItemsEndToEnd(t *testing.T) {
	answerer := &testutil.EchoAnswerer{Answers: map[string]string{"q0": "a0", "q1": "nope"}}
	r := fixedRunner(NewEvaluator(answerer, testutil.ContainsJudge()))
	var events []bench.Event
	output, err := r.Run(testutil.Context(t, 0), Run{
		BenchmarkID: "geo",
		Items:       testutil.Items(2),
		Model:       testModel,
		Judge:       testJudge,
	}, func(event bench.Event) { events = append(events, event) })
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	types := make([]bench.EventType, len(events))
	for i, event := range events {
		types[i] = event.Type
	}
	want := []bench.EventType{bench.EventStart, bench.EventItemComplete, bench.EventItemComplete, bench.EventDone}
	if diff := cmp.Diff(want, types); diff != "" {
		t.Fatalf("event types mismatch (-want +got):\n%s", diff)
	}
	if events[0].Total != 2 || events[1].Current != 1 || events[2].Current != 2 {
		t.Fatalf("unexpected counters: %+v", events)
	}
	if output.Summary.CorrectCount != 1 || output.Summary.Accuracy != 0.5 || output.Summary.BenchmarkID != "geo" {
		t.Fatalf("unexpected summary %+v", output.Summary)
	}
	if len(output.Results) != 2 || output.Results[0].Index != 0 || output.Results[1].Index != 1 {
		t.Fatalf("results out of order: %+v", output.Results)
	}
}

// TestStreamPreservesItemOrder verifies results follow item order for larger runs.
func TestStreamPreservesItemOrder(t *testing.T) {
	r := fixedRunner(evaluatorFunc(func(ctx context.Context, item bench.Item, model, judge bench.ModelConfig) bench.ItemResult {
		return bench.ItemResult{Index: item.Index, Question: item.Question, Verdict: bench.Verdict{Correct: item.Index%3 == 0}}
	}))
	output, err := r.Run(testutil.Context(t, 0), Run{Items: testutil.Items(9), Model: testModel, Judge: testJudge}, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for i, result := range output.Results {
		if result.Index != i {
			t.Fatalf("result %d has index %d", i, result.Index)
		}
	}
	if output.Summary.CorrectCount != 3 || output.Summary.Accuracy != 3.0/9.0 {
		t.Fatalf("unexpected summary %+v", output.Summary)
	}
}

// TestStreamRejectsEmptyRun verifies empty runs fail before any event.
func TestStreamRejectsEmptyRun(t *testing.T) {
	r := fixedRunner(evaluatorFunc(func(context.Context, bench.Item, bench.ModelConfig, bench.ModelConfig) bench.ItemResult {
		t.Fatalf("evaluator must not be called")
		return bench.ItemResult{}
	}))
	events, err := r.Stream(testutil.Context(t, 0), Run{Model: testModel})
	if !errors.Is(err, dataset.ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
	if events != nil {
		t.Fatalf("expected no stream")
	}
}

// TestStreamCancelledMidRun verifies cancellation ends the stream with an error event.
func TestStreamCancelledMidRun(t *testing.T) {
	ctx, cancel := context.WithCancel(testutil.Context(t, 0))
	var once sync.Once
	r := fixedRunner(evaluatorFunc(func(ctx context.Context, item bench.Item, model, judge bench.ModelConfig) bench.ItemResult {
		if item.Index == 1 {
			once.Do(cancel)
		}
		return bench.ItemResult{Index: item.Index}
	}))
	events, err := r.Stream(ctx, Run{Items: testutil.Items(3), Model: testModel, Judge: testJudge})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	var last bench.Event
	count := 0
	for event := range events {
		last = event
		count++
	}
	if last.Type != bench.EventError {
		t.Fatalf("expected terminal error, got %s after %d events", last.Type, count)
	}
}

// TestStreamRecoversEvaluatorPanic verifies a panicking evaluator ends the
// stream with an error event instead of crashing the process.
func TestStreamRecoversEvaluatorPanic(t *testing.T) {
	r := fixedRunner(evaluatorFunc(func(ctx context.Context, item bench.Item, model, judge bench.ModelConfig) bench.ItemResult {
		if item.Index == 1 {
			panic("provider exploded")
		}
		return bench.ItemResult{Index: item.Index}
	}))
	events, err := r.Stream(testutil.Context(t, 0), Run{Items: testutil.Items(3), Model: testModel, Judge: testJudge})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	var types []bench.EventType
	var last bench.Event
	for event := range events {
		types = append(types, event.Type)
		last = event
	}
	want := []bench.EventType{bench.EventStart, bench.EventItemComplete, bench.EventError}
	if diff := cmp.Diff(want, types); diff != "" {
		t.Fatalf("event types mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(last.Message, "provider exploded") {
		t.Fatalf("unexpected error message %q", last.Message)
	}
}

// TestStreamCountsFromItemIndex verifies item_complete carries the item's
// own position, so a gap in the input breaks the sequence.
func TestStreamCountsFromItemIndex(t *testing.T) {
	r := fixedRunner(evaluatorFunc(func(ctx context.Context, item bench.Item, model, judge bench.ModelConfig) bench.ItemResult {
		return bench.ItemResult{Index: item.Index}
	}))
	items := []bench.Item{{Index: 0, Question: "q0"}, {Index: 2, Question: "q2"}}
	events, err := r.Stream(testutil.Context(t, 0), Run{Items: items, Model: testModel, Judge: testJudge})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	var currents []int
	for event := range events {
		if event.Type == bench.EventItemComplete {
			currents = append(currents, event.Current)
		}
	}
	if diff := cmp.Diff([]int{1, 3}, currents); diff != "" {
		t.Fatalf("current mismatch (-want +got):\n%s", diff)
	}
	if _, err := r.Run(testutil.Context(t, 0), Run{Items: items, Model: testModel, Judge: testJudge}, nil); err == nil {
		t.Fatalf("expected sequence error for non-contiguous items")
	}
}

// TestCollectReportsErrorEvent verifies error frames become errors.
func TestCollectReportsErrorEvent(t *testing.T) {
	events := make(chan bench.Event, 2)
	events <- bench.StartEvent(1)
	events <- bench.ErrorEvent("Benchmark not found: x")
	close(events)
	_, err := Collect(events, nil)
	if !errors.Is(err, ErrRunFailed) {
		t.Fatalf("expected ErrRunFailed, got %v", err)
	}
}

// TestCollectRequiresTerminal verifies truncated streams are errors.
func TestCollectRequiresTerminal(t *testing.T) {
	events := make(chan bench.Event, 1)
	events <- bench.StartEvent(1)
	close(events)
	if _, err := Collect(events, nil); err == nil {
		t.Fatalf("expected truncated stream error")
	}
}
