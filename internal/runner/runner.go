package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"

	"qabench/internal/bench"
	"qabench/internal/dataset"
	"qabench/internal/metrics"
)

// ItemEvaluator grades a single item. It must not fail.
type ItemEvaluator interface {
	Evaluate(ctx context.Context, item bench.Item, model, judge bench.ModelConfig) bench.ItemResult
}

// Run describes one evaluation of a model over a benchmark.
type Run struct {
	BenchmarkID   string
	BenchmarkName string
	Items         []bench.Item
	Model         bench.ModelConfig
	Judge         bench.ModelConfig
}

// Runner evaluates every item of a run in order and reports progress as events.
type Runner struct {
	Evaluator ItemEvaluator
	Now       func() time.Time
}

// New builds a runner around an item evaluator.
func New(evaluator ItemEvaluator) *Runner {
	return &Runner{Evaluator: evaluator, Now: time.Now}
}

// ErrRunFailed wraps the message of a terminal error event.
var ErrRunFailed = errors.New("run failed")

// Stream starts the run and returns its events: start, one item_complete per
// item, then done. Cancelling ctx ends the stream with an error event. The
// channel is closed after the terminal event. Empty runs are rejected before
// anything is emitted.
func (r *Runner) Stream(ctx context.Context, run Run) (<-chan bench.Event, error) {
	if len(run.Items) == 0 {
		return nil, dataset.ErrEmpty
	}
	// Room for every event, so the producer never blocks on a departed consumer.
	out := make(chan bench.Event, len(run.Items)+2)
	go r.stream(ctx, run, out)
	return out, nil
}

func (r *Runner) stream(ctx context.Context, run Run, out chan<- bench.Event) {
	defer close(out)
	logger := clog.FromContext(ctx).With("model", run.Model.ID, "benchmark", run.BenchmarkID)
	// A panicking capability ends this run with an error event. The buffer
	// always has a slot left for it, since at most total+1 events precede it.
	defer func() {
		if p := recover(); p != nil {
			logger.Error("run panicked", "panic", p)
			out <- bench.ErrorEvent(fmt.Sprintf("run panicked: %v", p))
		}
	}()
	total := len(run.Items)
	logger.Info("run started", "items", total, "judge", run.Judge.ID)

	fail := func(err error) {
		logger.Warn("run aborted", "error", err)
		out <- bench.ErrorEvent(err.Error())
	}

	out <- bench.StartEvent(total)
	results := make([]bench.ItemResult, 0, total)
	for _, item := range run.Items {
		if err := ctx.Err(); err != nil {
			fail(err)
			return
		}
		result := r.Evaluator.Evaluate(ctx, item, run.Model, run.Judge)
		if err := ctx.Err(); err != nil {
			fail(err)
			return
		}
		results = append(results, result)
		out <- bench.ItemCompleteEvent(item.Index+1, total, result)
	}

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	summary := bench.NewSummary(run.Model, run.Judge, results, now())
	summary.BenchmarkID = run.BenchmarkID
	summary.BenchmarkName = run.BenchmarkName
	metrics.RunAccuracy(run.Model.ID, run.BenchmarkID, summary.Accuracy)
	logger.Info("run finished", "correct", summary.CorrectCount, "total", summary.TotalQuestions, "accuracy", summary.Accuracy)
	out <- bench.DoneEvent(summary)
}

// Run drains Stream, passing every event to observe, and returns the results
// in item order.
func (r *Runner) Run(ctx context.Context, run Run, observe func(bench.Event)) (bench.RunOutput, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	events, err := r.Stream(ctx, run)
	if err != nil {
		return bench.RunOutput{}, err
	}
	return Collect(events, observe)
}

// Collect folds an event stream into a run output. It fails when the stream
// carries an error event, breaks ordering, or ends without a terminal event.
func Collect(events <-chan bench.Event, observe func(bench.Event)) (bench.RunOutput, error) {
	var checker bench.SequenceChecker
	var results []bench.ItemResult
	for event := range events {
		if observe != nil {
			observe(event)
		}
		if err := checker.Check(event); err != nil {
			return bench.RunOutput{}, err
		}
		switch event.Type {
		case bench.EventItemComplete:
			results = append(results, *event.Result)
		case bench.EventDone:
			output := bench.RunOutput{Summary: *event.Summary, Results: results}
			return output, output.Validate()
		case bench.EventRunComplete:
			return *event.Output, event.Output.Validate()
		case bench.EventError:
			return bench.RunOutput{}, fmt.Errorf("%w: %s", ErrRunFailed, event.Message)
		}
	}
	return bench.RunOutput{}, errors.New("event stream ended without a terminal event")
}
