package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"qabench/internal/bench"
	"qabench/internal/metrics"
)

// DefaultRunTimeout is the wall-clock budget of one run.
const DefaultRunTimeout = 30 * time.Minute

// Config wires a Coordinator.
type Config struct {
	Streamer  Streamer
	Persister Persister
	// RunTimeout defaults to DefaultRunTimeout.
	RunTimeout time.Duration
	// MaxConcurrent caps open streams; zero means no cap.
	MaxConcurrent int
}

type runSlot struct {
	token   Token
	model   bench.ModelConfig
	state   State
	current int
	total   int
	correct int
	output  *bench.RunOutput
	err     error
	cancel  context.CancelCauseFunc
}

// Coordinator fans a batch out to one stream per model, tracks each run and
// saves the combined output once every run has completed.
type Coordinator struct {
	streamer      Streamer
	persister     Persister
	runTimeout    time.Duration
	maxConcurrent int

	mu         sync.Mutex
	observers  []Observer
	generation uint64
	batchID    string
	ctx        context.Context
	request    Request
	runs       []*runSlot
	completed  int
	expected   int
	pending    int
	save       SaveStatus
	done       chan struct{}
	settled    bool
}

// New builds a coordinator.
func New(cfg Config) *Coordinator {
	timeout := cfg.RunTimeout
	if timeout <= 0 {
		timeout = DefaultRunTimeout
	}
	return &Coordinator{
		streamer:      cfg.Streamer,
		persister:     cfg.Persister,
		runTimeout:    timeout,
		maxConcurrent: cfg.MaxConcurrent,
	}
}

// Subscribe registers an observer for every later update.
func (c *Coordinator) Subscribe(observer Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, observer)
}

// Start supersedes any previous batch and launches one run per model. It
// returns the new generation.
func (c *Coordinator) Start(ctx context.Context, request Request) (uint64, error) {
	if err := request.validate(); err != nil {
		return 0, err
	}
	if c.streamer == nil || c.persister == nil {
		return 0, errors.New("coordinator needs a streamer and a persister")
	}

	c.mu.Lock()
	c.resetLocked()
	generation := c.generation
	c.batchID = uuid.NewString()
	c.ctx = clog.WithLogger(ctx, clog.FromContext(ctx).With("batch", c.batchID, "benchmark", request.Benchmark.ID))
	c.request = request
	c.expected = len(request.Models)
	c.pending = len(request.Models)
	c.runs = make([]*runSlot, len(request.Models))
	tasks := make([]task, len(request.Models))
	updates := make([]Update, 0, len(request.Models))
	for i, model := range request.Models {
		runCtx, cancel := context.WithCancelCause(c.ctx)
		token := Token{Generation: generation, Index: i}
		c.runs[i] = &runSlot{token: token, model: model, state: StateIdle, cancel: cancel}
		tasks[i] = task{ctx: runCtx, request: RunRequest{
			Token:       token,
			BenchmarkID: request.Benchmark.ID,
			Model:       model,
			Judge:       request.Judge,
		}}
		updates = append(updates, c.runUpdateLocked(c.runs[i], nil))
	}
	observers := c.observers
	logger := clog.FromContext(c.ctx)
	c.mu.Unlock()

	logger.Info("batch started", "runs", len(request.Models), "judge", request.Judge.ID, "generation", generation)
	publish(observers, updates)
	go c.launch(tasks)
	return generation, nil
}

type task struct {
	ctx     context.Context
	request RunRequest
}

func (c *Coordinator) launch(tasks []task) {
	var group errgroup.Group
	if c.maxConcurrent > 0 {
		group.SetLimit(c.maxConcurrent)
	}
	for _, t := range tasks {
		group.Go(func() error {
			c.execute(t.ctx, t.request.Token, t.request)
			return nil
		})
	}
	_ = group.Wait()
}

// execute drives one run from its stream to a terminal state.
func (c *Coordinator) execute(ctx context.Context, token Token, request RunRequest) {
	if !c.begin(token) {
		return
	}
	ctx, cancel := context.WithTimeoutCause(ctx, c.runTimeout, fmt.Errorf("%w after %s", ErrRunTimeout, c.runTimeout))
	defer cancel()

	events, err := c.streamer.Stream(ctx, request)
	if err != nil {
		c.finish(token, failureOutcome(ctx, err))
		return
	}
	var checker bench.SequenceChecker
	var results []bench.ItemResult
	for {
		select {
		case <-ctx.Done():
			c.finish(token, failureOutcome(ctx, ctx.Err()))
			return
		case event, ok := <-events:
			if !ok {
				c.finish(token, failureOutcome(ctx, errors.New("event stream ended without a terminal event")))
				return
			}
			if err := checker.Check(event); err != nil {
				c.finish(token, outcome{state: StateError, err: fmt.Errorf("protocol error: %w", err)})
				return
			}
			switch event.Type {
			case bench.EventStart, bench.EventItemComplete:
				if event.Result != nil {
					results = append(results, *event.Result)
				}
				if !c.progress(token, event) {
					return
				}
			case bench.EventDone:
				output := bench.RunOutput{Summary: *event.Summary, Results: results}
				c.finish(token, completedOutcome(output, event))
				return
			case bench.EventRunComplete:
				c.finish(token, completedOutcome(*event.Output, event))
				return
			case bench.EventError:
				c.finish(token, outcome{state: StateError, err: errors.New(event.Message), event: &event})
				return
			}
		}
	}
}

type outcome struct {
	state  State
	output *bench.RunOutput
	err    error
	event  *bench.Event
}

func completedOutcome(output bench.RunOutput, event bench.Event) outcome {
	if err := output.Validate(); err != nil {
		return outcome{state: StateError, err: fmt.Errorf("invalid run output: %w", err)}
	}
	return outcome{state: StateCompleted, output: &output, event: &event}
}

// failureOutcome classifies why a stream stopped early.
func failureOutcome(ctx context.Context, err error) outcome {
	cause := context.Cause(ctx)
	switch {
	case errors.Is(cause, ErrRunTimeout):
		return outcome{state: StateError, err: cause}
	case errors.Is(cause, ErrCancelled), errors.Is(cause, errSuperseded), errors.Is(cause, context.Canceled):
		return outcome{state: StateCancelled, err: cause}
	case cause != nil:
		return outcome{state: StateError, err: cause}
	}
	return outcome{state: StateError, err: err}
}

// begin moves an idle run to running. It reports false for stale or
// already cancelled runs.
func (c *Coordinator) begin(token Token) bool {
	c.mu.Lock()
	slot, ok := c.slotLocked(token)
	if !ok || slot.state != StateIdle {
		c.mu.Unlock()
		return false
	}
	slot.state = StateRunning
	update := c.runUpdateLocked(slot, nil)
	observers := c.observers
	c.mu.Unlock()
	publish(observers, []Update{update})
	return true
}

// progress applies a non-terminal event. It reports false once the run is
// stale or no longer running, so the caller stops reading.
func (c *Coordinator) progress(token Token, event bench.Event) bool {
	c.mu.Lock()
	slot, ok := c.slotLocked(token)
	if !ok || slot.state != StateRunning {
		c.mu.Unlock()
		return false
	}
	switch event.Type {
	case bench.EventStart:
		slot.total = event.Total
	case bench.EventItemComplete:
		slot.current = event.Current
		slot.total = event.Total
		if event.Result.Verdict.Correct {
			slot.correct++
		}
	}
	update := c.runUpdateLocked(slot, &event)
	observers := c.observers
	c.mu.Unlock()
	publish(observers, []Update{update})
	return true
}

// finish applies a terminal outcome. The completion count check and the
// pending to saving transition happen in one critical section.
func (c *Coordinator) finish(token Token, result outcome) {
	c.mu.Lock()
	slot, ok := c.slotLocked(token)
	if !ok {
		logger := clog.FromContext(c.ctx)
		c.mu.Unlock()
		logger.Debug("discarding result of superseded run", "generation", token.Generation, "run", token.Index)
		return
	}
	if slot.state.Terminal() {
		c.mu.Unlock()
		return
	}
	slot.state = result.state
	slot.err = result.err
	slot.cancel(nil)
	c.pending--
	var updates []Update
	shouldSave := false
	if result.state == StateCompleted {
		slot.output = result.output
		slot.current = result.output.Summary.TotalQuestions
		slot.total = result.output.Summary.TotalQuestions
		slot.correct = result.output.Summary.CorrectCount
		c.completed++
		if c.completed == c.expected && c.save.State == SavePending {
			c.save = SaveStatus{State: SaveSaving}
			shouldSave = true
		}
	}
	updates = append(updates, c.runUpdateLocked(slot, result.event))
	if shouldSave {
		updates = append(updates, c.saveUpdateLocked())
	}
	c.maybeSettleLocked()
	observers := c.observers
	ctx := c.ctx
	request := c.request
	outputs := c.outputsLocked()
	c.mu.Unlock()

	recordOutcome(ctx, slot.model, result)
	publish(observers, updates)
	if shouldSave {
		c.persist(ctx, token.Generation, request, outputs)
	}
}

func recordOutcome(ctx context.Context, model bench.ModelConfig, result outcome) {
	logger := clog.FromContext(ctx).With("model", model.ID)
	switch {
	case result.state == StateCompleted:
		metrics.RunFinished("completed")
		logger.Info("run completed", "accuracy", result.output.Summary.Accuracy)
	case errors.Is(result.err, ErrRunTimeout):
		metrics.RunFinished("timeout")
		logger.Warn("run timed out", "error", result.err)
	case result.state == StateCancelled:
		metrics.RunFinished("cancelled")
		logger.Info("run cancelled")
	default:
		metrics.RunFinished("error")
		logger.Warn("run failed", "error", result.err)
	}
}

func (c *Coordinator) persist(ctx context.Context, generation uint64, request Request, outputs []bench.RunOutput) {
	name, err := c.persister.SaveMulti(ctx, outputs, request.Benchmark.ID, request.Benchmark.Name, request.Judge)

	c.mu.Lock()
	if generation != c.generation {
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.save = SaveStatus{State: SaveFailed, Err: err}
	} else {
		c.save = SaveStatus{State: SaveSaved, Name: name}
	}
	update := c.saveUpdateLocked()
	c.maybeSettleLocked()
	observers := c.observers
	c.mu.Unlock()

	if err != nil {
		clog.FromContext(ctx).Error("saving batch results failed", "error", err)
	}
	publish(observers, []Update{update})
}

// RetrySave persists the collected outputs again after a failed save.
func (c *Coordinator) RetrySave(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.save.State != SaveFailed {
		c.mu.Unlock()
		return "", ErrNothingToRetry
	}
	c.save = SaveStatus{State: SaveSaving}
	generation := c.generation
	request := c.request
	outputs := c.outputsLocked()
	update := c.saveUpdateLocked()
	observers := c.observers
	c.mu.Unlock()

	publish(observers, []Update{update})
	c.persist(ctx, generation, request, outputs)

	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.generation {
		return "", ErrStaleGeneration
	}
	return c.save.Name, c.save.Err
}

// Cancel aborts one run. Cancelling a finished run is a no-op.
func (c *Coordinator) Cancel(index int) error {
	c.mu.Lock()
	if index < 0 || index >= len(c.runs) {
		c.mu.Unlock()
		return fmt.Errorf("no run with index %d", index)
	}
	update, ok := c.cancelLocked(c.runs[index])
	c.maybeSettleLocked()
	observers := c.observers
	ctx := c.ctx
	c.mu.Unlock()
	if ok {
		metrics.RunFinished("cancelled")
		clog.FromContext(ctx).Info("run cancelled", "run", index)
		publish(observers, []Update{update})
	}
	return nil
}

// CancelAll aborts every unfinished run.
func (c *Coordinator) CancelAll() {
	c.mu.Lock()
	var updates []Update
	for _, slot := range c.runs {
		if update, ok := c.cancelLocked(slot); ok {
			updates = append(updates, update)
		}
	}
	c.maybeSettleLocked()
	observers := c.observers
	c.mu.Unlock()
	for range updates {
		metrics.RunFinished("cancelled")
	}
	publish(observers, updates)
}

// Reset abandons the current batch. Late results of its runs are discarded.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
	c.done = nil
	c.settled = true
}

// Wait blocks until every run of the current batch is terminal and any save
// has settled, then returns a snapshot.
func (c *Coordinator) Wait(ctx context.Context) (Result, error) {
	c.mu.Lock()
	done := c.done
	generation := c.generation
	c.mu.Unlock()
	if done == nil {
		return Result{}, ErrNotStarted
	}
	select {
	case <-done:
	case <-ctx.Done():
		return c.Snapshot(), ctx.Err()
	}
	result := c.Snapshot()
	if result.Generation != generation {
		return result, ErrStaleGeneration
	}
	return result, nil
}

// Snapshot returns the current state of the batch.
func (c *Coordinator) Snapshot() Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := Result{Generation: c.generation, Request: c.request, Save: c.save}
	for _, slot := range c.runs {
		result.Runs = append(result.Runs, RunStatus{
			Index:   slot.token.Index,
			Model:   slot.model,
			State:   slot.state,
			Current: slot.current,
			Total:   slot.total,
			Correct: slot.correct,
			Output:  slot.output,
			Err:     slot.err,
		})
	}
	return result
}

func (c *Coordinator) resetLocked() {
	for _, slot := range c.runs {
		slot.cancel(errSuperseded)
	}
	if c.done != nil && !c.settled {
		close(c.done)
	}
	c.generation++
	c.runs = nil
	c.completed = 0
	c.expected = 0
	c.pending = 0
	c.save = SaveStatus{State: SavePending}
	c.done = make(chan struct{})
	c.settled = false
}

func (c *Coordinator) cancelLocked(slot *runSlot) (Update, bool) {
	if slot.state.Terminal() {
		return Update{}, false
	}
	slot.state = StateCancelled
	slot.err = ErrCancelled
	slot.cancel(ErrCancelled)
	c.pending--
	return c.runUpdateLocked(slot, nil), true
}

func (c *Coordinator) maybeSettleLocked() {
	if c.settled || c.pending > 0 || c.save.State == SaveSaving {
		return
	}
	c.settled = true
	close(c.done)
}

func (c *Coordinator) slotLocked(token Token) (*runSlot, bool) {
	if token.Generation != c.generation || token.Index < 0 || token.Index >= len(c.runs) {
		return nil, false
	}
	return c.runs[token.Index], true
}

func (c *Coordinator) outputsLocked() []bench.RunOutput {
	outputs := make([]bench.RunOutput, 0, c.completed)
	for _, slot := range c.runs {
		if slot.output != nil {
			outputs = append(outputs, *slot.output)
		}
	}
	return outputs
}

func (c *Coordinator) runUpdateLocked(slot *runSlot, event *bench.Event) Update {
	return Update{
		RunIndex:   slot.token.Index,
		Generation: slot.token.Generation,
		Model:      slot.model,
		State:      slot.state,
		Event:      event,
		Err:        slot.err,
	}
}

func (c *Coordinator) saveUpdateLocked() Update {
	save := c.save
	return Update{RunIndex: -1, Generation: c.generation, Save: &save}
}

func publish(observers []Observer, updates []Update) {
	for _, update := range updates {
		for _, observer := range observers {
			observer(update)
		}
	}
}
