// Package batch runs several model evaluations of one benchmark concurrently
// and persists their combined result exactly once.
package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"qabench/internal/bench"
)

var (
	// ErrRunTimeout marks a run that exceeded its wall-clock budget.
	ErrRunTimeout = errors.New("run timed out")
	// ErrStaleGeneration is returned for operations on a superseded batch.
	ErrStaleGeneration = errors.New("stale batch generation")
	// ErrCancelled marks a run cancelled by the user.
	ErrCancelled = errors.New("run cancelled")
	// ErrNothingToRetry is returned by RetrySave unless a save has failed.
	ErrNothingToRetry = errors.New("no failed save to retry")
	// ErrNotStarted is returned when no batch has been started.
	ErrNotStarted = errors.New("no batch started")

	errSuperseded = errors.New("batch superseded")
)

// State is the lifecycle state of one run.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateError     State = "error"
	StateCancelled State = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateError || s == StateCancelled
}

// SaveState tracks persistence of the combined result.
type SaveState string

const (
	SavePending SaveState = "pending"
	SaveSaving  SaveState = "saving"
	SaveSaved   SaveState = "saved"
	SaveFailed  SaveState = "failed"
)

// Token identifies a run within a batch generation.
type Token struct {
	Generation uint64
	Index      int
}

// Benchmark names the dataset a batch evaluates.
type Benchmark struct {
	ID   string
	Name string
}

// Request describes a batch: every model is run once, duplicates included.
type Request struct {
	Benchmark Benchmark
	Judge     bench.ModelConfig
	Models    []bench.ModelConfig
}

func (r Request) validate() error {
	var problems []string
	if strings.TrimSpace(r.Benchmark.ID) == "" {
		problems = append(problems, "benchmark id is required")
	}
	if strings.TrimSpace(r.Judge.ID) == "" {
		problems = append(problems, "judge is required")
	}
	if len(r.Models) == 0 {
		problems = append(problems, "at least one model is required")
	}
	for i, model := range r.Models {
		if strings.TrimSpace(model.ID) == "" {
			problems = append(problems, fmt.Sprintf("models[%d]: id is required", i))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid batch request: %s", strings.Join(problems, "; "))
	}
	return nil
}

// RunRequest is what a Streamer needs to open one run.
type RunRequest struct {
	Token       Token
	BenchmarkID string
	Model       bench.ModelConfig
	Judge       bench.ModelConfig
}

// Streamer opens the event stream of one run. Implementations must stop
// producing when ctx is done.
type Streamer interface {
	Stream(ctx context.Context, request RunRequest) (<-chan bench.Event, error)
}

// Persister stores the combined output of a batch.
type Persister interface {
	SaveMulti(ctx context.Context, runs []bench.RunOutput, benchmarkID, benchmarkName string, judge bench.ModelConfig) (string, error)
}

// SaveStatus reports the persistence state of a batch.
type SaveStatus struct {
	State SaveState
	Name  string
	Err   error
}

// Update notifies observers of a run or persistence change. Save is set only
// for persistence changes; Event is set when the change came from a stream event.
type Update struct {
	RunIndex   int
	Generation uint64
	Model      bench.ModelConfig
	State      State
	Event      *bench.Event
	Err        error
	Save       *SaveStatus
}

// Observer receives updates. It may be called from several goroutines.
type Observer func(Update)

// RunStatus is a snapshot of one run.
type RunStatus struct {
	Index   int
	Model   bench.ModelConfig
	State   State
	Current int
	Total   int
	Correct int
	Output  *bench.RunOutput
	Err     error
}

// Result is a snapshot of a batch.
type Result struct {
	Generation uint64
	Request    Request
	Runs       []RunStatus
	Save       SaveStatus
}

// Outputs returns the completed run outputs in run order.
func (r Result) Outputs() []bench.RunOutput {
	var outputs []bench.RunOutput
	for _, run := range r.Runs {
		if run.Output != nil {
			outputs = append(outputs, *run.Output)
		}
	}
	return outputs
}
