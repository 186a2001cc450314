package live

import (
	"time"

	"qabench/internal/batch"
	"qabench/internal/bench"
)

// RunRow holds UI state for one run of the batch.
type RunRow struct {
	Index        int
	Model        bench.ModelConfig
	State        batch.State
	Current      int
	Total        int
	Correct      int
	LastQuestion string
	LastCorrect  bool
	StartedAt    time.Time
	FinishedAt   time.Time
	Error        string
}

// StatusCounts aggregates runs by state.
type StatusCounts struct {
	Idle      int
	Running   int
	Completed int
	Error     int
	Cancelled int
}

// State captures the live UI state for a batch.
type State struct {
	BenchmarkID   string
	BenchmarkName string
	Judge         bench.ModelConfig
	StartedAt     time.Time
	LastEvent     string
	Rows          []RunRow
	Counts        StatusCounts
	Save          batch.SaveStatus
}
