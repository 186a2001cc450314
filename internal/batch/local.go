package batch

import (
	"context"

	"qabench/internal/bench"
	"qabench/internal/dataset"
	"qabench/internal/runner"
)

// LocalStreamer runs evaluations in-process.
type LocalStreamer struct {
	Loader dataset.Loader
	Runner *runner.Runner
}

// Stream loads the benchmark and starts a run over its items.
func (s LocalStreamer) Stream(ctx context.Context, request RunRequest) (<-chan bench.Event, error) {
	benchmark, err := s.Loader.Load(request.BenchmarkID)
	if err != nil {
		return nil, err
	}
	return s.Runner.Stream(ctx, runner.Run{
		BenchmarkID:   benchmark.ID,
		BenchmarkName: benchmark.Name,
		Items:         benchmark.Items,
		Model:         request.Model,
		Judge:         request.Judge,
	})
}
