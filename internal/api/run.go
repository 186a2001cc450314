package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/chainguard-dev/clog"

	"qabench/internal/bench"
	"qabench/internal/progress"
	"qabench/internal/runner"
)

type runRequest struct {
	BenchmarkID string `json:"benchmarkId"`
	ModelID     string `json:"modelId"`
	ModelName   string `json:"modelName,omitempty"`
	JudgeID     string `json:"judgeId,omitempty"`
	JudgeName   string `json:"judgeName,omitempty"`
}

// handleRun streams one evaluation as Server-Sent Events. Request and
// dataset problems are answered with a JSON error before the stream opens.
func (h *handler) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.BenchmarkID = strings.TrimSpace(req.BenchmarkID)
	req.ModelID = strings.TrimSpace(req.ModelID)
	if req.BenchmarkID == "" || req.ModelID == "" {
		writeError(w, http.StatusBadRequest, "benchmarkId and modelId are required")
		return
	}
	benchmark, err := h.benchmarks.Load(req.BenchmarkID)
	if err != nil {
		writeFailure(w, err)
		return
	}

	run := runner.Run{
		BenchmarkID:   benchmark.ID,
		BenchmarkName: benchmark.Name,
		Items:         benchmark.Items,
		Model:         bench.ModelConfig{ID: req.ModelID, Name: req.ModelName},
		Judge:         h.judgeFor(req),
	}
	if run.Model.Name == "" {
		run.Model.Name = run.Model.ID
	}
	logger := clog.FromContext(r.Context()).With("benchmark", run.BenchmarkID, "model", run.Model.ID)
	ctx := clog.WithLogger(r.Context(), logger)
	events, err := h.runner.Stream(ctx, run)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if h.persistSingle && h.results != nil {
		events = h.persistOnDone(ctx, run.BenchmarkID, events)
	}
	progress.Serve(ctx, w, events)
}

func (h *handler) judgeFor(req runRequest) bench.ModelConfig {
	id := strings.TrimSpace(req.JudgeID)
	if id == "" {
		return h.defaultJudge
	}
	name := strings.TrimSpace(req.JudgeName)
	if name == "" {
		name = id
	}
	return bench.ModelConfig{ID: id, Name: name}
}

// persistOnDone forwards events unchanged and saves the run as a single
// record before its done event is passed on. The save outlives a client
// that disconnects mid-stream.
func (h *handler) persistOnDone(ctx context.Context, benchmarkID string, events <-chan bench.Event) <-chan bench.Event {
	out := make(chan bench.Event, cap(events))
	saveCtx := context.WithoutCancel(ctx)
	go func() {
		defer close(out)
		var results []bench.ItemResult
		for event := range events {
			switch event.Type {
			case bench.EventItemComplete:
				results = append(results, *event.Result)
			case bench.EventDone:
				output := bench.RunOutput{Summary: *event.Summary, Results: results}
				if name, err := h.results.SaveSingle(saveCtx, output, benchmarkID); err != nil {
					clog.FromContext(ctx).Error("saving single run failed", "error", err)
				} else {
					clog.FromContext(ctx).Info("single run saved", "name", name)
				}
			}
			out <- event
		}
	}()
	return out
}
