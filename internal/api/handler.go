// Package api serves the evaluation HTTP API: streaming runs, saving batch
// results and browsing benchmarks, results and models.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/chainguard-dev/clog"

	"qabench/internal/agent"
	"qabench/internal/bench"
	"qabench/internal/dataset"
	"qabench/internal/judge"
	"qabench/internal/metrics"
	"qabench/internal/runner"
	"qabench/internal/store"
)

// Benchmarks lists, loads and stores benchmark datasets.
type Benchmarks interface {
	dataset.Loader
	List(ctx context.Context) ([]dataset.Listing, error)
	Save(upload dataset.Upload) (dataset.Listing, error)
}

// Streamer starts a single run and reports its events.
type Streamer interface {
	Stream(ctx context.Context, run runner.Run) (<-chan bench.Event, error)
}

// Models lists the models offered to clients.
type Models interface {
	Models(ctx context.Context) []agent.ModelInfo
}

// Config wires dependencies for the HTTP handler.
type Config struct {
	Benchmarks Benchmarks
	Runner     Streamer
	Results    *store.FileStore
	Models     Models
	// Pages is mounted at the root for everything outside /api; optional.
	Pages http.Handler
	// DefaultJudge is used when a run request names no judge.
	DefaultJudge bench.ModelConfig
	// PersistSingle also saves every finished single run.
	PersistSingle bool
}

// NewHandler builds an HTTP handler for the evaluation API.
func NewHandler(cfg Config) http.Handler {
	h := &handler{
		benchmarks:    cfg.Benchmarks,
		runner:        cfg.Runner,
		results:       cfg.Results,
		models:        cfg.Models,
		defaultJudge:  cfg.DefaultJudge,
		persistSingle: cfg.PersistSingle,
	}
	if h.defaultJudge.ID == "" {
		h.defaultJudge = judge.DefaultJudge
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/run", h.handleRun)
	mux.HandleFunc("POST /api/save-results", h.handleSaveResults)
	mux.HandleFunc("GET /api/results", h.handleListResults)
	mux.HandleFunc("GET /api/results/{name}", h.handleGetResult)
	mux.HandleFunc("GET /api/benchmarks", h.handleListBenchmarks)
	mux.HandleFunc("POST /api/benchmarks/upload", h.handleUploadBenchmark)
	mux.HandleFunc("GET /api/models", h.handleListModels)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Pages != nil {
		mux.Handle("/", cfg.Pages)
	}
	return withRequestLogger(mux)
}

type handler struct {
	benchmarks    Benchmarks
	runner        Streamer
	results       *store.FileStore
	models        Models
	defaultJudge  bench.ModelConfig
	persistSingle bool
}

// statusRecorder remembers the response status and keeps streaming working.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func withRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger := clog.FromContext(r.Context()).With("method", r.Method, "path", r.URL.Path)
		ctx := clog.WithLogger(r.Context(), logger)
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r.WithContext(ctx))
		logger.Debug("request served", "status", recorder.status, "elapsed", time.Since(start))
	})
}
