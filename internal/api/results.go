package api

import (
	"net/http"
	"strings"

	"github.com/chainguard-dev/clog"

	"qabench/internal/bench"
	"qabench/internal/store"
)

type saveRequest struct {
	Runs          []bench.RunOutput `json:"runs"`
	BenchmarkID   string            `json:"benchmarkId"`
	BenchmarkName string            `json:"benchmarkName"`
	Judge         bench.ModelConfig `json:"judge"`
}

// handleSaveResults persists the combined output of a batch as one record.
func (h *handler) handleSaveResults(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Runs) == 0 {
		writeError(w, http.StatusBadRequest, "no results to save")
		return
	}
	if strings.TrimSpace(req.BenchmarkID) == "" || strings.TrimSpace(req.BenchmarkName) == "" {
		writeError(w, http.StatusBadRequest, "benchmarkId and benchmarkName are required")
		return
	}
	for _, run := range req.Runs {
		if err := run.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if h.results == nil {
		writeError(w, http.StatusInternalServerError, "result store is not configured")
		return
	}
	name, err := h.results.SaveMulti(r.Context(), req.Runs, req.BenchmarkID, req.BenchmarkName, req.Judge)
	if err != nil {
		clog.FromContext(r.Context()).Error("saving results failed", "benchmark", req.BenchmarkID, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, saveResponse{Success: true, Filename: name})
}

func (h *handler) handleListResults(w http.ResponseWriter, r *http.Request) {
	if h.results == nil {
		writeJSON(w, http.StatusOK, []store.Entry{})
		return
	}
	entries, err := h.results.List(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	if entries == nil {
		entries = []store.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *handler) handleGetResult(w http.ResponseWriter, r *http.Request) {
	if h.results == nil {
		writeError(w, http.StatusNotFound, store.ErrNotFound.Error())
		return
	}
	record, err := h.results.Load(r.PathValue("name"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}
