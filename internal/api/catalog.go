package api

import (
	"net/http"

	"github.com/chainguard-dev/clog"

	"qabench/internal/agent"
	"qabench/internal/dataset"
)

func (h *handler) handleListBenchmarks(w http.ResponseWriter, r *http.Request) {
	listings, err := h.benchmarks.List(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	if listings == nil {
		listings = []dataset.Listing{}
	}
	writeJSON(w, http.StatusOK, listings)
}

func (h *handler) handleUploadBenchmark(w http.ResponseWriter, r *http.Request) {
	var upload dataset.Upload
	if err := decodeBody(w, r, &upload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	listing, err := h.benchmarks.Save(upload)
	if err != nil {
		writeFailure(w, err)
		return
	}
	clog.FromContext(r.Context()).Info("benchmark uploaded", "id", listing.ID, "questions", listing.QuestionCount)
	writeJSON(w, http.StatusCreated, listing)
}

func (h *handler) handleListModels(w http.ResponseWriter, r *http.Request) {
	if h.models == nil {
		writeJSON(w, http.StatusOK, agent.FallbackModels)
		return
	}
	writeJSON(w, http.StatusOK, h.models.Models(r.Context()))
}
