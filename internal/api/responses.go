package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"qabench/internal/dataset"
	"qabench/internal/store"
)

type errorResponse struct {
	Error  string          `json:"error"`
	Issues []issueResponse `json:"issues,omitempty"`
}

type issueResponse struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type saveResponse struct {
	Success  bool   `json:"success"`
	Filename string `json:"filename"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeFailure maps a dataset or store error to its status code.
func writeFailure(w http.ResponseWriter, err error) {
	var validation *dataset.ValidationError
	switch {
	case errors.As(err, &validation):
		issues := make([]issueResponse, 0, len(validation.Issues))
		for _, issue := range validation.Issues {
			issues = append(issues, issueResponse{Field: issue.Field, Message: issue.Message})
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Issues: issues})
	case errors.Is(err, dataset.ErrNotFound), errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, dataset.ErrEmpty), errors.Is(err, store.ErrInvalidName):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		writeBytes(w, http.StatusInternalServerError, []byte(`{"error":"encode response"}`))
		return
	}
	writeBytes(w, status, data)
}

func writeBytes(w http.ResponseWriter, status int, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return decoder.Decode(out)
}

// maxBodyBytes bounds request bodies; uploads carry whole datasets.
const maxBodyBytes = 32 << 20
