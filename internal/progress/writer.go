// Package progress carries run events over Server-Sent Events.
package progress

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"qabench/internal/bench"
)

// Writer frames events as "data: <json>\n\n".
type Writer struct {
	w       io.Writer
	flusher http.Flusher
}

// NewWriter wraps w. Frames are flushed when w is an http.Flusher.
func NewWriter(w io.Writer) *Writer {
	flusher, _ := w.(http.Flusher)
	return &Writer{w: w, flusher: flusher}
}

// Write encodes and sends one event frame.
func (w *Writer) Write(event bench.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if _, err := fmt.Fprintf(w.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	if w.flusher != nil {
		w.flusher.Flush()
	}
	return nil
}
