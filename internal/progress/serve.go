package progress

import (
	"context"
	"fmt"
	"net/http"

	"github.com/chainguard-dev/clog"

	"qabench/internal/bench"
)

// SetHeaders marks a response as an event stream.
func SetHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}

// Serve writes every event from events to w until a terminal event. A
// stream that closes early, or an invalid event, is turned into a terminal
// error frame. When the client goes away the remaining events are drained
// so the producer can finish.
func Serve(ctx context.Context, w http.ResponseWriter, events <-chan bench.Event) {
	SetHeaders(w)
	w.WriteHeader(http.StatusOK)
	writer := NewWriter(w)
	logger := clog.FromContext(ctx)

	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Error("event stream panicked", "panic", recovered)
			_ = writer.Write(bench.ErrorEvent(fmt.Sprintf("internal error: %v", recovered)))
		}
	}()

	for event := range events {
		if err := event.Validate(); err != nil {
			logger.Error("dropping invalid event", "error", err)
			_ = writer.Write(bench.ErrorEvent(err.Error()))
			drain(events)
			return
		}
		if err := writer.Write(event); err != nil {
			logger.Warn("client disconnected from event stream", "error", err)
			drain(events)
			return
		}
		if event.Terminal() {
			drain(events)
			return
		}
	}
	_ = writer.Write(bench.ErrorEvent("event stream ended unexpectedly"))
}

func drain(events <-chan bench.Event) {
	for range events {
	}
}
