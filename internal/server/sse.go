package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// SSEWriter streams pipeline progress to the client as Server-Sent
// Events: one "stage" event per orchestrator phase, then "result" with
// the full bundle and a closing "complete" or "error".
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter prepares w for event streaming. Fails when the
// underlying connection cannot flush, since buffered progress events
// would defeat the point of streaming a multi-minute run.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("streaming not supported")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")

	return &SSEWriter{w: w, flusher: flusher}, nil
}

// WriteEvent marshals data and emits one named event, flushing so the
// client sees each stage as it completes.
func (s *SSEWriter) WriteEvent(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// WriteError reports a failed run; the stream ends after this event.
func (s *SSEWriter) WriteError(message string) {
	s.WriteEvent("error", map[string]string{"error": message}) //nolint:errcheck
}

// WriteComplete closes a successful stream with the run's identity
// and completion status.
func (s *SSEWriter) WriteComplete(runID, status string) {
	s.WriteEvent("complete", map[string]string{ //nolint:errcheck
		"runId":  runID,
		"status": status,
	})
}
