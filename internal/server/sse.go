package server

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// EventWriter pushes session events to the client as Server-Sent Events,
// one JSON object per data: line.
type EventWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewEventWriter prepares the response for SSE delivery. It fails when
// the underlying writer cannot flush, since buffered SSE is useless.
func NewEventWriter(w http.ResponseWriter) (*EventWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &EventWriter{w: w, flusher: flusher}, nil
}

// Emit writes one event. Delivery is push-only and best-effort: a closed
// connection is ignored so generation keeps running and the result still
// warms the cache.
func (e *EventWriter) Emit(event any) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	fmt.Fprintf(e.w, "data: %s\n\n", data)
	e.flusher.Flush()
}
