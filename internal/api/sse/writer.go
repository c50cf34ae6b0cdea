// Package sse provides Server-Sent Events support for session event streams.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// EventType represents the type of SSE event.
type EventType string

const (
	// EventExplanation carries an explanation panel update.
	EventExplanation EventType = "explanation"
	// EventTranscript carries a transcript change of one thread.
	EventTranscript EventType = "transcript"
	// EventReady is sent once the subscription is registered.
	EventReady EventType = "ready"
	// EventError is sent before the server ends a stream.
	EventError EventType = "error"
)

// Frame is one event on the wire. Empty fields are omitted.
type Frame struct {
	ID    string
	Event EventType
	Data  string
	// Retry asks the browser to wait this long before reconnecting.
	Retry time.Duration
}

// Writer writes Server-Sent Events to an HTTP response.
type Writer struct {
	writer  http.ResponseWriter
	flusher http.Flusher
}

// NewWriter sets the streaming headers and returns a writer.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	return &Writer{writer: w, flusher: flusher}, nil
}

// Write encodes and flushes one frame. Multi-line data is split into
// several data fields.
func (w *Writer) Write(f Frame) error {
	var b strings.Builder
	if f.ID != "" {
		b.WriteString("id: " + f.ID + "\n")
	}
	if f.Event != "" {
		b.WriteString("event: " + string(f.Event) + "\n")
	}
	if f.Retry > 0 {
		b.WriteString("retry: " + strconv.FormatInt(f.Retry.Milliseconds(), 10) + "\n")
	}
	for _, line := range strings.Split(f.Data, "\n") {
		b.WriteString("data: " + line + "\n")
	}
	b.WriteString("\n")

	if _, err := w.writer.Write([]byte(b.String())); err != nil {
		return fmt.Errorf("failed to write %s event: %w", f.Event, err)
	}
	w.flusher.Flush()
	return nil
}

// WriteJSON writes an event whose data is the JSON encoding of data.
func (w *Writer) WriteJSON(eventType EventType, id string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}
	return w.Write(Frame{ID: id, Event: eventType, Data: string(payload)})
}

// WriteComment writes a comment line. Browsers ignore it; proxies see
// traffic.
func (w *Writer) WriteComment(text string) error {
	if _, err := fmt.Fprintf(w.writer, ": %s\n\n", text); err != nil {
		return fmt.Errorf("failed to write comment: %w", err)
	}
	w.flusher.Flush()
	return nil
}

// ErrorEvent is the data of an error event.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// WriteError writes an error event.
func (w *Writer) WriteError(code, message, details string) error {
	return w.WriteJSON(EventError, "", &ErrorEvent{
		Code:    code,
		Message: message,
		Details: details,
	})
}
