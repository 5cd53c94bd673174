package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

// ErrStreamingUnsupported is returned when the response cannot be flushed
var ErrStreamingUnsupported = errors.New("streaming unsupported")

// Writer serializes events and keep-alive comments onto one response.
// Writes are guarded so the keep-alive goroutine never interleaves with an event.
type Writer struct {
	mu       sync.Mutex
	w        http.ResponseWriter
	flusher  http.Flusher
	streamID string
	withIDs  bool
	nextID   int
}

// NewWriter sets the event-stream headers and returns a writer for w
func NewWriter(w http.ResponseWriter, streamID string, cfg *Config) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &Writer{
		w:        w,
		flusher:  flusher,
		streamID: streamID,
		withIDs:  cfg != nil && cfg.IncludeIDs,
	}, nil
}

// StreamID returns the identifier of the stream (document or session)
func (s *Writer) StreamID() string {
	return s.streamID
}

// WriteEvent writes one event with data encoded as JSON
func (s *Writer) WriteEvent(eventType string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", eventType, err)
	}

	var b strings.Builder
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.withIDs {
		s.nextID++
		fmt.Fprintf(&b, "id: %d\n", s.nextID)
	}
	if eventType != "" {
		fmt.Fprintf(&b, "event: %s\n", eventType)
	}
	fmt.Fprintf(&b, "data: %s\n\n", payload)

	if _, err := fmt.Fprint(s.w, b.String()); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	s.flusher.Flush()
	return nil
}

// WriteKeepAlive writes an SSE comment line and flushes
func (s *Writer) WriteKeepAlive() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprint(s.w, ": keepalive\n\n"); err != nil {
		return fmt.Errorf("write keepalive failed: %w", err)
	}
	s.flusher.Flush()
	return nil
}
