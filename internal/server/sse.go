package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
)

var (
	errNoFlush      = errors.New("response writer cannot stream")
	errStreamClosed = errors.New("event stream already finished")
)

// eventStream writes Server-Sent Events. Progress callbacks can fire from
// stage goroutines, so every frame is written under mu.
type eventStream struct {
	mu     sync.Mutex
	w      http.ResponseWriter
	flush  func()
	closed bool
}

// openEventStream commits a 200 text/event-stream response
func openEventStream(w http.ResponseWriter) (*eventStream, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, errNoFlush
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	f.Flush()
	return &eventStream{w: w, flush: f.Flush}, nil
}

// send writes one "event:" / "data:" frame with data as JSON
func (s *eventStream) send(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	var frame bytes.Buffer
	frame.WriteString("event: ")
	frame.WriteString(event)
	frame.WriteString("\ndata: ")
	frame.Write(payload)
	frame.WriteString("\n\n")

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errStreamClosed
	}
	if _, err := s.w.Write(frame.Bytes()); err != nil {
		return err
	}
	s.flush()
	return nil
}

// finish sends the terminal frame. Later sends fail with errStreamClosed.
func (s *eventStream) finish(event string, data any) error {
	err := s.send(event, data)
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return err
}
