package chat

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
)

// StreamEvent is one frame of the outbound response protocol, encoded as a
// single JSON object per line.
type StreamEvent struct {
	Type      string         `json:"type"`
	Content   *string        `json:"content,omitempty"`
	ToolCall  *ToolCallEvent `json:"tool_call,omitempty"`
	Error     string         `json:"error,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
}

// ToolCallEvent is the payload of a tool_call frame.
type ToolCallEvent struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Arguments interface{} `json:"arguments"`
}

// ContentEvent builds a content frame.
func ContentEvent(text string) StreamEvent {
	return StreamEvent{Type: "content", Content: &text}
}

// ErrorEvent builds an error frame.
func ErrorEvent(message string) StreamEvent {
	return StreamEvent{Type: "error", Error: message}
}

// DoneEvent builds the terminal frame.
func DoneEvent() StreamEvent {
	return StreamEvent{Type: "done"}
}

// Emitter serializes stream events onto a long-lived response writer, one
// newline-delimited JSON frame per event, flushing after each write. Once a
// write fails the transport is considered gone and further emits are no-ops;
// the orchestration loop keeps running so in-flight tool dispatch completes.
type Emitter struct {
	w       io.Writer
	flusher http.Flusher
	closed  bool
}

// NewEmitter creates an emitter for the given writer. If the writer also
// implements http.Flusher, each frame is flushed through immediately.
func NewEmitter(w io.Writer) *Emitter {
	e := &Emitter{w: w}
	if f, ok := w.(http.Flusher); ok {
		e.flusher = f
	}
	return e
}

// Emit writes one event frame. Events are delivered in emission order.
func (e *Emitter) Emit(event StreamEvent) {
	if e.closed {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("ERROR: failed to marshal stream event: %v", err)
		return
	}

	if _, err := e.w.Write(append(data, '\n')); err != nil {
		log.Printf("WARN: stream write failed, dropping remaining events: %v", err)
		e.closed = true
		return
	}
	if e.flusher != nil {
		e.flusher.Flush()
	}
}
