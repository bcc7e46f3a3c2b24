package goEventHub

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// ActionEvent is emitted once per completed action. Failure is nil on
// success.
type ActionEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	Action    string            `json:"action"`
	RequestID string            `json:"request_id,omitempty"`
	Duration  time.Duration     `json:"-"`
	Failure   *ActionFailure    `json:"failure,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// ActionFailure is the failure half of an ActionEvent. Message never holds
// credentials or tokens: it is the backend's msg, the transport error, or the
// status text.
type ActionFailure struct {
	Kind    ErrorKind `json:"kind"`
	Status  int       `json:"status,omitempty"`
	Message string    `json:"message,omitempty"`
}

// Success reports whether the action succeeded.
func (e ActionEvent) Success() bool {
	return e.Failure == nil
}

// Kind is KindNone for a success, else the failure kind.
func (e ActionEvent) Kind() ErrorKind {
	if e.Failure == nil {
		return KindNone
	}
	return e.Failure.Kind
}

// AuditSink receives action events from the dispatcher goroutine.
type AuditSink interface {
	Emit(ctx context.Context, event ActionEvent)
}

type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, ActionEvent) {}

// ChannelSink hands events to a consumer. A full channel blocks the
// dispatcher until ctx ends.
type ChannelSink struct {
	events chan ActionEvent
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan ActionEvent, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event ActionEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan ActionEvent {
	return s.events
}

// FailuresOnly forwards only events whose kind is one of kinds, or every
// failure when kinds is empty.
func FailuresOnly(next AuditSink, kinds ...ErrorKind) AuditSink {
	return failureFilter{next: next, kinds: kinds}
}

type failureFilter struct {
	next  AuditSink
	kinds []ErrorKind
}

func (f failureFilter) Emit(ctx context.Context, event ActionEvent) {
	if f.next == nil || event.Success() {
		return
	}
	if len(f.kinds) == 0 {
		f.next.Emit(ctx, event)
		return
	}
	for _, k := range f.kinds {
		if event.Failure.Kind == k {
			f.next.Emit(ctx, event)
			return
		}
	}
}

// JSONWriterSink writes one JSON document per line:
//
//	{"timestamp":...,"action":"login","request_id":"...","ok":false,
//	 "duration_ms":12.5,"failure":{"kind":"business","status":401,"message":"..."}}
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

type jsonActionLine struct {
	ActionEvent
	OK         bool    `json:"ok"`
	DurationMS float64 `json:"duration_ms"`
}

func (s *JSONWriterSink) Emit(_ context.Context, event ActionEvent) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(jsonActionLine{
		ActionEvent: event,
		OK:          event.Success(),
		DurationMS:  float64(event.Duration) / float64(time.Millisecond),
	})
	if err != nil {
		return
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.writer.Write(data)
}
