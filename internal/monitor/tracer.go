// ============================================================================
// Arbiter Monitor - Request Tracing
// ============================================================================
//
// Package: internal/monitor
// File: tracer.go
// Purpose: Span-based tracing of a single solve request: a trace groups
// the spans of one request, each span brackets one phase (validation,
// classification, dispatch) and carries tags and timestamped events.
//
// ============================================================================

package monitor

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// SpanEvent is a timestamped annotation inside a span.
type SpanEvent struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// Span brackets one phase of a traced request.
type Span struct {
	TraceID  string            `json:"trace_id"`
	SpanID   string            `json:"span_id"`
	ParentID string            `json:"parent_id,omitempty"`
	Name     string            `json:"name"`
	Start    time.Time         `json:"start"`
	End      time.Time         `json:"end"`
	Tags     map[string]string `json:"tags,omitempty"`
	Events   []SpanEvent       `json:"events,omitempty"`

	mu       sync.Mutex
	finished bool
}

// SetTag attaches a key/value annotation to the span.
func (s *Span) SetTag(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Tags == nil {
		s.Tags = make(map[string]string)
	}
	s.Tags[key] = value
}

// LogEvent appends a timestamped message to the span.
func (s *Span) LogEvent(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Events = append(s.Events, SpanEvent{Time: time.Now(), Message: message})
}

// Finish stamps the span's end time. Repeated calls keep the first stamp.
func (s *Span) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return
	}
	s.finished = true
	s.End = time.Now()
}

// Duration is the span's elapsed time; for an unfinished span it runs up
// to now.
func (s *Span) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return s.End.Sub(s.Start)
	}
	return time.Since(s.Start)
}

// Tracer creates traces and spans and retains finished traces up to a
// bounded history. Safe for concurrent use.
type Tracer struct {
	mu     sync.Mutex
	traces map[string][]*Span
	order  []string
	keep   int
}

// DefaultTraceHistory bounds how many traces the tracer retains.
const DefaultTraceHistory = 256

// NewTracer creates a tracer retaining up to keep traces; zero means
// DefaultTraceHistory.
func NewTracer(keep int) *Tracer {
	if keep <= 0 {
		keep = DefaultTraceHistory
	}
	return &Tracer{
		traces: make(map[string][]*Span),
		keep:   keep,
	}
}

// StartTrace opens a new trace and returns its root span.
func (t *Tracer) StartTrace(name string) *Span {
	traceID := uuid.NewString()
	span := &Span{
		TraceID: traceID,
		SpanID:  uuid.NewString(),
		Name:    name,
		Start:   time.Now(),
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.traces[traceID] = []*Span{span}
	t.order = append(t.order, traceID)
	t.evictLocked()
	return span
}

// StartSpan opens a child span under parent within the same trace.
func (t *Tracer) StartSpan(parent *Span, name string) *Span {
	span := &Span{
		TraceID:  parent.TraceID,
		SpanID:   uuid.NewString(),
		ParentID: parent.SpanID,
		Name:     name,
		Start:    time.Now(),
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.traces[parent.TraceID]; ok {
		t.traces[parent.TraceID] = append(t.traces[parent.TraceID], span)
	}
	return span
}

// Trace returns the spans recorded for a trace ID, in creation order.
func (t *Tracer) Trace(traceID string) []*Span {
	t.mu.Lock()
	defer t.mu.Unlock()

	spans, ok := t.traces[traceID]
	if !ok {
		return nil
	}
	out := make([]*Span, len(spans))
	copy(out, spans)
	return out
}

// Len reports how many traces are currently retained.
func (t *Tracer) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.traces)
}

// evictLocked drops the oldest traces past the retention bound. Caller
// holds t.mu.
func (t *Tracer) evictLocked() {
	for len(t.order) > t.keep {
		oldest := t.order[0]
		t.order = t.order[1:]
		delete(t.traces, oldest)
	}
}
