// Package tracing times the phases of an operation as a tree of spans carried
// through contexts. A finished tree is logged through slog and can be
// flattened into per-phase durations for reports.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type contextKey struct{}

// Span is one timed phase. Children are the phases started beneath it.
type Span struct {
	Name      string
	TraceID   string
	StartTime time.Time
	Duration  time.Duration
	Children  []*Span
	Attrs     map[string]any

	mu  sync.Mutex
	now func() time.Time
}

// StartSpan starts a root span and stores it in the returned context.
func StartSpan(ctx context.Context, name, traceID string) (context.Context, *Span) {
	span := newSpan(name, traceID, time.Now)
	return context.WithValue(ctx, contextKey{}, span), span
}

// StartChildSpan starts a span beneath the one in ctx. Without a parent the
// child is a detached root.
func StartChildSpan(ctx context.Context, name string) (context.Context, *Span) {
	parent := SpanFromContext(ctx)
	if parent == nil {
		return StartSpan(ctx, name, "")
	}
	child := newSpan(name, parent.TraceID, parent.now)
	parent.mu.Lock()
	parent.Children = append(parent.Children, child)
	parent.mu.Unlock()
	return context.WithValue(ctx, contextKey{}, child), child
}

func newSpan(name, traceID string, now func() time.Time) *Span {
	return &Span{
		Name:      name,
		TraceID:   traceID,
		StartTime: now(),
		Attrs:     make(map[string]any),
		now:       now,
	}
}

// End fixes the span's duration. Calling it again moves the end forward.
func (s *Span) End() {
	s.mu.Lock()
	s.Duration = s.now().Sub(s.StartTime)
	s.mu.Unlock()
}

func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	s.Attrs[key] = value
	s.mu.Unlock()
}

// SpanFromContext returns the current span in ctx, or nil.
func SpanFromContext(ctx context.Context) *Span {
	span, _ := ctx.Value(contextKey{}).(*Span)
	return span
}

// Phases maps each direct child's name to its duration. Repeated names add
// up.
func (s *Span) Phases() map[string]time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]time.Duration, len(s.Children))
	for _, c := range s.Children {
		c.mu.Lock()
		out[c.Name] += c.Duration
		c.mu.Unlock()
	}
	return out
}

// Log writes the span tree at debug level, one record per span.
func (s *Span) Log(logger *slog.Logger) {
	s.log(logger, 0)
}

func (s *Span) log(logger *slog.Logger, depth int) {
	s.mu.Lock()
	attrs := []any{
		"trace_id", s.TraceID,
		"span", s.Name,
		"duration", s.Duration,
		"depth", depth,
	}
	for k, v := range s.Attrs {
		attrs = append(attrs, k, v)
	}
	children := append([]*Span(nil), s.Children...)
	s.mu.Unlock()

	logger.Debug("span", attrs...)
	for _, c := range children {
		c.log(logger, depth+1)
	}
}
