// Package tracing records per-request span trees carried in a context and
// writes them to slog once the request finishes.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type contextKey struct{}

// Span is one timed step of a request. Children are appended by
// StartChild and may be added from several goroutines.
type Span struct {
	Name     string
	TraceID  string
	Start    time.Time
	Duration time.Duration

	mu       sync.Mutex
	attrs    []any
	children []*Span
}

// Start opens a root span for traceID and stores it in the returned context.
func Start(ctx context.Context, name, traceID string) (context.Context, *Span) {
	span := &Span{Name: name, TraceID: traceID, Start: time.Now()}
	return context.WithValue(ctx, contextKey{}, span), span
}

// StartChild opens a span under the one in ctx. Without a parent the span
// is still usable but is never logged.
func StartChild(ctx context.Context, name string) (context.Context, *Span) {
	child := &Span{Name: name, Start: time.Now()}
	if parent := FromContext(ctx); parent != nil {
		child.TraceID = parent.TraceID
		parent.mu.Lock()
		parent.children = append(parent.children, child)
		parent.mu.Unlock()
	}
	return context.WithValue(ctx, contextKey{}, child), child
}

func FromContext(ctx context.Context) *Span {
	span, _ := ctx.Value(contextKey{}).(*Span)
	return span
}

func (s *Span) End() {
	s.mu.Lock()
	s.Duration = time.Since(s.Start)
	s.mu.Unlock()
}

// SetAttr attaches key=value to the span's log line.
func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	s.attrs = append(s.attrs, key, value)
	s.mu.Unlock()
}

// Record is a flattened view of one span in a tree.
type Record struct {
	Name     string
	Depth    int
	Duration time.Duration
	Attrs    []any
}

// Records walks the tree depth first, parents before children.
func (s *Span) Records() []Record {
	var out []Record
	s.collect(0, &out)
	return out
}

func (s *Span) collect(depth int, out *[]Record) {
	s.mu.Lock()
	rec := Record{Name: s.Name, Depth: depth, Duration: s.Duration, Attrs: append([]any(nil), s.attrs...)}
	children := append([]*Span(nil), s.children...)
	s.mu.Unlock()

	*out = append(*out, rec)
	for _, child := range children {
		child.collect(depth+1, out)
	}
}

// Log writes one debug line per span.
func (s *Span) Log(logger *slog.Logger) {
	ctx := context.Background()
	if !logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	for _, rec := range s.Records() {
		attrs := append([]any{
			"trace_id", s.TraceID,
			"span", rec.Name,
			"depth", rec.Depth,
			"duration_us", rec.Duration.Microseconds(),
		}, rec.Attrs...)
		logger.Debug("span", attrs...)
	}
}
