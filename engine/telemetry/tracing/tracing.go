// Package tracing provides a tiny span/context abstraction used to correlate
// provider fetches and table refreshes across logs and metrics without
// requiring a full OpenTelemetry SDK wiring in every call site.
package tracing

import (
	"context"
	"fmt"
	"sync/atomic"
)

// SpanContext identifies a span for correlation in logs/metrics.
type SpanContext struct {
	TraceID string
	SpanID  string
}

// Span is a single traced operation.
type Span interface {
	Context() SpanContext
	SetAttribute(key string, value any)
	RecordError(err error)
	End()
}

// Tracer starts spans and decides, via sampling, whether they are recorded.
type Tracer interface {
	StartSpan(ctx context.Context, name string) (context.Context, Span)
}

type ctxKey struct{}

var idCounter uint64

func nextID(prefix string) string {
	n := atomic.AddUint64(&idCounter, 1)
	return fmt.Sprintf("%s%d", prefix, n)
}

// noopTracer never samples; spans carry no ids and all calls are cheap.
type noopTracer struct{}

func (noopTracer) StartSpan(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) Context() SpanContext    { return SpanContext{} }
func (noopSpan) SetAttribute(string, any) {}
func (noopSpan) RecordError(error)        {}
func (noopSpan) End()                     {}

// simpleSpan is a recorded span: it carries an id pair and stores attributes
// for tests/inspection, but never exports anywhere.
type simpleSpan struct {
	sc         SpanContext
	name       string
	attributes map[string]any
	err        error
}

func (s *simpleSpan) Context() SpanContext { return s.sc }
func (s *simpleSpan) SetAttribute(key string, value any) {
	if s.attributes == nil {
		s.attributes = make(map[string]any)
	}
	s.attributes[key] = value
}
func (s *simpleSpan) RecordError(err error) { s.err = err }
func (s *simpleSpan) End()                  {}

// simpleTracer always samples, recording every span with a fresh id pair.
type simpleTracer struct{}

func (simpleTracer) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	parent := SpanFromContext(ctx)
	sc := SpanContext{TraceID: parent.TraceID, SpanID: nextID("span-")}
	if sc.TraceID == "" {
		sc.TraceID = nextID("trace-")
	}
	span := &simpleSpan{sc: sc, name: name}
	return context.WithValue(ctx, ctxKey{}, sc), span
}

// adaptiveTracer samples a percentage of root spans (0-100); child spans
// inherit their parent's sampling decision so a trace is never split.
type adaptiveTracer struct {
	percent int
	counter uint64
}

func (t *adaptiveTracer) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	parent := SpanFromContext(ctx)
	if parent.TraceID != "" {
		sc := SpanContext{TraceID: parent.TraceID, SpanID: nextID("span-")}
		return context.WithValue(ctx, ctxKey{}, sc), &simpleSpan{sc: sc, name: name}
	}
	n := atomic.AddUint64(&t.counter, 1)
	if t.percent <= 0 || int(n%100) >= t.percent {
		return ctx, noopSpan{}
	}
	sc := SpanContext{TraceID: nextID("trace-"), SpanID: nextID("span-")}
	return context.WithValue(ctx, ctxKey{}, sc), &simpleSpan{sc: sc, name: name}
}

// NewTracer returns a Tracer. sampleAll forces every span to be recorded
// (used in tests); otherwise it returns an adaptive tracer sampling 10% of
// root spans.
func NewTracer(sampleAll bool) Tracer {
	if sampleAll {
		return simpleTracer{}
	}
	return NewAdaptiveTracer(10)
}

// NewAdaptiveTracer returns a Tracer sampling approximately percent of
// root spans. percent <= 0 disables sampling (returns a no-op tracer).
func NewAdaptiveTracer(percent int) Tracer {
	if percent <= 0 {
		return noopTracer{}
	}
	if percent > 100 {
		percent = 100
	}
	return &adaptiveTracer{percent: percent}
}

// SpanFromContext returns the active SpanContext, or the zero value if none.
func SpanFromContext(ctx context.Context) SpanContext {
	sc, _ := ctx.Value(ctxKey{}).(SpanContext)
	return sc
}

// ExtractIDs returns the trace and span ids carried by ctx, if any.
func ExtractIDs(ctx context.Context) (traceID, spanID string) {
	sc := SpanFromContext(ctx)
	return sc.TraceID, sc.SpanID
}
