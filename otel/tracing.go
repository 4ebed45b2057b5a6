// Package otel turns gridlate translation events into OpenTelemetry spans.
package otel

import (
	"context"
	"errors"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cellforge/gridlate"
)

// TracingHandler maps a translation run to a root span and records
// per-formula outcomes as span events. It implements
// gridlate.EventHandler and is safe for concurrent use.
type TracingHandler struct {
	tracer trace.Tracer

	mu       sync.RWMutex
	runSpans map[string]trace.Span
	runCtxs  map[string]context.Context
}

// NewTracingHandler creates a handler emitting spans through tracer.
func NewTracingHandler(tracer trace.Tracer) *TracingHandler {
	return &TracingHandler{
		tracer:   tracer,
		runSpans: make(map[string]trace.Span),
		runCtxs:  make(map[string]context.Context),
	}
}

// Handle processes a translation event and updates the run span.
func (h *TracingHandler) Handle(e gridlate.Event) {
	switch e.Kind {
	case gridlate.EventRunStarted:
		h.handleRunStarted(e)
	case gridlate.EventFormulaParsed, gridlate.EventFormulaFailed, gridlate.EventCycleDetected:
		h.handleFormulaEvent(e)
	case gridlate.EventRunFinished:
		h.handleRunFinished(e)
	}
}

// ActiveRunSpanContext returns the span context of a run still in
// flight, or an invalid context when the run is unknown or finished.
func (h *TracingHandler) ActiveRunSpanContext(runID string) trace.SpanContext {
	h.mu.RLock()
	span, ok := h.runSpans[runID]
	h.mu.RUnlock()

	if !ok {
		return trace.SpanContext{}
	}
	return span.SpanContext()
}

func (h *TracingHandler) handleRunStarted(e gridlate.Event) {
	ctx, span := h.tracer.Start(context.Background(), "translate:"+e.RunID,
		trace.WithAttributes(
			attribute.String("gridlate.run_id", e.RunID),
		),
		trace.WithTimestamp(e.Timestamp),
	)

	if count, found := e.Payload["formulas"]; found {
		if n, ok := count.(int); ok {
			span.SetAttributes(attribute.Int("gridlate.formulas", n))
		}
	}

	h.mu.Lock()
	h.runSpans[e.RunID] = span
	h.runCtxs[e.RunID] = ctx
	h.mu.Unlock()
}

func (h *TracingHandler) handleFormulaEvent(e gridlate.Event) {
	h.mu.RLock()
	span, ok := h.runSpans[e.RunID]
	h.mu.RUnlock()

	if !ok {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("gridlate.event_kind", string(e.Kind)),
	}
	if e.Cell != "" {
		attrs = append(attrs, attribute.String("gridlate.cell", e.Cell))
	}
	if deps, found := e.Payload["deps"]; found {
		if n, ok := deps.(int); ok {
			attrs = append(attrs, attribute.Int("gridlate.deps", n))
		}
	}

	span.AddEvent(string(e.Kind), trace.WithTimestamp(e.Timestamp), trace.WithAttributes(attrs...))

	if e.Err != nil {
		span.RecordError(e.Err, trace.WithTimestamp(e.Timestamp))
	}
}

func (h *TracingHandler) handleRunFinished(e gridlate.Event) {
	h.mu.Lock()
	span, ok := h.runSpans[e.RunID]
	if ok {
		delete(h.runSpans, e.RunID)
		delete(h.runCtxs, e.RunID)
	}
	h.mu.Unlock()

	if !ok {
		return
	}

	failed := 0
	if n, found := e.Payload["failed"]; found {
		if v, ok := n.(int); ok {
			failed = v
		}
	}
	cycles := 0
	if n, found := e.Payload["cycles"]; found {
		if v, ok := n.(int); ok {
			cycles = v
		}
	}

	span.SetAttributes(
		attribute.Int("gridlate.failed", failed),
		attribute.Int("gridlate.cycles", cycles),
	)

	if failed > 0 || cycles > 0 {
		span.SetStatus(codes.Error, "translation completed with failures")
		if cycles > 0 {
			span.RecordError(errors.New("circular references detected"), trace.WithTimestamp(e.Timestamp))
		}
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(e.Timestamp))
}
