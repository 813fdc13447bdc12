package tracing

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/modshell/internal/infrastructure/logging"
	"github.com/GriffinCanCode/modshell/internal/shared/id"
)

const (
	HeaderTraceID = "X-Trace-ID"
	HeaderSpanID  = "X-Span-ID"

	bufferSize = 256
)

// TraceID identifies a trace
type TraceID string

// SpanID identifies a span within a trace
type SpanID string

// Span is one timed operation
type Span struct {
	TraceID  TraceID
	SpanID   SpanID
	ParentID SpanID
	Name     string
	Start    time.Time
	Duration time.Duration
	Tags     map[string]string
	Err      error

	tracer *Tracer
	once   sync.Once
}

// SetTag attaches a key/value to the span
func (s *Span) SetTag(key, value string) {
	s.Tags[key] = value
}

// End finishes the span and hands it to the collector. Only the first call
// counts.
func (s *Span) End(err error) {
	s.once.Do(func() {
		s.Duration = time.Since(s.Start)
		s.Err = err
		s.tracer.submit(s)
	})
}

// Tracer creates spans and logs them once finished
type Tracer struct {
	service string
	logger  *logging.Logger
	spans   chan *Span
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

// New creates a tracer and starts its collector
func New(service string, logger *logging.Logger) *Tracer {
	t := &Tracer{
		service: service,
		logger:  logging.OrNop(logger).Named("trace"),
		spans:   make(chan *Span, bufferSize),
		done:    make(chan struct{}),
	}
	go t.collect()
	return t
}

// Start opens a span continuing the trace in ctx, or a new trace. Spans of
// a nil Tracer are discarded.
func (t *Tracer) Start(ctx context.Context, name string) (*Span, context.Context) {
	traceID := TraceIDFrom(ctx)
	if traceID == "" {
		traceID = TraceID(id.Default().GenerateWithPrefix("trc"))
	}
	span := &Span{
		TraceID:  traceID,
		SpanID:   SpanID(id.Default().GenerateWithPrefix("spn")),
		ParentID: SpanIDFrom(ctx),
		Name:     name,
		Start:    time.Now(),
		Tags:     make(map[string]string),
		tracer:   t,
	}
	return span, WithContext(ctx, span.TraceID, span.SpanID)
}

// Close stops accepting spans and waits for the collector to drain
func (t *Tracer) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	close(t.spans)
	t.mu.Unlock()
	<-t.done
}

func (t *Tracer) submit(s *Span) {
	if t == nil {
		return
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return
	}
	select {
	case t.spans <- s:
	default:
		t.logger.Warn("Span buffer full, dropping span",
			zap.String("trace_id", string(s.TraceID)),
			zap.String("span", s.Name))
	}
}

func (t *Tracer) collect() {
	defer close(t.done)
	for s := range t.spans {
		fields := []zap.Field{
			zap.String("service", t.service),
			zap.String("trace_id", string(s.TraceID)),
			zap.String("span_id", string(s.SpanID)),
			zap.String("span", s.Name),
			zap.Duration("duration", s.Duration),
		}
		if s.ParentID != "" {
			fields = append(fields, zap.String("parent_id", string(s.ParentID)))
		}
		for k, v := range s.Tags {
			fields = append(fields, zap.String(k, v))
		}
		if s.Err != nil {
			t.logger.Warn("Span failed", append(fields, zap.Error(s.Err))...)
			continue
		}
		t.logger.Debug("Span finished", fields...)
	}
}

type contextKey int

const (
	traceIDKey contextKey = iota
	spanIDKey
)

// WithContext stores trace context in ctx
func WithContext(ctx context.Context, traceID TraceID, spanID SpanID) context.Context {
	if traceID != "" {
		ctx = context.WithValue(ctx, traceIDKey, traceID)
	}
	if spanID != "" {
		ctx = context.WithValue(ctx, spanIDKey, spanID)
	}
	return ctx
}

// TraceIDFrom returns the trace ID carried by ctx
func TraceIDFrom(ctx context.Context) TraceID {
	v, _ := ctx.Value(traceIDKey).(TraceID)
	return v
}

// SpanIDFrom returns the current span ID carried by ctx
func SpanIDFrom(ctx context.Context) SpanID {
	v, _ := ctx.Value(spanIDKey).(SpanID)
	return v
}

// Inject writes the trace context of ctx into h
func Inject(ctx context.Context, h http.Header) {
	if traceID := TraceIDFrom(ctx); traceID != "" {
		h.Set(HeaderTraceID, string(traceID))
	}
	if spanID := SpanIDFrom(ctx); spanID != "" {
		h.Set(HeaderSpanID, string(spanID))
	}
}

// Extract reads trace context from h into ctx
func Extract(ctx context.Context, h http.Header) context.Context {
	return WithContext(ctx, TraceID(h.Get(HeaderTraceID)), SpanID(h.Get(HeaderSpanID)))
}
