package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/modshell/internal/infrastructure/logging"
)

func newObserved() (*Tracer, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return New("test", &logging.Logger{Logger: zap.New(core)}), logs
}

func TestStartContinuesTrace(t *testing.T) {
	tracer, _ := newObserved()
	defer tracer.Close()

	root, ctx := tracer.Start(context.Background(), "root")
	child, ctx := tracer.Start(ctx, "child")

	assert.NotEmpty(t, root.TraceID)
	assert.Equal(t, root.TraceID, child.TraceID)
	assert.Equal(t, root.SpanID, child.ParentID)
	assert.Empty(t, root.ParentID)
	assert.Equal(t, child.SpanID, SpanIDFrom(ctx))
}

func TestEndLogsOnce(t *testing.T) {
	tracer, logs := newObserved()

	span, _ := tracer.Start(context.Background(), "dispatch")
	span.SetTag("kind", "file")
	span.End(nil)
	span.End(errors.New("ignored"))

	failed, _ := tracer.Start(context.Background(), "navigate")
	failed.End(errors.New("guard failed"))
	tracer.Close()

	finished := logs.FilterMessage("Span finished").All()
	require.Len(t, finished, 1)
	assert.Equal(t, "dispatch", finished[0].ContextMap()["span"])
	assert.Equal(t, "file", finished[0].ContextMap()["kind"])
	assert.Equal(t, 1, logs.FilterMessage("Span failed").Len())
}

func TestEndAfterCloseIsDropped(t *testing.T) {
	tracer, logs := newObserved()
	span, _ := tracer.Start(context.Background(), "late")
	tracer.Close()
	tracer.Close()

	span.End(nil)
	assert.Zero(t, logs.Len())
}

func TestInjectExtract(t *testing.T) {
	h := http.Header{}
	Inject(context.Background(), h)
	assert.Empty(t, h)

	ctx := WithContext(context.Background(), "trc_1", "spn_1")
	Inject(ctx, h)
	assert.Equal(t, "trc_1", h.Get(HeaderTraceID))

	got := Extract(context.Background(), h)
	assert.Equal(t, TraceID("trc_1"), TraceIDFrom(got))
	assert.Equal(t, SpanID("spn_1"), SpanIDFrom(got))
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tracer, logs := newObserved()

	var inner TraceID
	r := gin.New()
	r.Use(Middleware(tracer))
	r.GET("/health", func(c *gin.Context) {
		inner = TraceIDFrom(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(HeaderTraceID, "trc_remote")
	req.Header.Set(HeaderSpanID, "spn_remote")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	tracer.Close()

	assert.Equal(t, TraceID("trc_remote"), inner)
	assert.Equal(t, "trc_remote", w.Header().Get(HeaderTraceID))
	entries := logs.FilterMessage("Span finished").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "GET /health", fields["span"])
	assert.Equal(t, "spn_remote", fields["parent_id"])
	assert.Equal(t, "200", fields["http.status"])
}
