package tracing

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// Middleware opens a span per request, continuing the caller's trace, and
// echoes the trace context in the response headers
func Middleware(t *Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := Extract(c.Request.Context(), c.Request.Header)
		name := c.FullPath()
		if name == "" {
			name = "unmatched"
		}
		span, ctx := t.Start(ctx, c.Request.Method+" "+name)
		c.Request = c.Request.WithContext(ctx)
		c.Header(HeaderTraceID, string(span.TraceID))
		c.Header(HeaderSpanID, string(span.SpanID))

		c.Next()

		var err error
		if last := c.Errors.Last(); last != nil {
			err = last
		}
		span.SetTag("http.status", strconv.Itoa(c.Writer.Status()))
		span.End(err)
	}
}
