/*
Package tracing follows one activation across processes.

A second instance forwarding its activation starts a trace; the trace and
span IDs travel in the X-Trace-ID and X-Span-ID headers to the running
shell, whose diagnostics server continues the trace and adds a span for
the dispatch. Finished spans are written to the log by a background
collector.

	tracer := tracing.New("shell", logger)
	defer tracer.Close()
	router.Use(tracing.Middleware(tracer))

	span, ctx := tracer.Start(ctx, "activation.dispatch")
	defer span.End(err)
*/
package tracing
