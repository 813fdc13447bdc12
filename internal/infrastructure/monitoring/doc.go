/*
Package monitoring provides Prometheus metrics for the composition core.

# Overview

Metrics live on a dedicated registry so tests and multiple shells in one
process never collide on the global default registerer. Every recorder is
safe to call on a nil *Metrics, so components accept an optional collector.

# Metrics

- catalog: modules scanned and skipped, scan duration
- cache: lookups by result, writes by status
- graph and container: resolve failures, build duration, parts constructed
- lifecycle: parts activated per stage
- activation and navigation: outcomes
- diagnostics HTTP and WebSocket traffic

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})))
*/
package monitoring
