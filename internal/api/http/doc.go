// Package http provides the diagnostics REST handlers.
//
// Endpoints:
//   - GET  /health: composition and lifecycle status
//   - GET  /api/parts: resolved parts and edges, with construction state
//   - GET  /api/frames: registered frames, current frame and history flags
//   - GET  /api/stats: metrics snapshot
//   - POST /api/activate: forwarded activation from a second instance
//   - POST /api/navigate/:guid: navigation request
//
// Activation and navigation run on the shell's UI goroutine.
//
// Example Usage:
//
//	handlers := http.NewHandlers(shell, metrics, tracer, logger)
//	router.GET("/health", handlers.Health)
//	router.POST("/api/activate", handlers.Activate)
package http
