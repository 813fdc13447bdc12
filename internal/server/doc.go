// Package server provides the optional diagnostics HTTP server.
//
// The server exposes the composed shell to local tools:
//   - HTTP routing with Gin framework
//   - Middleware stack (recovery, metrics, CORS, rate limiting)
//   - Prometheus scrape endpoint on the shell's own registry
//   - Navigation event stream over WebSocket
//
// It also receives activations forwarded by a second instance, so it binds
// to loopback by default.
//
// Example Usage:
//
//	srv := server.New(cfg, shell, metrics, logger)
//	if err := srv.Run(ctx); err != nil {
//	    logger.Fatal("diagnostics server failed", zap.Error(err))
//	}
package server
