// Package middleware provides gin middleware for the diagnostics server.
//
// Available middleware:
//   - CORS: restricts browser access to loopback origins
//   - RateLimit: per-client token bucket, used on activation forwarding
//   - GlobalRateLimit: one token bucket shared by every client
package middleware
