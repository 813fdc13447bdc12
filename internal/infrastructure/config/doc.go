// Package config provides 12-factor configuration management for the shell.
//
// Configuration is loaded from environment variables with sensible defaults.
// Directory settings left empty are resolved from the per-user layout in
// shared/paths by ResolvePaths.
//
// Configuration Sections:
//   - Composition: extension discovery and composition cache
//   - Shell: settings exposed to built-in parts (game directory, data dir)
//   - Server: optional diagnostics HTTP server
//   - Logging: Log level and output format
//   - RateLimit: limits on forwarded activation requests
//
// Environment Variables:
//   - EXTENSIONS_DIR, MANIFEST_PATTERN, COMPOSITION_CACHE, COMPOSITION_CACHE_DISABLED
//   - DATA_DIR, GAME_DIR
//   - DIAG_ENABLED, DIAG_HOST, DIAG_PORT
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
