// Package app assembles the shell.
//
// A Shell is built once at startup by New. It owns the composition pipeline
// (catalog, cached graph build, container) and the UI-affine services that
// extensions depend on (activation dispatcher, navigation registry).
//
// # Startup
//
//	New:      build graph -> container -> before-extensions -> after-extensions
//	          -> register handlers and frames -> after-extensions-loaded
//	Run:      app-loaded on the UI goroutine, then serve Invoke calls
//	Close:    close singletons in reverse construction order
//
// # UI goroutine
//
// The dispatcher and the navigation registry are not meant to be driven from
// several goroutines at once. Run owns the UI goroutine; background callers
// go through Invoke, Activate or Navigate, which marshal onto it. Code already
// running on the UI goroutine receives a context that makes these calls run
// inline.
//
// # Process-wide handle
//
// Init, Current and Teardown manage the single process-wide Shell. Init must
// complete before Current is used; Teardown closes the shell and clears the
// handle. Prefer passing the *Shell explicitly.
package app
