// Package core is the mod manager's built-in module.
//
// It contributes the parts every installation has:
//   - settings over the shell configuration
//   - a data directory initializer (before-extensions)
//   - a journal of recent activations (app-loaded)
//   - the Home, Setup and Install frames, with a guard that skips Setup once
//     a game directory is configured
//   - activation handlers for mod archives and plain launches
//
// Extensions see these parts through their contracts like any other.
package core
