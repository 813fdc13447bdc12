// Package container instantiates parts from a resolved composition graph.
//
// Singleton parts are constructed at most once per container, even under
// concurrent first access, and the same instance is returned afterwards.
// Per-request parts are constructed fresh for every request. A part's eager
// requirements are constructed depth-first before its factory runs; lazy
// requirements are handed to the factory as types.Lazy references that
// construct on first Get.
//
// Example:
//
//	c, err := container.New(g, catalog.Factories(), container.WithLogger(logger))
//	settings, err := container.Resolve[core.Settings](c)
//	defer c.Close()
package container
