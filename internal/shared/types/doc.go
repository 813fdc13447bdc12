// Package types provides the shared composition data model.
//
// Every component of the composition core exchanges these types: the catalog
// produces them, the cache fingerprints them, the graph resolver binds them
// and the container instantiates them.
//
// Core Types:
//   - ModuleDescriptor: one plugin module and its content-hashed artifacts
//   - PartDescriptor: a declared unit of composition
//   - Requirement: a contract a part needs, with cardinality and laziness
//   - PartMetadata: order, lifecycle stage and GUID key of a part
//   - ModuleKey: fingerprint input for a module
//
// Construction:
//   - Factory: builds a part from a Resolver
//   - Resolver: access to the requirements a part declared
//   - Lazy: deferred reference that breaks construction cycles
//
// Contracts are plain strings. Go types are mapped to them with
// RegisterContract and ContractOf so generic helpers can resolve by type:
//
//	types.RegisterContract[activation.Handler]("modshell.activation.handler")
//	handlers, err := types.ManyOf[activation.Handler](r)
package types
