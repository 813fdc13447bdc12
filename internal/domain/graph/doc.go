// Package graph resolves declared parts into a composition graph.
//
// Every requirement of every part is bound to the parts providing its
// contract, producing edges tagged eager or lazy. Eager edges must form a
// DAG; a cycle is only legal when one of its edges is lazy, because lazy
// references are not followed during construction.
//
// Builder ties resolution to the composition cache: when the fingerprint of
// the current module set matches the cached one, scanning and resolving are
// skipped entirely.
package graph
