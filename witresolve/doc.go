// Package witresolve builds and queries the package-level dependency graph
// of an application's WIT roots.
//
// Given one or more source roots (a root package plus everything under its
// deps/ directory), Resolve parses every reachable package, validates that
// every cross-package reference resolves, and classifies unresolved
// references as either vendorable generic packages, other components'
// export packages, or validation errors. All validation problems across the
// whole pass are aggregated into one error so a user sees the full problem
// set at once.
//
// A ResolvedApplication is immutable; after generating new WIT the
// orchestrator discards it and resolves again. Repeated resolution is cheap
// because parsed packages are cached by directory content hash.
package witresolve
