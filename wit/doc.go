// Package wit provides the in-memory model, text parser, and deterministic
// encoder for WIT (WebAssembly Interface Type) packages.
//
// A Package owns a PackageName, a set of Interfaces, zero or more Worlds,
// and the list of source files it was parsed from. Interfaces own ordered
// function signatures and locally-defined types; resource types additionally
// carry their own method sets.
//
// Parsing supports the subset of the WIT grammar the build engine traffics
// in: package declarations, interfaces with use statements, records,
// variants, enums, flags, type aliases, resources, functions, and worlds
// with package-qualified or local import/export items.
//
// Encoding is deterministic: the same model always renders the same bytes,
// which content-hash staleness checks and idempotent-merge comparisons rely
// on.
package wit
