// Package wat compiles a small subset of the WebAssembly Text format into
// core module binaries. It exists so components without an external build
// toolchain can use `.wat` sources for development fixtures, and so the
// end-to-end tests can produce real modules without shelling out.
//
// Supported subset:
//   - (module ...) with typed functions, numeric value types only
//   - (func $name (export "n") (param ...) (result ...) body)
//   - (import "mod" "name" (func $name (param ...) (result ...)))
//   - top-level (export "n" (func $name))
//   - folded instructions: local.get, i32/i64 const, add, sub, mul, call
//
// Anything outside the subset is a compile error. Real components are built
// by their own toolchains; this compiler never sees production sources.
package wat
