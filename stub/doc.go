// Package stub synthesizes client WIT packages that expose a remote
// component's exports as locally callable resources.
//
// Generation happens in two steps. ExtractExports first isolates a
// component's export surface from its imports, either into a standalone
// "<name>-exports" package or by stripping the source package in place;
// both modes expose identical interfaces. GenerateClient then builds the
// "<name>-client" package: per exported function a synchronous blocking
// method and an asynchronous method returning a generated
// future-<function>-result resource whose completion yields the original
// result type.
//
// Every generated client vendors the standard wasm-rpc support packages
// (wasm:rpc, wasi:io, wasi:clocks) in its deps regardless of what the
// source world referenced, because the client's synchronization primitives
// require them.
//
// Output is deterministic: the same source and transform mode always
// produce byte-identical WIT text, which the incremental build's
// content-hash skip logic depends on.
package stub
