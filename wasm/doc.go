// Package wasm reads and writes the binary artifacts the build engine
// produces: plain WebAssembly core modules and the link container that
// bundles a component together with its static wasm-rpc dependencies.
//
// A link container is a component-layer binary (magic "\0asm", version 0x0d,
// layer 0x01) holding one core-module section per bundled module plus a
// "wasm-appbuild:link" custom section that records, in order, the namespace
// each module is instantiated under. The last module is the root component;
// every module before it is a dependency registered under its namespace.
//
// Both core modules and link containers can carry a "wasm-appbuild:meta"
// custom section stamping the root WIT package name and version onto the
// artifact. Custom sections are appended, never rewritten, so stamping is a
// pure append on the binary.
package wasm
