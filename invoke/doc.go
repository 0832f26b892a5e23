// Package invoke runs built artifacts. It instantiates a link container's
// dependency modules under their recorded namespaces, then the root module,
// and calls exported functions. Plain core modules run directly.
//
// This is a development harness for the CLI's -invoke flag and the
// end-to-end tests, not a production runtime: arguments and results are raw
// core-wasm values.
package invoke
