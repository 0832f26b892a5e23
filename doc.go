// Package appbuild provides the build engine for WebAssembly component
// applications: WIT dependency resolution, RPC client stub generation, and
// incremental compile/link orchestration.
//
// An application is a set of named components, each with its own WIT package
// and a list of dependencies on other components. Building an application
// resolves every component's WIT package graph, synthesizes a "client" WIT
// package for each wasm-rpc dependency edge, merges those clients into the
// dependent component's generated WIT, runs each component's build commands,
// links static RPC clients into the final binary, and stamps the result with
// package metadata.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	wasm-appbuild/       Root package with the shared application model
//	├── build/           Incremental build orchestrator and task markers
//	├── witresolve/      WIT package graph resolution and component ordering
//	├── stub/            Client WIT package synthesis for RPC dependencies
//	├── witmerge/        Merging client packages into dependent WIT roots
//	├── wit/             WIT text model, parser, and deterministic encoder
//	├── wasm/            WASM binary sections, linking containers, metadata
//	├── wat/             Minimal WAT compiler for development fixtures
//	├── invoke/          Running linked artifacts for smoke verification
//	└── errors/          Structured error types for diagnostics
//
// # Quick Start
//
// Load an application manifest and build it:
//
//	app, err := appbuild.LoadApplication("app.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	bctx := build.NewContext(app, build.Options{Profile: "release"})
//	if err := build.Run(ctx, bctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Incremental Builds
//
// Every unit of work is gated twice: by a modification-time comparison over
// declared source and target file sets, and by a content-hash-keyed success
// or failure marker persisted under the application's target directory. A
// crashed or failed unit leaves no success marker, so the next invocation
// redoes exactly that unit. See the build package for details.
//
// # Thread Safety
//
// Application and the resolver types are immutable after construction and
// safe for concurrent reads. Within one build step, independent components
// are processed in parallel; their generated directories and marker files
// are disjoint by construction.
package appbuild
