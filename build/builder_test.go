package build

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	appbuild "github.com/wippyai/wasm-appbuild"
	"github.com/wippyai/wasm-appbuild/invoke"
	"github.com/wippyai/wasm-appbuild/stub"
	"github.com/wippyai/wasm-appbuild/wasm"
	"github.com/wippyai/wasm-appbuild/wat"
	"github.com/wippyai/wasm-appbuild/witresolve"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func testContext() *Context {
	return NewContext(context.Background(), nil)
}

func runBuild(t *testing.T, app *appbuild.Application, opts Options) error {
	t.Helper()
	layout := appbuild.NewLayout(app, opts.Profile)
	b, err := New(app, layout, opts)
	if err != nil {
		t.Fatal(err)
	}
	return b.Run(testContext())
}

// e2eApp is an application with a durable main component that calls into a
// library component: main.run() computes add(add(1, 2), 3) through app:lib.
func e2eApp(t *testing.T) *appbuild.Application {
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "lib", "wit", "main.wit"), `package app:lib;

interface api {
  add: func(a: u64, b: u64) -> u64;
}

world lib {
  export api;
}
`)
	writeFile(t, filepath.Join(dir, "lib", "lib.wat"), `(module
  (func (export "add") (param i64 i64) (result i64)
    (i64.add (local.get 0) (local.get 1)))
)`)

	writeFile(t, filepath.Join(dir, "main", "wit", "main.wit"), `package app:main@1.0.0;

interface run-api {
  run: func() -> u64;
}

world main {
  import app:lib/api;
  export run-api;
}
`)
	writeFile(t, filepath.Join(dir, "main", "main.wat"), `(module
  (import "app:lib" "add" (func $add (param i64 i64) (result i64)))
  (func (export "run") (result i64)
    (call $add (call $add (i64.const 1) (i64.const 2)) (i64.const 3)))
)`)

	return &appbuild.Application{
		Name: "e2e",
		Dir:  dir,
		Components: map[appbuild.ComponentName]*appbuild.Component{
			"lib": {
				Name:       "lib",
				Type:       appbuild.ComponentLibrary,
				SourceWit:  "lib/wit",
				SourceWasm: "lib.wat",
			},
			"main": {
				Name:       "main",
				Type:       appbuild.ComponentDurable,
				SourceWit:  "main/wit",
				SourceWasm: "main.wat",
				Dependencies: []appbuild.Dependency{
					{Target: "lib", Type: appbuild.DependencyWasm},
				},
			},
		},
	}
}

func TestEndToEndBuildAndInvoke(t *testing.T) {
	app := e2eApp(t)
	if err := runBuild(t, app, Options{Profile: "default"}); err != nil {
		t.Fatalf("build failed: %v", err)
	}

	layout := appbuild.NewLayout(app, "default")
	artifact, err := os.ReadFile(layout.LinkedWasm("main"))
	if err != nil {
		t.Fatalf("linked artifact missing: %v", err)
	}

	meta, found, err := wasm.ReadMetadata(artifact)
	if err != nil || !found {
		t.Fatalf("artifact not stamped: %v", err)
	}
	if meta.Package != "app:main" || meta.Version != "1.0.0" {
		t.Errorf("metadata = %+v", meta)
	}

	ctx := context.Background()
	r := invoke.NewRunner(ctx)
	defer r.Close(ctx)

	inst, err := r.Load(ctx, artifact)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	results, err := inst.Call(ctx, "run")
	if err != nil {
		t.Fatalf("invoke failed: %v", err)
	}
	if len(results) != 1 || results[0] != 6 {
		t.Errorf("run() = %v, want 6", results)
	}
}

func TestRebuildIsNoOp(t *testing.T) {
	app := e2eApp(t)
	if err := runBuild(t, app, Options{Profile: "default"}); err != nil {
		t.Fatalf("first build failed: %v", err)
	}

	layout := appbuild.NewLayout(app, "default")
	linked := layout.LinkedWasm("main")
	before, err := os.Stat(linked)
	if err != nil {
		t.Fatal(err)
	}

	if err := runBuild(t, app, Options{Profile: "default"}); err != nil {
		t.Fatalf("second build failed: %v", err)
	}
	after, err := os.Stat(linked)
	if err != nil {
		t.Fatal(err)
	}
	if !after.ModTime().Equal(before.ModTime()) {
		t.Error("up-to-date build rewrote the linked artifact")
	}
}

func rpcPairApp(t *testing.T) *appbuild.Application {
	dir := t.TempDir()
	for _, name := range []string{"a", "b"} {
		writeFile(t, filepath.Join(dir, name, "wit", "main.wit"), `package app:`+name+`;

interface api {
  poke: func() -> u64;
}

world `+name+` {
  export api;
}
`)
	}
	return &appbuild.Application{
		Name: "pair",
		Dir:  dir,
		Components: map[appbuild.ComponentName]*appbuild.Component{
			"a": {
				Name: "a", Type: appbuild.ComponentDurable,
				SourceWit: "a/wit", SourceWasm: "a.wasm",
				Dependencies: []appbuild.Dependency{
					{Target: "b", Type: appbuild.DependencyDynamicWasmRpc},
				},
			},
			"b": {
				Name: "b", Type: appbuild.ComponentDurable,
				SourceWit: "b/wit", SourceWasm: "b.wasm",
				Dependencies: []appbuild.Dependency{
					{Target: "a", Type: appbuild.DependencyDynamicWasmRpc},
				},
			},
		},
	}
}

func TestGenRpcMergesClients(t *testing.T) {
	app := rpcPairApp(t)
	if err := runBuild(t, app, Options{Profile: "default", Steps: []Step{StepGenRpc}}); err != nil {
		t.Fatalf("gen-rpc failed: %v", err)
	}

	layout := appbuild.NewLayout(app, "default")
	if _, err := os.Stat(filepath.Join(layout.WitDir("a"), "deps", "app_b-client")); err != nil {
		t.Errorf("a's generated wit has no merged b client: %v", err)
	}
	if _, err := os.Stat(filepath.Join(layout.WitDir("b"), "deps", "app_a-client")); err != nil {
		t.Errorf("b's generated wit has no merged a client: %v", err)
	}

	// Both generated roots must be independently resolvable, mutual cycle
	// included.
	resolver, err := witresolve.NewResolver(witresolve.Options{
		GenericPackages: stub.StandardPackageNames(),
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = resolver.Resolve(app, []witresolve.Root{
		{Component: "a", Dir: layout.WitDir("a")},
		{Component: "b", Dir: layout.WitDir("b")},
	})
	if err != nil {
		t.Errorf("generated roots do not resolve: %v", err)
	}
}

func TestCommandUpToDateSkip(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "comp", "src.bin"), "payload")
	writeFile(t, filepath.Join(dir, "comp", "wit", "main.wit"), "package app:comp;\n\nworld comp {\n}\n")

	app := &appbuild.Application{
		Name: "counted",
		Dir:  dir,
		Components: map[appbuild.ComponentName]*appbuild.Component{
			"comp": {
				Name: "comp", Type: appbuild.ComponentDurable,
				SourceWit: "comp/wit", SourceWasm: "out.bin",
				Build: map[string][]appbuild.BuildCommand{
					"default": {{
						Command: `sh -c "echo run >> runs.log; cp src.bin out.bin"`,
						Sources: []string{"src.bin"},
						Targets: []string{"out.bin"},
					}},
				},
			},
		},
	}
	opts := Options{Profile: "default", Steps: []Step{StepComponentize}}

	runs := func() int {
		data, err := os.ReadFile(filepath.Join(dir, "comp", "runs.log"))
		if err != nil {
			return 0
		}
		return len(strings.Fields(string(data)))
	}

	if err := runBuild(t, app, opts); err != nil {
		t.Fatalf("first build failed: %v", err)
	}
	if got := runs(); got != 1 {
		t.Fatalf("command ran %d times, want 1", got)
	}

	// Unchanged sources with existing newer targets: skipped.
	if err := runBuild(t, app, opts); err != nil {
		t.Fatalf("second build failed: %v", err)
	}
	if got := runs(); got != 1 {
		t.Errorf("up-to-date command reran, %d runs", got)
	}

	// Touching a declared source reruns the command.
	future := time.Now().Add(time.Second)
	if err := os.Chtimes(filepath.Join(dir, "comp", "src.bin"), future, future); err != nil {
		t.Fatal(err)
	}
	if err := runBuild(t, app, opts); err != nil {
		t.Fatalf("third build failed: %v", err)
	}
	if got := runs(); got != 2 {
		t.Errorf("touched source did not rerun the command, %d runs", got)
	}

	// Force reruns regardless.
	forced := opts
	forced.Force = true
	if err := runBuild(t, app, forced); err != nil {
		t.Fatalf("forced build failed: %v", err)
	}
	if got := runs(); got != 3 {
		t.Errorf("force did not rerun the command, %d runs", got)
	}
}

func TestFailureIsolation(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"good", "bad"} {
		writeFile(t, filepath.Join(dir, name, "wit", "main.wit"),
			"package app:"+name+";\n\nworld "+name+" {\n}\n")
	}
	writeFile(t, filepath.Join(dir, "good", "good.wat"), `(module
  (func (export "ok") (result i32) (i32.const 1))
)`)

	app := &appbuild.Application{
		Name: "iso",
		Dir:  dir,
		Components: map[appbuild.ComponentName]*appbuild.Component{
			"good": {
				Name: "good", Type: appbuild.ComponentDurable,
				SourceWit: "good/wit", SourceWasm: "good.wat",
			},
			"bad": {
				Name: "bad", Type: appbuild.ComponentDurable,
				SourceWit: "bad/wit", SourceWasm: "out.bin",
				Build: map[string][]appbuild.BuildCommand{
					"default": {{Command: `sh -c "exit 1"`}},
				},
			},
		},
	}

	err := runBuild(t, app, Options{Profile: "default",
		Steps: []Step{StepComponentize, StepLinkRpc}})
	if err == nil {
		t.Fatal("failed component did not surface an error")
	}

	layout := appbuild.NewLayout(app, "default")
	if _, statErr := os.Stat(layout.LinkedWasm("good")); statErr != nil {
		t.Errorf("sibling component did not complete: %v", statErr)
	}
	if _, statErr := os.Stat(layout.LinkedWasm("bad")); statErr == nil {
		t.Error("failed component produced a linked artifact")
	}
}

func TestDependencyTypeRejected(t *testing.T) {
	app := e2eApp(t)
	app.Components["main"].Dependencies = []appbuild.Dependency{
		{Target: "lib", Type: appbuild.DependencyStaticWasmRpc},
	}

	err := runBuild(t, app, Options{Profile: "default"})
	if err == nil {
		t.Fatal("wasm-rpc dependency on a library component accepted")
	}
	if !strings.Contains(err.Error(), "library") {
		t.Errorf("error does not name the problem: %v", err)
	}
}

func TestEmitCratesPreservesEdits(t *testing.T) {
	app := rpcPairApp(t)
	opts := Options{Profile: "default", Steps: []Step{StepGenRpc}, EmitCrates: true}
	if err := runBuild(t, app, opts); err != nil {
		t.Fatalf("gen-rpc failed: %v", err)
	}

	layout := appbuild.NewLayout(app, "default")
	crateDir := filepath.Join(layout.TargetDir, "clients", "b", "crate")
	for _, rel := range []string{"Cargo.toml", filepath.Join("src", "lib.rs")} {
		if _, err := os.Stat(filepath.Join(crateDir, rel)); err != nil {
			t.Errorf("crate skeleton missing %s: %v", rel, err)
		}
	}

	// A regenerated client must not clobber user edits to the crate.
	libPath := filepath.Join(crateDir, "src", "lib.rs")
	writeFile(t, libPath, "// edited\n")
	if err := os.RemoveAll(layout.ClientWitDir("b")); err != nil {
		t.Fatal(err)
	}
	if err := runBuild(t, app, Options{Profile: "default",
		Steps: []Step{StepGenRpc}, EmitCrates: true, Force: true}); err != nil {
		t.Fatalf("second gen-rpc failed: %v", err)
	}
	data, err := os.ReadFile(libPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "// edited\n" {
		t.Error("regeneration overwrote the edited crate source")
	}
}

// staticRpcApp declares a static wasm-rpc edge whose compiled client binary
// is produced out of band, the way a cargo build of the client crate would.
func staticRpcApp(t *testing.T) *appbuild.Application {
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "svc", "wit", "main.wit"), `package app:svc;

interface api {
  poke: func() -> u64;
}

world svc {
  export api;
}
`)
	writeFile(t, filepath.Join(dir, "svc", "svc.wat"), `(module
  (func (export "poke") (result i64) (i64.const 7))
)`)

	writeFile(t, filepath.Join(dir, "front", "wit", "main.wit"), `package app:front;

interface front-api {
  call-poke: func() -> u64;
}

world front {
  export front-api;
}
`)
	writeFile(t, filepath.Join(dir, "front", "front.wat"), `(module
  (import "app:svc" "poke" (func $poke (result i64)))
  (func (export "call-poke") (result i64) (call $poke))
)`)

	return &appbuild.Application{
		Name: "staticrpc",
		Dir:  dir,
		Components: map[appbuild.ComponentName]*appbuild.Component{
			"svc": {
				Name:       "svc",
				Type:       appbuild.ComponentDurable,
				SourceWit:  "svc/wit",
				SourceWasm: "svc.wat",
			},
			"front": {
				Name:       "front",
				Type:       appbuild.ComponentDurable,
				SourceWit:  "front/wit",
				SourceWasm: "front.wat",
				Dependencies: []appbuild.Dependency{
					{Target: "svc", Type: appbuild.DependencyStaticWasmRpc},
				},
			},
		},
	}
}

func TestStaticClientIsComposed(t *testing.T) {
	app := staticRpcApp(t)
	layout := appbuild.NewLayout(app, "default")

	// The client binary stands in for a compiled client crate.
	clientBin, err := wat.Compile(`(module
  (func (export "poke") (result i64) (i64.const 7))
)`)
	if err != nil {
		t.Fatalf("client compile failed: %v", err)
	}
	clientPath := layout.ClientWasm("svc")
	if err := os.MkdirAll(filepath.Dir(clientPath), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(clientPath, clientBin, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := runBuild(t, app, Options{Profile: "default"}); err != nil {
		t.Fatalf("build failed: %v", err)
	}

	artifact, err := os.ReadFile(layout.LinkedWasm("front"))
	if err != nil {
		t.Fatalf("linked artifact missing: %v", err)
	}
	modules, info, err := wasm.ParseLinkContainer(artifact)
	if err != nil {
		t.Fatalf("linked artifact is not a container: %v", err)
	}
	if info.Root() != "app:front" {
		t.Errorf("root namespace = %q", info.Root())
	}
	deps := info.Dependencies()
	if len(deps) != 1 || deps[0] != "app:svc" {
		t.Errorf("dependency namespaces = %v", deps)
	}
	if len(modules) != 2 || !bytes.Equal(modules[0], clientBin) {
		t.Error("client binary was not embedded as the dependency module")
	}

	ctx := context.Background()
	r := invoke.NewRunner(ctx)
	defer r.Close(ctx)
	inst, err := r.Load(ctx, artifact)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	results, err := inst.Call(ctx, "call-poke")
	if err != nil {
		t.Fatalf("invoke failed: %v", err)
	}
	if len(results) != 1 || results[0] != 7 {
		t.Errorf("call-poke = %v, want [7]", results)
	}
}
