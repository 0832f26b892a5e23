package stub

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	stderrors "errors"

	"github.com/wippyai/wasm-appbuild/errors"
	"github.com/wippyai/wasm-appbuild/wit"
)

const counterSource = `package app:counter@1.0.0;

interface api {
  record stats {
    total: u64,
    calls: u32,
  }

  resource counter {
    constructor(start: u64);
    inc: func(by: u64) -> u64;
    value: func() -> u64;
  }

  add: func(a: u64, b: u64) -> u64;
  reset: func();
  stats-of: func() -> stats;
}

world counter-world {
  import wasi:clocks/wall-clock@0.2.0;
  export api;
}
`

func parseSource(t *testing.T, src string) *wit.Package {
	t.Helper()
	pkg, err := wit.Parse([]byte(src), "test.wit")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return pkg
}

func generate(t *testing.T, src string, transform SourceTransform) *ClientPackage {
	t.Helper()
	view, err := ExtractExports(parseSource(t, src), "", transform)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	client, err := GenerateClient(view)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	return client
}

func TestGenerateClientShape(t *testing.T) {
	client := generate(t, counterSource, ExtractExportsPackage)

	if got := client.Name.String(); got != "app:counter-client@1.0.0" {
		t.Errorf("client package name = %q, want app:counter-client@1.0.0", got)
	}

	stub := client.Package.Interface(StubInterface)
	if stub == nil {
		t.Fatal("client has no stub-api interface")
	}

	world := client.Package.World(ClientWorld)
	if world == nil {
		t.Fatal("client has no client world")
	}
	if len(world.Imports) != 0 {
		t.Errorf("client world imports %v, want nothing", world.Imports)
	}
	if len(world.Exports) != 1 || world.Exports[0].Interface != StubInterface {
		t.Errorf("client world exports %v, want just stub-api", world.Exports)
	}

	// The source counter resource and the interface-level function carrier.
	counter := stub.TypeDef("counter")
	if counter == nil {
		t.Fatal("client has no counter resource")
	}
	api := stub.TypeDef("api")
	if api == nil {
		t.Fatal("client has no api resource for interface-level functions")
	}

	apiRes := api.Kind.(*wit.Resource)
	if apiRes.Constructor == nil || len(apiRes.Constructor.Params) != 1 ||
		apiRes.Constructor.Params[0].Name != "location" {
		t.Errorf("api constructor = %+v, want single location param", apiRes.Constructor)
	}

	counterRes := counter.Kind.(*wit.Resource)
	// location plus the source constructor's start param
	if len(counterRes.Constructor.Params) != 2 || counterRes.Constructor.Params[1].Name != "start" {
		t.Errorf("counter constructor params = %+v, want location, start", counterRes.Constructor.Params)
	}
}

func TestEveryFunctionHasBlockingAndAsyncForms(t *testing.T) {
	client := generate(t, counterSource, ExtractExportsPackage)
	stub := client.Package.Interface(StubInterface)

	checks := []struct {
		resource string
		fn       string
		future   string
	}{
		{"api", "add", "future-add-result"},
		{"api", "reset", "future-reset-result"},
		{"api", "stats-of", "future-stats-of-result"},
		{"counter", "inc", "future-counter-inc-result"},
		{"counter", "value", "future-counter-value-result"},
	}

	for _, c := range checks {
		res := stub.TypeDef(c.resource).Kind.(*wit.Resource)
		var blocking, async *wit.Function
		for _, m := range res.Methods {
			switch m.Name {
			case "blocking-" + c.fn:
				blocking = m
			case c.fn:
				async = m
			}
		}
		if blocking == nil {
			t.Errorf("%s.%s: missing blocking form", c.resource, c.fn)
			continue
		}
		if async == nil {
			t.Errorf("%s.%s: missing async form", c.resource, c.fn)
			continue
		}
		named, ok := async.Result.(*wit.Named)
		if !ok || named.Name != c.future {
			t.Errorf("%s.%s: async result = %v, want %s", c.resource, c.fn, async.Result, c.future)
		}
		future := stub.TypeDef(c.future)
		if future == nil {
			t.Errorf("%s.%s: future resource %s not defined", c.resource, c.fn, c.future)
			continue
		}
		futureRes := future.Kind.(*wit.Resource)
		var subscribe, get *wit.Function
		for _, m := range futureRes.Methods {
			switch m.Name {
			case "subscribe":
				subscribe = m
			case "get":
				get = m
			}
		}
		if subscribe == nil || get == nil {
			t.Errorf("%s: future resource missing subscribe/get", c.future)
			continue
		}
		if _, ok := get.Result.(*wit.Option); !ok {
			t.Errorf("%s.get result = %v, want option", c.future, get.Result)
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	a := generate(t, counterSource, ExtractExportsPackage)
	b := generate(t, counterSource, ExtractExportsPackage)
	if !bytes.Equal(wit.Encode(a.Package), wit.Encode(b.Package)) {
		t.Error("two generations from the same source differ")
	}
}

func TestTransformModeEquivalence(t *testing.T) {
	extracted := generate(t, counterSource, ExtractExportsPackage)
	stripped := generate(t, counterSource, StripSourcePackage)

	extractedText := string(wit.Encode(extracted.Package))
	strippedText := string(wit.Encode(stripped.Package))

	// The client text may differ only in references to the source package's
	// name.
	normalized := strings.ReplaceAll(extractedText, "app:counter-exports", "app:counter")
	if normalized != strippedText {
		t.Errorf("transform modes disagree beyond the package name:\nextract:\n%s\nstrip:\n%s",
			extractedText, strippedText)
	}
}

func TestStandardDepsAlwaysVendored(t *testing.T) {
	// A source that references nothing standard must still carry the
	// wasm-rpc support packages in its deps.
	src := `package app:tiny;

interface api {
  ping: func() -> u32;
}

world tiny {
  export api;
}
`
	client := generate(t, src, ExtractExportsPackage)

	want := map[string]bool{"wasm:rpc": false, "wasi:io": false, "wasi:clocks": false}
	for _, dep := range client.Deps {
		if _, ok := want[dep.Name.Unversioned()]; ok {
			want[dep.Name.Unversioned()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("standard package %s missing from client deps", name)
		}
	}
}

func TestUnsupportedTypeRejected(t *testing.T) {
	src := `package app:bad;

interface api {
  resource session {
    id: func() -> u64;
  }
  take: func(s: borrow<session>) -> u64;
}

world bad {
  export api;
}
`
	view, err := ExtractExports(parseSource(t, src), "", ExtractExportsPackage)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	_, err = GenerateClient(view)
	if err == nil {
		t.Fatal("expected unsupported type error")
	}
	var e *errors.Error
	if !stderrors.As(err, &e) {
		t.Fatalf("error type = %T, want *errors.Error", err)
	}
	if e.Kind != errors.KindUnsupportedType {
		t.Errorf("error kind = %s, want unsupported_type", e.Kind)
	}
	if !strings.Contains(e.Symbol, "api") || !strings.Contains(err.Error(), "session") {
		t.Errorf("error does not name the offending interface and type: %v", err)
	}
}

func TestExtractExportsDropsImports(t *testing.T) {
	src := `package app:mixed;

interface internal {
  helper: func() -> u32;
}

interface api {
  visible: func() -> u32;
}

world mixed {
  import internal;
  import wasi:clocks/wall-clock@0.2.0;
  export api;
}
`
	view, err := ExtractExports(parseSource(t, src), "", ExtractExportsPackage)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if view.Package.Interface("internal") != nil {
		t.Error("imported interface leaked into exports view")
	}
	if view.Package.Interface("api") == nil {
		t.Error("exported interface missing from exports view")
	}
	if got := view.Package.Name.String(); got != "app:mixed-exports" {
		t.Errorf("exports package name = %q, want app:mixed-exports", got)
	}
	world := view.Package.Worlds[0]
	if len(world.Imports) != 0 {
		t.Errorf("exports world still imports %v", world.Imports)
	}
}

func TestExtractExportsNothingExported(t *testing.T) {
	src := `package app:empty;

interface api {
  f: func();
}

world empty {
  import api;
}
`
	if _, err := ExtractExports(parseSource(t, src), "", ExtractExportsPackage); err == nil {
		t.Error("expected error for world exporting nothing")
	}
}

func TestWriteToProducesResolvableRoot(t *testing.T) {
	client := generate(t, counterSource, ExtractExportsPackage)
	dir := t.TempDir()
	if err := client.WriteTo(dir); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	main, err := wit.LoadPackage(dir)
	if err != nil {
		t.Fatalf("client root does not load: %v", err)
	}
	if main.Name.Unversioned() != "app:counter-client" {
		t.Errorf("root package = %s, want app:counter-client", main.Name)
	}

	// Every referenced package must be present under deps.
	present := map[string]bool{}
	entries, err := os.ReadDir(filepath.Join(dir, wit.DepsDir))
	if err != nil {
		t.Fatalf("read deps: %v", err)
	}
	for _, e := range entries {
		pkg, err := wit.LoadPackage(filepath.Join(dir, wit.DepsDir, e.Name()))
		if err != nil {
			t.Fatalf("dep %s does not load: %v", e.Name(), err)
		}
		present[pkg.Name.Unversioned()] = true
	}
	for _, ref := range main.PackageDeps() {
		if !present[ref.Unversioned()] {
			t.Errorf("referenced package %s missing from deps", ref)
		}
	}
}
