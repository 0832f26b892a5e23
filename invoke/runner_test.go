package invoke

import (
	"context"
	stderrors "errors"
	"testing"

	apperrors "github.com/wippyai/wasm-appbuild/errors"
	"github.com/wippyai/wasm-appbuild/wasm"
	"github.com/wippyai/wasm-appbuild/wat"
)

func compile(t *testing.T, src string) []byte {
	t.Helper()
	bin, err := wat.Compile(src)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	return bin
}

func TestCallCoreModule(t *testing.T) {
	ctx := context.Background()
	bin := compile(t, `(module
  (func (export "add") (param i32 i32) (result i32)
    (i32.add (local.get 0) (local.get 1)))
)`)

	r := NewRunner(ctx)
	defer r.Close(ctx)

	inst, err := r.Load(ctx, bin)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	results, err := inst.Call(ctx, "add", 2, 3)
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if len(results) != 1 || results[0] != 5 {
		t.Errorf("add(2, 3) = %v", results)
	}
}

func TestCallLinkContainer(t *testing.T) {
	ctx := context.Background()

	dep := compile(t, `(module
  (func (export "base") (result i32) (i32.const 40))
)`)
	root := compile(t, `(module
  (import "app:store" "base" (func $base (result i32)))
  (func (export "answer") (result i32)
    (i32.add (call $base) (i32.const 2)))
)`)

	container, err := wasm.BuildLinkContainer(
		[][]byte{dep, root}, []string{"app:store", "app:gateway"})
	if err != nil {
		t.Fatalf("link failed: %v", err)
	}

	r := NewRunner(ctx)
	defer r.Close(ctx)

	inst, err := r.Load(ctx, container)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	results, err := inst.Call(ctx, "answer")
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if len(results) != 1 || results[0] != 42 {
		t.Errorf("answer() = %v, want 42", results)
	}
}

func TestCallStampedContainer(t *testing.T) {
	ctx := context.Background()
	mod := compile(t, `(module
  (func (export "six") (result i32) (i32.const 6))
)`)
	container, err := wasm.BuildLinkContainer([][]byte{mod}, []string{"app:solo"})
	if err != nil {
		t.Fatal(err)
	}
	stamped, err := wasm.AddMetadata(container, wasm.Metadata{Package: "app:solo", Version: "1.0.0"})
	if err != nil {
		t.Fatal(err)
	}

	r := NewRunner(ctx)
	defer r.Close(ctx)

	inst, err := r.Load(ctx, stamped)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	results, err := inst.Call(ctx, "six")
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if len(results) != 1 || results[0] != 6 {
		t.Errorf("six() = %v", results)
	}
}

func TestCallUnknownFunction(t *testing.T) {
	ctx := context.Background()
	bin := compile(t, `(module
  (func (export "f") (result i32) (i32.const 0))
)`)

	r := NewRunner(ctx)
	defer r.Close(ctx)

	inst, err := r.Load(ctx, bin)
	if err != nil {
		t.Fatal(err)
	}
	_, err = inst.Call(ctx, "missing")
	if err == nil {
		t.Fatal("expected an error")
	}
	var e *apperrors.Error
	if !stderrors.As(err, &e) || e.Kind != apperrors.KindNotFound {
		t.Errorf("error = %v, want not_found", err)
	}
}

func TestLoadRejectsJunk(t *testing.T) {
	ctx := context.Background()
	r := NewRunner(ctx)
	defer r.Close(ctx)

	if _, err := r.Load(ctx, []byte("junk")); err == nil {
		t.Error("junk accepted")
	}
}
