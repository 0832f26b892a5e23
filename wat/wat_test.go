package wat

import (
	"bytes"
	stderrors "errors"
	"testing"

	apperrors "github.com/wippyai/wasm-appbuild/errors"
	"github.com/wippyai/wasm-appbuild/wasm"
)

const addModule = `(module
  (func (export "add") (param i32 i32) (result i32)
    (i32.add (local.get 0) (local.get 1)))
)`

func TestCompileAdd(t *testing.T) {
	bin, err := Compile(addModule)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if err := wasm.ValidateModule(bin); err != nil {
		t.Fatalf("output is not a valid core module: %v", err)
	}
}

func TestCompileDeterministic(t *testing.T) {
	a, err := Compile(addModule)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Compile(addModule)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("same source compiled to different binaries")
	}
}

func TestCompileImportAndCall(t *testing.T) {
	src := `(module
  (import "env" "base" (func $base (result i64)))
  (func $double (param i64) (result i64)
    (i64.add (local.get 0) (local.get 0)))
  (func (export "answer") (result i64)
    (call $double (call $base)))
)`
	bin, err := Compile(src)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if err := wasm.ValidateModule(bin); err != nil {
		t.Fatalf("output is not a valid core module: %v", err)
	}
}

func TestCompileTopLevelExport(t *testing.T) {
	src := `(module
  (func $six (result i32) (i32.const 6))
  (export "six" (func $six))
)`
	bin, err := Compile(src)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if err := wasm.ValidateModule(bin); err != nil {
		t.Fatalf("output is not a valid core module: %v", err)
	}
}

func TestCompileNegativeConst(t *testing.T) {
	src := `(module
  (func (export "neg") (result i32) (i32.const -64))
)`
	if _, err := Compile(src); err != nil {
		t.Fatalf("compile failed: %v", err)
	}
}

func TestCompileSharesIdenticalTypes(t *testing.T) {
	src := `(module
  (func (export "a") (param i32) (result i32) (local.get 0))
  (func (export "b") (param i32) (result i32) (local.get 0))
)`
	bin, err := Compile(src)
	if err != nil {
		t.Fatal(err)
	}
	// Type section: id 1, size, count. Identical signatures intern to one
	// type entry.
	idx := bytes.IndexByte(bin[8:], 0x01)
	if idx != 0 {
		t.Fatalf("expected type section first, got section id at offset %d", idx)
	}
	if count := bin[10]; count != 1 {
		t.Errorf("type count = %d, want 1", count)
	}
}

func TestCompileErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"unclosed paren", `(module (func (export "f")`},
		{"unknown instruction", `(module (func (i32.div_s (i32.const 1) (i32.const 1))))`},
		{"unknown value type", `(module (func (param v128)))`},
		{"unknown call target", `(module (func (call $missing)))`},
		{"not a module", `(func)`},
		{"bad export form", `(module (export "f"))`},
		{"import after func", `(module (func) (import "a" "b" (func)))`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compile(tc.src)
			if err == nil {
				t.Fatal("expected compile error")
			}
			var e *apperrors.Error
			if !stderrors.As(err, &e) || e.Kind != apperrors.KindParse {
				t.Errorf("error = %v, want a parse error", err)
			}
		})
	}
}
