package build

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeAt(t *testing.T, path, content string, mtime time.Time) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
}

func TestIsUpToDate(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-time.Hour)
	newer := time.Now().Add(-time.Minute)

	src := filepath.Join(dir, "src.txt")
	target := filepath.Join(dir, "out.txt")
	writeAt(t, src, "in", old)
	writeAt(t, target, "out", newer)

	current, err := IsUpToDate(false, []string{src}, []string{target})
	if err != nil {
		t.Fatal(err)
	}
	if !current {
		t.Error("newer target with older source reported stale")
	}

	// Force bypasses the check.
	current, err = IsUpToDate(true, []string{src}, []string{target})
	if err != nil || current {
		t.Errorf("force did not bypass: current=%v err=%v", current, err)
	}

	// Touching the source makes the target stale.
	writeAt(t, src, "in2", time.Now())
	current, err = IsUpToDate(false, []string{src}, []string{target})
	if err != nil || current {
		t.Errorf("newer source reported up to date: current=%v err=%v", current, err)
	}
}

func TestIsUpToDateMissingTarget(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	writeAt(t, src, "in", time.Now().Add(-time.Hour))

	current, err := IsUpToDate(false, []string{src}, []string{filepath.Join(dir, "absent")})
	if err != nil || current {
		t.Errorf("missing target reported up to date: current=%v err=%v", current, err)
	}

	current, err = IsUpToDate(false, []string{src}, nil)
	if err != nil || current {
		t.Errorf("empty target set reported up to date: current=%v err=%v", current, err)
	}
}

func TestIsUpToDateDirectorySources(t *testing.T) {
	dir := t.TempDir()
	srcDir := filepath.Join(dir, "wit")
	target := filepath.Join(dir, "out.txt")

	writeAt(t, filepath.Join(srcDir, "main.wit"), "a", time.Now().Add(-2*time.Hour))
	writeAt(t, filepath.Join(srcDir, "deps", "dep.wit"), "b", time.Now().Add(-2*time.Hour))
	if err := os.Chtimes(srcDir, time.Now().Add(-2*time.Hour), time.Now().Add(-2*time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(filepath.Join(srcDir, "deps"), time.Now().Add(-2*time.Hour), time.Now().Add(-2*time.Hour)); err != nil {
		t.Fatal(err)
	}
	writeAt(t, target, "out", time.Now().Add(-time.Hour))

	current, err := IsUpToDate(false, []string{srcDir}, []string{target})
	if err != nil || !current {
		t.Errorf("unchanged dir reported stale: current=%v err=%v", current, err)
	}

	// A nested file change is seen.
	writeAt(t, filepath.Join(srcDir, "deps", "dep.wit"), "b2", time.Now())
	if err := os.Chtimes(filepath.Join(srcDir, "deps"), time.Now().Add(-2*time.Hour), time.Now().Add(-2*time.Hour)); err != nil {
		t.Fatal(err)
	}
	current, err = IsUpToDate(false, []string{srcDir}, []string{target})
	if err != nil || current {
		t.Errorf("nested change not detected: current=%v err=%v", current, err)
	}
}

func TestExpandGlobs(t *testing.T) {
	dir := t.TempDir()
	writeAt(t, filepath.Join(dir, "src", "a.rs"), "", time.Now())
	writeAt(t, filepath.Join(dir, "src", "sub", "b.rs"), "", time.Now())
	writeAt(t, filepath.Join(dir, "src", "c.txt"), "", time.Now())

	got, err := ExpandGlobs(dir, []string{"src/**/*.rs"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("matched %v, want the two .rs files", got)
	}

	// Plain paths pass through even when absent.
	got, err = ExpandGlobs(dir, []string{"missing.wasm"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != filepath.Join(dir, "missing.wasm") {
		t.Errorf("plain path = %v", got)
	}
}
