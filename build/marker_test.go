package build

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
)

func TestMarkerLifecycle(t *testing.T) {
	dir := t.TempDir()

	m, err := NewTaskResultMarker(dir, "test", "unit-1")
	if err != nil {
		t.Fatal(err)
	}
	if m.IsUpToDate() {
		t.Error("fresh marker reports up to date")
	}
	if err := m.Success(); err != nil {
		t.Fatal(err)
	}

	m, err = NewTaskResultMarker(dir, "test", "unit-1")
	if err != nil {
		t.Fatal(err)
	}
	if !m.IsUpToDate() {
		t.Error("marker lost its success record")
	}
}

func TestMarkerDistinctTasks(t *testing.T) {
	dir := t.TempDir()

	m1, err := NewTaskResultMarker(dir, "test", "unit-1")
	if err != nil {
		t.Fatal(err)
	}
	if err := m1.Success(); err != nil {
		t.Fatal(err)
	}

	m2, err := NewTaskResultMarker(dir, "test", "unit-2")
	if err != nil {
		t.Fatal(err)
	}
	if m2.IsUpToDate() {
		t.Error("different descriptor shares the marker")
	}
	m3, err := NewTaskResultMarker(dir, "other", "unit-1")
	if err != nil {
		t.Fatal(err)
	}
	if m3.IsUpToDate() {
		t.Error("different kind shares the marker")
	}
}

func TestMarkerFailureForcesRerun(t *testing.T) {
	dir := t.TempDir()

	m, err := NewTaskResultMarker(dir, "test", "unit")
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Success(); err != nil {
		t.Fatal(err)
	}

	cause := stderrors.New("boom")
	if got := m.Failure(cause); got != cause {
		t.Errorf("Failure returned %v", got)
	}

	// The next invocation constructs the marker fresh; the stale failure
	// pair is cleared and the unit is not up to date.
	m, err = NewTaskResultMarker(dir, "test", "unit")
	if err != nil {
		t.Fatal(err)
	}
	if m.IsUpToDate() {
		t.Error("failed unit reports up to date")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".failure" {
			t.Error("stale failure marker not cleared at construction")
		}
	}
}

func TestMarkerCrashSafety(t *testing.T) {
	dir := t.TempDir()

	// Simulate a crash after failure detection: both files present.
	m, err := NewTaskResultMarker(dir, "test", "unit")
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Success(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(m.failurePath, []byte("crash\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err = NewTaskResultMarker(dir, "test", "unit")
	if err != nil {
		t.Fatal(err)
	}
	if m.IsUpToDate() {
		t.Error("mixed marker state treated as up to date")
	}
}

func TestMarkerRun(t *testing.T) {
	dir := t.TempDir()

	m, err := NewTaskResultMarker(dir, "test", "unit")
	if err != nil {
		t.Fatal(err)
	}
	cause := stderrors.New("boom")
	if got := m.Run(func() error { return cause }); got != cause {
		t.Errorf("Run returned %v", got)
	}
	if m.IsUpToDate() {
		t.Error("failed run reports up to date")
	}

	m, err = NewTaskResultMarker(dir, "test", "unit")
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Run(func() error { return nil }); err != nil {
		t.Fatal(err)
	}
	if !m.IsUpToDate() {
		t.Error("successful run not recorded")
	}
}
