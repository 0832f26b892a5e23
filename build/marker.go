package build

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"time"

	"github.com/wippyai/wasm-appbuild/errors"
)

// TaskResultMarker is the durable success/failure record of one unit of
// work, keyed by a content hash of (task kind, descriptor). A success file
// means the unit completed; a failure file means the last attempt failed
// and the unit must rerun regardless of timestamps. Markers are written
// only after the work completes, so a crash mid-unit leaves no success
// marker and the next run redoes the unit.
type TaskResultMarker struct {
	successPath string
	failurePath string
}

// NewTaskResultMarker creates the marker for one unit of work. Stale state
// is cleared immediately: a failure marker from a previous attempt removes
// both files so the unit is seen as not up to date.
func NewTaskResultMarker(dir, kind, descriptor string) (*TaskResultMarker, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.IO("create marker dir", dir, err)
	}

	h := sha256.New()
	h.Write([]byte(kind))
	h.Write([]byte{0})
	h.Write([]byte(descriptor))
	key := hex.EncodeToString(h.Sum(nil))

	m := &TaskResultMarker{
		successPath: filepath.Join(dir, key+".success"),
		failurePath: filepath.Join(dir, key+".failure"),
	}

	if fileExists(m.failurePath) {
		if err := os.Remove(m.failurePath); err != nil {
			return nil, errors.IO("clear failure marker", m.failurePath, err)
		}
		if fileExists(m.successPath) {
			if err := os.Remove(m.successPath); err != nil {
				return nil, errors.IO("clear success marker", m.successPath, err)
			}
		}
	}
	return m, nil
}

// IsUpToDate reports whether the unit's last run succeeded. Stale failure
// state was cleared at construction, so a success marker is sufficient.
func (m *TaskResultMarker) IsUpToDate() bool {
	return fileExists(m.successPath)
}

// Success records a completed unit.
func (m *TaskResultMarker) Success() error {
	if err := os.WriteFile(m.successPath, []byte(time.Now().UTC().Format(time.RFC3339)+"\n"), 0o644); err != nil {
		return errors.IO("write success marker", m.successPath, err)
	}
	return nil
}

// Failure records a failed unit and returns cause so callers can propagate
// it in one statement.
func (m *TaskResultMarker) Failure(cause error) error {
	if fileExists(m.successPath) {
		if err := os.Remove(m.successPath); err != nil {
			return errors.IO("clear success marker", m.successPath, err)
		}
	}
	if err := os.WriteFile(m.failurePath, []byte(cause.Error()+"\n"), 0o644); err != nil {
		return errors.IO("write failure marker", m.failurePath, err)
	}
	return cause
}

// Run executes the unit and records its outcome.
func (m *TaskResultMarker) Run(fn func() error) error {
	if err := fn(); err != nil {
		return m.Failure(err)
	}
	return m.Success()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
