package build

import (
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/wippyai/wasm-appbuild/errors"
)

// ExpandGlobs expands doublestar patterns relative to dir. Plain paths pass
// through unchanged whether or not they exist, so missing targets are still
// visible to the staleness check.
func ExpandGlobs(dir string, patterns []string) ([]string, error) {
	var out []string
	for _, pattern := range patterns {
		full := pattern
		if !filepath.IsAbs(full) {
			full = filepath.Join(dir, pattern)
		}
		if !hasGlobMeta(pattern) {
			out = append(out, full)
			continue
		}
		matches, err := doublestar.FilepathGlob(full)
		if err != nil {
			return nil, errors.New(errors.PhaseBuild, errors.KindInvalidInput).
				Detail("bad glob %q: %v", pattern, err).
				Cause(err).
				Build()
		}
		out = append(out, matches...)
	}
	return out, nil
}

func hasGlobMeta(pattern string) bool {
	for _, r := range pattern {
		switch r {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}

// IsUpToDate reports whether targets are current relative to sources: every
// target exists and no source is newer than the oldest target. force
// bypasses the check unconditionally. Directories contribute the
// modification times of the files they contain.
func IsUpToDate(force bool, sources, targets []string) (bool, error) {
	if force || len(targets) == 0 {
		return false, nil
	}

	oldestTarget := time.Time{}
	for _, target := range targets {
		mtime, found, err := newestMtime(target)
		if err != nil {
			return false, err
		}
		if !found {
			return false, nil
		}
		if oldestTarget.IsZero() || mtime.Before(oldestTarget) {
			oldestTarget = mtime
		}
	}

	for _, source := range sources {
		mtime, found, err := newestMtime(source)
		if err != nil {
			return false, err
		}
		if found && mtime.After(oldestTarget) {
			return false, nil
		}
	}
	return true, nil
}

// newestMtime returns the newest modification time under path, recursing
// into directories. found is false when the path does not exist.
func newestMtime(path string) (time.Time, bool, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, errors.IO("stat", path, err)
	}
	if !info.IsDir() {
		return info.ModTime(), true, nil
	}

	newest := info.ModTime()
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		if fi.ModTime().After(newest) {
			newest = fi.ModTime()
		}
		return nil
	})
	if err != nil {
		return time.Time{}, false, errors.IO("walk", path, err)
	}
	return newest, true, nil
}
