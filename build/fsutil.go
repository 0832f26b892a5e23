package build

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/wippyai/wasm-appbuild/errors"
)

// copyFile copies src to dst, creating parent directories.
func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return errors.IO("read", src, err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.IO("create dir", filepath.Dir(dst), err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return errors.IO("write", dst, err)
	}
	return nil
}

// replaceTree removes dst and copies the src directory tree in its place.
// Regenerated directories are always rebuilt from scratch so no stale
// fragments of a previous generation survive.
func replaceTree(src, dst string) error {
	if err := os.RemoveAll(dst); err != nil {
		return errors.IO("remove", dst, err)
	}
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.IO("walk", src, err)
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return errors.IO("create dir", target, err)
			}
			return nil
		}
		return copyFile(path, target)
	})
}
