// Package witmerge merges a generated client WIT package, together with
// everything it transitively depends on, into another component's WIT root.
//
// Merging only ever copies the client root's packages into the
// destination's deps directory; it never follows references back into the
// destination or into the client's source component. That is what keeps
// mutual and self dependencies finite: each side only carries the other's
// client package, never its full source.
//
// Merge is idempotent. Packages are compared by canonical encoded text, so
// re-merging unchanged clients is a no-op, and a destination that already
// holds a byte-identical copy of a package (for example the standard
// wasm-rpc packages vendored by several clients) is left alone. A same-name
// package with different content is a name-collision error, never a silent
// overwrite.
package witmerge

import (
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-appbuild/errors"
	"github.com/wippyai/wasm-appbuild/wit"
)

// Merge copies the client package at clientRoot, and every package vendored
// under its deps directory, into destRoot/deps so destRoot remains an
// independently resolvable multi-package WIT directory. Only destRoot is
// written; clientRoot is never mutated.
func Merge(clientRoot, destRoot string) error {
	packages, err := loadRoot(clientRoot)
	if err != nil {
		return err
	}

	// The destination's own package only matters for collision detection.
	destMain, err := wit.LoadPackage(destRoot)
	if err != nil {
		destMain = nil
	}

	for _, pkg := range packages {
		if destMain != nil && pkg.Name.Equal(destMain.Name) {
			if wit.Equal(pkg, destMain) {
				continue
			}
			return errors.NameCollision(pkg.Name.String(), destRoot)
		}

		destDir := filepath.Join(destRoot, wit.DepsDir, pkg.Name.DirName())
		existing, loadErr := wit.LoadPackage(destDir)
		switch {
		case loadErr == nil && wit.Equal(existing, pkg):
			// Already merged; idempotent no-op.
			continue
		case loadErr == nil:
			return errors.NameCollision(pkg.Name.String(), destDir)
		}

		if err := wit.WritePackage(destDir, pkg); err != nil {
			return err
		}
		Logger().Debug("merged package",
			zap.String("package", pkg.Name.String()),
			zap.String("dest", destDir))
	}

	return nil
}

// loadRoot loads a WIT root's main package and every package under deps/,
// in deterministic order (main first, deps sorted by package name).
func loadRoot(root string) ([]*wit.Package, error) {
	main, err := wit.LoadPackage(root)
	if err != nil {
		return nil, err
	}
	packages := []*wit.Package{main}

	depsDir := filepath.Join(root, wit.DepsDir)
	entries, err := os.ReadDir(depsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return packages, nil
		}
		return nil, errors.IO("read deps dir", depsDir, err)
	}

	var deps []*wit.Package
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		pkg, err := wit.LoadPackage(filepath.Join(depsDir, e.Name()))
		if err != nil {
			return nil, err
		}
		deps = append(deps, pkg)
	}
	sort.Slice(deps, func(i, j int) bool { return deps[i].Name.Less(deps[j].Name) })
	return append(packages, deps...), nil
}
