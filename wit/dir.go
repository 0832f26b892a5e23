package wit

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wippyai/wasm-appbuild/errors"
)

// DepsDir is the sub-directory of a WIT root that holds vendored dependency
// packages, one directory per package.
const DepsDir = "deps"

// LoadPackage parses every *.wit file directly inside dir (not recursing
// into deps/) and merges them into one Package. Every file must declare the
// same package name. Files are read in lexical order so the merged model is
// deterministic.
func LoadPackage(dir string) (*Package, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.IO("read wit dir", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".wit") {
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		return nil, errors.New(errors.PhaseResolve, errors.KindNotFound).
			File(dir).
			Detail("no .wit files in directory").
			Build()
	}
	sort.Strings(files)

	var pkg *Package
	for _, name := range files {
		path := filepath.Join(dir, name)
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.IO("read wit file", path, err)
		}
		parsed, err := Parse(src, path)
		if err != nil {
			return nil, err
		}
		if pkg == nil {
			pkg = parsed
			continue
		}
		if !parsed.Name.Equal(pkg.Name) {
			return nil, errors.New(errors.PhaseResolve, errors.KindDuplicatePackage).
				File(path).
				Package(pkg.Name.String()).
				Detail("file declares package %s but sibling files declare %s", parsed.Name, pkg.Name).
				Build()
		}
		pkg.Interfaces = append(pkg.Interfaces, parsed.Interfaces...)
		pkg.Worlds = append(pkg.Worlds, parsed.Worlds...)
		pkg.Files = append(pkg.Files, path)
	}
	return pkg, nil
}

// WritePackage encodes the package into dir/main.wit, creating dir as
// needed. Existing *.wit files in dir are replaced so the directory reflects
// exactly this package.
func WritePackage(dir string, pkg *Package) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.IO("create wit dir", dir, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.IO("read wit dir", dir, err)
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".wit") {
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
				return errors.IO("remove stale wit file", filepath.Join(dir, e.Name()), err)
			}
		}
	}
	path := filepath.Join(dir, "main.wit")
	if err := os.WriteFile(path, Encode(pkg), 0o644); err != nil {
		return errors.IO("write wit file", path, err)
	}
	return nil
}

// Equal reports whether two packages encode to byte-identical WIT text.
func Equal(a, b *Package) bool {
	return bytes.Equal(Encode(a), Encode(b))
}
