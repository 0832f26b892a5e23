package stub

import (
	"embed"
	"sort"
	"sync"

	"github.com/wippyai/wasm-appbuild/wit"
)

// The wasm-rpc support packages are vendored here so every generated client
// carries them in its deps even when the source world never referenced them:
// the client's synchronization primitives (uri handles, pollables) require
// them.

//go:embed stdwit/*.wit
var stdwitFS embed.FS

var (
	stdOnce sync.Once
	stdPkgs []*wit.Package
	stdErr  error
)

// StandardPackages returns the vendored standard WIT packages: wasm:rpc,
// wasi:io, and wasi:clocks. The returned packages are shared; callers must
// not mutate them.
func StandardPackages() ([]*wit.Package, error) {
	stdOnce.Do(func() {
		entries, err := stdwitFS.ReadDir("stdwit")
		if err != nil {
			stdErr = err
			return
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		sort.Strings(names)
		for _, name := range names {
			src, err := stdwitFS.ReadFile("stdwit/" + name)
			if err != nil {
				stdErr = err
				return
			}
			pkg, err := wit.Parse(src, "stdwit/"+name)
			if err != nil {
				stdErr = err
				return
			}
			stdPkgs = append(stdPkgs, pkg)
		}
	})
	return stdPkgs, stdErr
}

// StandardPackageNames returns the unversioned names of the vendored
// standard packages, in the form the resolver's GenericPackages option
// expects.
func StandardPackageNames() map[string]bool {
	pkgs, err := StandardPackages()
	if err != nil {
		return nil
	}
	out := make(map[string]bool, len(pkgs))
	for _, p := range pkgs {
		out[p.Name.Unversioned()] = true
	}
	return out
}

// StandardPackage returns the vendored package with the given unversioned
// name, or nil.
func StandardPackage(unversioned string) *wit.Package {
	pkgs, err := StandardPackages()
	if err != nil {
		return nil
	}
	for _, p := range pkgs {
		if p.Name.Unversioned() == unversioned {
			return p
		}
	}
	return nil
}
