package witresolve

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	appbuild "github.com/wippyai/wasm-appbuild"
	"github.com/wippyai/wasm-appbuild/errors"
	"github.com/wippyai/wasm-appbuild/wit"
)

// Root names one WIT source root to resolve on behalf of a component.
type Root struct {
	Component appbuild.ComponentName
	Dir       string
}

// Options configures a Resolver.
type Options struct {
	// GenericPackages names packages (unversioned "ns:name" form) that are
	// not defined by any component but can be vendored from the engine's
	// embedded standard WIT. References to them are reported via
	// MissingGenericSourcePackageDeps instead of failing validation.
	GenericPackages map[string]bool
	// CacheSize bounds the parsed-package cache. Zero means DefaultCacheSize.
	CacheSize int
}

// DefaultCacheSize is the default parsed-package cache capacity.
const DefaultCacheSize = 256

// Resolver parses WIT roots and builds ResolvedApplications. The parse cache
// is keyed by directory content hash, so re-resolving after regeneration
// only reparses directories whose files actually changed.
type Resolver struct {
	opts  Options
	cache *lru.Cache[string, *wit.Package]
}

// NewResolver creates a resolver.
func NewResolver(opts Options) (*Resolver, error) {
	size := opts.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, *wit.Package](size)
	if err != nil {
		return nil, err
	}
	return &Resolver{opts: opts, cache: cache}, nil
}

// ResolvedComponent is one component's resolved WIT root.
type ResolvedComponent struct {
	Name appbuild.ComponentName
	Root string
	// Main is the root package of the component's WIT directory.
	Main *wit.Package
	// Packages maps full package-name strings to every package reachable
	// from the root: the main package plus everything under deps/.
	Packages map[string]*wit.Package
	// MissingGeneric lists referenced generic packages absent from deps/.
	MissingGeneric []wit.PackageName
	// ExportDeps lists referenced packages that are other components' main
	// packages, paired with the owning component.
	ExportDeps []ExportDep
}

// ExportDep pairs a referenced package with the component that exports it.
type ExportDep struct {
	Package   wit.PackageName
	Component appbuild.ComponentName
}

// ResolvedApplication answers dependency queries for a set of resolved
// component WIT roots. It is immutable after Resolve; to reflect new state
// the orchestrator discards it and resolves again.
type ResolvedApplication struct {
	app        *appbuild.Application
	components map[appbuild.ComponentName]*ResolvedComponent
	order      []appbuild.ComponentName
}

// Resolve parses every WIT package reachable from the given roots, builds
// the package dependency graph, and validates that every reference resolves.
// Validation problems are aggregated: the returned error is an
// *errors.ValidationErrors carrying every problem found, never just the
// first one.
func (r *Resolver) Resolve(app *appbuild.Application, roots []Root) (*ResolvedApplication, error) {
	var verr errors.ValidationErrors

	resolved := &ResolvedApplication{
		app:        app,
		components: make(map[appbuild.ComponentName]*ResolvedComponent, len(roots)),
	}

	// Main package name -> owning component, for export-dependency lookups.
	exportOwners := map[string]appbuild.ComponentName{}

	for _, root := range roots {
		rc, err := r.resolveRoot(root)
		if err != nil {
			if nested, ok := err.(*errors.ValidationErrors); ok {
				verr.Merge(nested)
			} else {
				verr.Add(err)
			}
			continue
		}
		resolved.components[root.Component] = rc
		exportOwners[rc.Main.Name.Unversioned()] = root.Component
	}

	for _, name := range sortedComponentNames(resolved.components) {
		rc := resolved.components[name]
		r.classifyReferences(rc, exportOwners, &verr)
	}

	resolved.order = componentOrder(app)

	if err := verr.Err(); err != nil {
		return nil, err
	}
	return resolved, nil
}

// resolveRoot loads the main package and everything under deps/.
func (r *Resolver) resolveRoot(root Root) (*ResolvedComponent, error) {
	main, err := r.loadCached(root.Dir)
	if err != nil {
		return nil, err
	}

	rc := &ResolvedComponent{
		Name:     root.Component,
		Root:     root.Dir,
		Main:     main,
		Packages: map[string]*wit.Package{main.Name.String(): main},
	}

	depsDir := filepath.Join(root.Dir, wit.DepsDir)
	entries, err := os.ReadDir(depsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return rc, nil
		}
		return nil, errors.IO("read deps dir", depsDir, err)
	}

	var verr errors.ValidationErrors
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(depsDir, e.Name())
		pkg, err := r.loadCached(dir)
		if err != nil {
			verr.Add(err)
			continue
		}
		key := pkg.Name.String()
		if existing, ok := rc.Packages[key]; ok && !wit.Equal(existing, pkg) {
			verr.Add(errors.New(errors.PhaseResolve, errors.KindDuplicatePackage).
				Package(key).
				File(dir).
				Detail("package already defined with different content in this root").
				Build())
			continue
		}
		rc.Packages[key] = pkg
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	Logger().Debug("resolved wit root",
		zap.String("component", string(root.Component)),
		zap.String("dir", root.Dir),
		zap.Int("packages", len(rc.Packages)))
	return rc, nil
}

// classifyReferences checks every package reference in a component's root:
// satisfiable locally, satisfiable by another component's exports, vendorable
// generic, or a validation error.
func (r *Resolver) classifyReferences(rc *ResolvedComponent, exportOwners map[string]appbuild.ComponentName, verr *errors.ValidationErrors) {
	seenGeneric := map[string]bool{}
	seenExport := map[string]bool{}

	for _, pkg := range sortedPackages(rc.Packages) {
		for _, dep := range pkg.PackageDeps() {
			if r.lookup(rc, dep) != nil {
				continue
			}
			unversioned := dep.Unversioned()
			if owner, ok := exportOwners[unversioned]; ok && owner != rc.Name {
				if !seenExport[dep.String()] {
					seenExport[dep.String()] = true
					rc.ExportDeps = append(rc.ExportDeps, ExportDep{Package: dep, Component: owner})
				}
				continue
			}
			if r.opts.GenericPackages[unversioned] {
				if !seenGeneric[dep.String()] {
					seenGeneric[dep.String()] = true
					rc.MissingGeneric = append(rc.MissingGeneric, dep)
				}
				continue
			}
			verr.Add(errors.New(errors.PhaseResolve, errors.KindUnresolvedImport).
				Package(pkg.Name.String()).
				File(rc.Root).
				Detail("reference to unknown package %s", dep).
				Build())
		}
	}

	sort.Slice(rc.MissingGeneric, func(i, j int) bool {
		return rc.MissingGeneric[i].Less(rc.MissingGeneric[j])
	})
	sort.Slice(rc.ExportDeps, func(i, j int) bool {
		return rc.ExportDeps[i].Package.Less(rc.ExportDeps[j].Package)
	})
}

// lookup finds a referenced package in the component's root, matching the
// unversioned name when the reference carries no version.
func (r *Resolver) lookup(rc *ResolvedComponent, dep wit.PackageName) *wit.Package {
	if pkg, ok := rc.Packages[dep.String()]; ok {
		return pkg
	}
	if dep.Version == nil {
		for _, pkg := range rc.Packages {
			if pkg.Name.Unversioned() == dep.Unversioned() {
				return pkg
			}
		}
	}
	return nil
}

// loadCached parses the package in dir, serving repeated loads of unchanged
// directories from the content-hash-keyed cache.
func (r *Resolver) loadCached(dir string) (*wit.Package, error) {
	key, err := dirContentHash(dir)
	if err != nil {
		return nil, err
	}
	if pkg, ok := r.cache.Get(key); ok {
		return pkg, nil
	}
	pkg, err := wit.LoadPackage(dir)
	if err != nil {
		return nil, err
	}
	r.cache.Add(key, pkg)
	return pkg, nil
}

// dirContentHash hashes the names and contents of the *.wit files directly
// inside dir.
func dirContentHash(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", errors.IO("read wit dir", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".wit" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return "", errors.IO("read wit file", path, err)
		}
		h.Write([]byte(name))
		h.Write([]byte{0})
		h.Write(data)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func sortedComponentNames(m map[appbuild.ComponentName]*ResolvedComponent) []appbuild.ComponentName {
	names := make([]appbuild.ComponentName, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

func sortedPackages(m map[string]*wit.Package) []*wit.Package {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pkgs := make([]*wit.Package, len(keys))
	for i, k := range keys {
		pkgs[i] = m[k]
	}
	return pkgs
}
