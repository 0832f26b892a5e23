package stub

import (
	"fmt"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-appbuild/errors"
	"github.com/wippyai/wasm-appbuild/wit"
)

// StubInterface is the name of the single interface a client world exports.
const StubInterface = "stub-api"

// ClientWorld is the name of the client package's world.
const ClientWorld = "client"

// ClientSuffix is appended to the source package name to form the client
// package name.
const ClientSuffix = "-client"

// ClientPackage is a generated client WIT package plus everything it needs
// vendored alongside it: the exports-only source package and the standard
// wasm-rpc support packages.
type ClientPackage struct {
	Name    wit.PackageName
	Package *wit.Package
	Deps    []*wit.Package
}

// GenerateClient synthesizes a client WIT package from a component's
// exports-only view. The client world imports nothing and exports one
// stub-api interface containing, per exported function, a blocking method
// and an async method returning a generated future-result resource. Output
// is deterministic: the same view always generates byte-identical WIT text.
func GenerateClient(view *ExportsView) (*ClientPackage, error) {
	g := &generator{
		src:  view.Package,
		out:  &wit.Interface{Name: StubInterface},
		used: map[string]map[string]bool{},
	}

	g.out.Uses = append(g.out.Uses,
		stdUse("wasi:io@0.2.0", "poll", "pollable"),
		stdUse("wasm:rpc@0.1.0", "types", "uri"),
	)

	for _, iface := range view.Package.Interfaces {
		if err := g.addInterface(iface); err != nil {
			return nil, err
		}
	}
	g.flushUses()

	name := view.Original.WithName(view.Original.Name + ClientSuffix)
	pkg := &wit.Package{
		Name:       name,
		Interfaces: []*wit.Interface{g.out},
		Worlds: []*wit.World{{
			Name:    ClientWorld,
			Exports: []wit.WorldItem{{Interface: StubInterface}},
		}},
	}

	std, err := StandardPackages()
	if err != nil {
		return nil, errors.New(errors.PhaseGenerate, errors.KindInvalidInput).
			Detail("embedded standard wit is invalid: %v", err).
			Cause(err).
			Build()
	}
	deps := make([]*wit.Package, 0, len(std)+1)
	deps = append(deps, view.Package)
	deps = append(deps, std...)

	Logger().Debug("generated client package",
		zap.String("client", name.String()),
		zap.String("source", view.Original.String()),
		zap.String("transform", view.Transform.String()))

	return &ClientPackage{Name: name, Package: pkg, Deps: deps}, nil
}

// WriteTo writes the client package and its vendored deps under dir,
// producing an independently resolvable WIT root.
func (c *ClientPackage) WriteTo(dir string) error {
	if err := wit.WritePackage(dir, c.Package); err != nil {
		return err
	}
	for _, dep := range c.Deps {
		depDir := filepath.Join(dir, wit.DepsDir, dep.Name.DirName())
		if err := wit.WritePackage(depDir, dep); err != nil {
			return err
		}
	}
	return nil
}

type generator struct {
	src *wit.Package
	out *wit.Interface
	// used tracks type names to import per source interface, keyed by
	// interface name.
	used map[string]map[string]bool
	// foreign tracks replicated foreign uses, keyed by package/interface.
	foreign []wit.Use
}

// addInterface emits client resources for one exported interface: one per
// source resource, plus one named after the interface carrying its free
// functions.
func (g *generator) addInterface(iface *wit.Interface) error {
	for _, td := range iface.TypeDefs {
		res, ok := td.Kind.(*wit.Resource)
		if !ok {
			continue
		}
		fns := append(append([]*wit.Function(nil), res.Methods...), res.Statics...)
		var ctorParams []wit.Param
		if res.Constructor != nil {
			ctorParams = res.Constructor.Params
		}
		if err := g.addClientResource(iface, td.Name, td.Name, ctorParams, fns); err != nil {
			return err
		}
	}
	if len(iface.Functions) > 0 {
		if err := g.addClientResource(iface, iface.Name, "", nil, iface.Functions); err != nil {
			return err
		}
	}
	return nil
}

// addClientResource emits the future-result resources for fns followed by
// the client resource itself. prefix distinguishes future-resource names of
// source-resource methods from interface-level functions.
func (g *generator) addClientResource(iface *wit.Interface, name, prefix string, extraCtorParams []wit.Param, fns []*wit.Function) error {
	client := &wit.Resource{
		Constructor: &wit.Function{
			Name:   "constructor",
			Params: append([]wit.Param{{Name: "location", Type: &wit.Named{Name: "uri"}}}, extraCtorParams...),
		},
	}
	for _, p := range extraCtorParams {
		if err := g.checkAndCollect(iface, name, p.Type); err != nil {
			return err
		}
	}

	for _, fn := range fns {
		for _, p := range fn.Params {
			if err := g.checkAndCollect(iface, fn.Name, p.Type); err != nil {
				return err
			}
		}
		if fn.Result != nil {
			if err := g.checkAndCollect(iface, fn.Name, fn.Result); err != nil {
				return err
			}
		}

		futureName := futureResultName(prefix, fn.Name)
		g.out.TypeDefs = append(g.out.TypeDefs, &wit.TypeDef{
			Name: futureName,
			Kind: &wit.Resource{
				Methods: []*wit.Function{
					{Name: "subscribe", Result: &wit.Named{Name: "pollable"}},
					{Name: "get", Result: &wit.Option{Elem: futurePayload(fn.Result)}},
				},
			},
		})

		client.Methods = append(client.Methods,
			&wit.Function{
				Name:   "blocking-" + fn.Name,
				Params: append([]wit.Param(nil), fn.Params...),
				Result: fn.Result,
			},
			&wit.Function{
				Name:   fn.Name,
				Params: append([]wit.Param(nil), fn.Params...),
				Result: &wit.Named{Name: futureName},
			},
		)
	}

	g.out.TypeDefs = append(g.out.TypeDefs, &wit.TypeDef{Name: name, Kind: client})
	return nil
}

// futureResultName derives the async counterpart's resource name
// deterministically from the function name, prefixed with the owning
// resource name to keep names collision-free across resources.
func futureResultName(prefix, fn string) string {
	if prefix == "" {
		return "future-" + fn + "-result"
	}
	return "future-" + prefix + "-" + fn + "-result"
}

// futurePayload is the completion payload of a future-result: the original
// result type, or bool as a bare completion flag for functions returning
// nothing.
func futurePayload(result wit.Type) wit.Type {
	if result == nil {
		return wit.Bool
	}
	return result
}

// checkAndCollect validates that a signature type can cross the RPC
// boundary and records named types for use-imports. Resource handles cannot
// be encoded for remote transport, so own/borrow and references to resource
// type definitions are rejected with a descriptive error.
func (g *generator) checkAndCollect(iface *wit.Interface, symbol string, t wit.Type) error {
	switch v := t.(type) {
	case wit.Primitive:
		return nil
	case *wit.List:
		return g.checkAndCollect(iface, symbol, v.Elem)
	case *wit.Option:
		return g.checkAndCollect(iface, symbol, v.Elem)
	case *wit.Result:
		if v.Ok != nil {
			if err := g.checkAndCollect(iface, symbol, v.Ok); err != nil {
				return err
			}
		}
		if v.Err != nil {
			return g.checkAndCollect(iface, symbol, v.Err)
		}
		return nil
	case *wit.Tuple:
		for _, e := range v.Elems {
			if err := g.checkAndCollect(iface, symbol, e); err != nil {
				return err
			}
		}
		return nil
	case *wit.Own:
		return errors.UnsupportedType(g.src.Name.String(), iface.Name, v.Resource,
			fmt.Sprintf("own<%s> in %s: resource handles cannot cross the rpc boundary", v.Resource, symbol))
	case *wit.Borrow:
		return errors.UnsupportedType(g.src.Name.String(), iface.Name, v.Resource,
			fmt.Sprintf("borrow<%s> in %s: resource handles cannot cross the rpc boundary", v.Resource, symbol))
	case *wit.Named:
		return g.collectNamed(iface, symbol, v.Name)
	}
	return errors.UnsupportedType(g.src.Name.String(), iface.Name, symbol,
		"unknown type in signature")
}

// collectNamed resolves a named type reference and records the use-import
// the client interface needs for it.
func (g *generator) collectNamed(iface *wit.Interface, symbol, name string) error {
	if td := iface.TypeDef(name); td != nil {
		if _, isResource := td.Kind.(*wit.Resource); isResource {
			return errors.UnsupportedType(g.src.Name.String(), iface.Name, name,
				fmt.Sprintf("resource reference in %s: resource handles cannot cross the rpc boundary", symbol))
		}
		if g.used[iface.Name] == nil {
			g.used[iface.Name] = map[string]bool{}
		}
		g.used[iface.Name][name] = true
		return nil
	}
	// The name may come from one of the interface's own use statements.
	for _, u := range iface.Uses {
		for _, un := range u.Names {
			local := un.Name
			if un.As != "" {
				local = un.As
			}
			if local == name {
				g.addForeignUse(u, un)
				return nil
			}
		}
	}
	return errors.New(errors.PhaseGenerate, errors.KindNotFound).
		Package(g.src.Name.String()).
		Symbol(iface.Name+"."+name).
		Detail("signature of %s references an unknown type", symbol).
		Build()
}

// addForeignUse replicates one imported name from a source use statement
// into the client interface, deduplicated.
func (g *generator) addForeignUse(u wit.Use, un wit.UseName) {
	for i := range g.foreign {
		f := &g.foreign[i]
		if samePackageRef(f.Package, u.Package) && f.Interface == u.Interface {
			for _, existing := range f.Names {
				if existing.Name == un.Name && existing.As == un.As {
					return
				}
			}
			f.Names = append(f.Names, un)
			return
		}
	}
	g.foreign = append(g.foreign, wit.Use{
		Package:   u.Package,
		Interface: u.Interface,
		Names:     []wit.UseName{un},
	})
}

func samePackageRef(a, b *wit.PackageName) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || a.Equal(*b)
}

// flushUses appends the collected source-type and foreign use statements in
// deterministic order: source interfaces in package order with names
// sorted, then foreign uses in first-reference order with names sorted.
func (g *generator) flushUses() {
	for _, iface := range g.src.Interfaces {
		names := g.used[iface.Name]
		if len(names) == 0 {
			continue
		}
		sorted := make([]string, 0, len(names))
		for n := range names {
			sorted = append(sorted, n)
		}
		sort.Strings(sorted)
		use := wit.Use{Package: &g.src.Name, Interface: iface.Name}
		for _, n := range sorted {
			use.Names = append(use.Names, wit.UseName{Name: n})
		}
		g.out.Uses = append(g.out.Uses, use)
	}
	for _, u := range g.foreign {
		sort.Slice(u.Names, func(i, j int) bool { return u.Names[i].Name < u.Names[j].Name })
		g.out.Uses = append(g.out.Uses, u)
	}
}

func stdUse(pkg, iface, name string) wit.Use {
	pn, err := wit.ParsePackageName(pkg)
	if err != nil {
		// The standard package names are compile-time constants.
		panic(err)
	}
	return wit.Use{
		Package:   &pn,
		Interface: iface,
		Names:     []wit.UseName{{Name: name}},
	}
}
