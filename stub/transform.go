package stub

import (
	"github.com/wippyai/wasm-appbuild/errors"
	"github.com/wippyai/wasm-appbuild/wit"
)

// SourceTransform selects how a component's export surface is isolated from
// its imports before client generation.
type SourceTransform int

const (
	// ExtractExportsPackage physically extracts the exported interfaces into
	// a standalone package renamed "<name>-exports".
	ExtractExportsPackage SourceTransform = iota
	// StripSourcePackage keeps the original package identity and strips
	// everything except the export surface.
	StripSourcePackage
)

func (t SourceTransform) String() string {
	if t == StripSourcePackage {
		return "strip-source-package"
	}
	return "extract-exports-package"
}

// ExportsView is a component's exports-only package, the input to client
// generation. Original is the source package's name before any rename.
type ExportsView struct {
	Original  wit.PackageName
	Package   *wit.Package
	Transform SourceTransform
}

// ExtractExports produces an exports-only package from a component's full
// source package, which mixes imports and exports. worldName selects the
// world; empty selects the package's sole world. Both transform modes
// produce equivalent observable exported interfaces; they differ only in
// the resulting package's identity.
func ExtractExports(src *wit.Package, worldName string, transform SourceTransform) (*ExportsView, error) {
	world := src.World(worldName)
	if world == nil {
		return nil, errors.New(errors.PhaseGenerate, errors.KindNotFound).
			Package(src.Name.String()).
			Detail("package has no world %q to extract exports from", worldName).
			Build()
	}

	var exported []*wit.Interface
	for _, item := range world.Exports {
		if item.Package != nil && !item.Package.Equal(src.Name) {
			// Exports of foreign interfaces stay with their own package;
			// only the component's own surface is extracted.
			continue
		}
		iface := src.Interface(item.Interface)
		if iface == nil {
			return nil, errors.New(errors.PhaseGenerate, errors.KindNotFound).
				Package(src.Name.String()).
				Symbol(item.Interface).
				Detail("world %q exports an interface the package does not define", world.Name).
				Build()
		}
		exported = append(exported, iface)
	}
	if len(exported) == 0 {
		return nil, errors.New(errors.PhaseGenerate, errors.KindInvalidInput).
			Package(src.Name.String()).
			Detail("world %q exports nothing; no client can be generated", world.Name).
			Build()
	}

	name := src.Name
	if transform == ExtractExportsPackage {
		name = src.Name.WithName(src.Name.Name + "-exports")
	}

	out := &wit.Package{Name: name}
	for _, iface := range exported {
		out.Interfaces = append(out.Interfaces, cloneInterface(iface))
	}
	out.Worlds = []*wit.World{exportWorld(world.Name, out)}

	return &ExportsView{Original: src.Name, Package: out, Transform: transform}, nil
}

// exportWorld builds a world exporting every interface of the package.
func exportWorld(name string, pkg *wit.Package) *wit.World {
	w := &wit.World{Name: name}
	for _, iface := range pkg.Interfaces {
		w.Exports = append(w.Exports, wit.WorldItem{Interface: iface.Name})
	}
	return w
}

func cloneInterface(iface *wit.Interface) *wit.Interface {
	out := &wit.Interface{Name: iface.Name}
	out.Uses = append(out.Uses, iface.Uses...)
	for _, td := range iface.TypeDefs {
		out.TypeDefs = append(out.TypeDefs, cloneTypeDef(td))
	}
	for _, fn := range iface.Functions {
		out.Functions = append(out.Functions, cloneFunction(fn))
	}
	return out
}

func cloneTypeDef(td *wit.TypeDef) *wit.TypeDef {
	out := &wit.TypeDef{Name: td.Name}
	switch k := td.Kind.(type) {
	case *wit.Record:
		out.Kind = &wit.Record{Fields: append([]wit.Field(nil), k.Fields...)}
	case *wit.Variant:
		out.Kind = &wit.Variant{Cases: append([]wit.Case(nil), k.Cases...)}
	case *wit.Enum:
		out.Kind = &wit.Enum{Cases: append([]string(nil), k.Cases...)}
	case *wit.Flags:
		out.Kind = &wit.Flags{Names: append([]string(nil), k.Names...)}
	case *wit.Alias:
		out.Kind = &wit.Alias{Target: k.Target}
	case *wit.Resource:
		res := &wit.Resource{}
		if k.Constructor != nil {
			res.Constructor = cloneFunction(k.Constructor)
		}
		for _, m := range k.Methods {
			res.Methods = append(res.Methods, cloneFunction(m))
		}
		for _, s := range k.Statics {
			res.Statics = append(res.Statics, cloneFunction(s))
		}
		out.Kind = res
	}
	return out
}

func cloneFunction(fn *wit.Function) *wit.Function {
	return &wit.Function{
		Name:   fn.Name,
		Params: append([]wit.Param(nil), fn.Params...),
		Result: fn.Result,
	}
}
