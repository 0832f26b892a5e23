package wit

import "sort"

// WIT text model. One Package is produced per WIT source directory entry:
// either the main package of a root, or a package found under deps/<name>/.
// Ordering of interfaces, worlds, type definitions, and functions is the
// parse (or synthesis) order and is preserved by the encoder, so encoding is
// deterministic for a given model.

// Type is a reference to a WIT type.
type Type interface {
	isType()
}

// Primitive is a built-in scalar type: bool, u8-u64, s8-s64, f32, f64,
// char, string.
type Primitive string

const (
	Bool   Primitive = "bool"
	U8     Primitive = "u8"
	U16    Primitive = "u16"
	U32    Primitive = "u32"
	U64    Primitive = "u64"
	S8     Primitive = "s8"
	S16    Primitive = "s16"
	S32    Primitive = "s32"
	S64    Primitive = "s64"
	F32    Primitive = "f32"
	F64    Primitive = "f64"
	Char   Primitive = "char"
	String Primitive = "string"
)

func (Primitive) isType() {}

// List is list<T>.
type List struct {
	Elem Type
}

func (*List) isType() {}

// Option is option<T>.
type Option struct {
	Elem Type
}

func (*Option) isType() {}

// Result is result, result<T>, or result<T, E>. Ok and Err may be nil.
type Result struct {
	Ok  Type
	Err Type
}

func (*Result) isType() {}

// Tuple is tuple<...>.
type Tuple struct {
	Elems []Type
}

func (*Tuple) isType() {}

// Named references a type or resource by name in the enclosing scope
// (a local definition or a use-imported name).
type Named struct {
	Name string
}

func (*Named) isType() {}

// Own is an owned resource handle: own<r>.
type Own struct {
	Resource string
}

func (*Own) isType() {}

// Borrow is a borrowed resource handle: borrow<r>.
type Borrow struct {
	Resource string
}

func (*Borrow) isType() {}

// Param is one named function parameter.
type Param struct {
	Name string
	Type Type
}

// Function is a function signature. Result is nil when the function returns
// nothing.
type Function struct {
	Name   string
	Params []Param
	Result Type
}

// TypeDefKind is the definition payload of a TypeDef.
type TypeDefKind interface {
	isTypeDefKind()
}

// Record is a named struct.
type Record struct {
	Fields []Field
}

// Field is one record field.
type Field struct {
	Name string
	Type Type
}

func (*Record) isTypeDefKind() {}

// Variant is a tagged union. A case with a nil Type carries no payload.
type Variant struct {
	Cases []Case
}

// Case is one variant case.
type Case struct {
	Name string
	Type Type
}

func (*Variant) isTypeDefKind() {}

// Enum is a variant with no payloads.
type Enum struct {
	Cases []string
}

func (*Enum) isTypeDefKind() {}

// Flags is a bitset of named flags.
type Flags struct {
	Names []string
}

func (*Flags) isTypeDefKind() {}

// Alias is "type name = target".
type Alias struct {
	Target Type
}

func (*Alias) isTypeDefKind() {}

// Resource is a resource type with its own method set. This is how
// RPC-exposed objects are modeled.
type Resource struct {
	Constructor *Function   // nil when the resource has no constructor
	Methods     []*Function // instance methods, in declaration order
	Statics     []*Function // static functions, in declaration order
}

func (*Resource) isTypeDefKind() {}

// TypeDef is a named type definition inside an interface.
type TypeDef struct {
	Name string
	Kind TypeDefKind
}

// UseName is one imported name in a use statement, with an optional rename.
type UseName struct {
	Name string
	As   string
}

// Use is "use <target>.{names}" inside an interface. Package is nil when the
// target is an interface of the same package.
type Use struct {
	Package   *PackageName
	Interface string
	Names     []UseName
}

// Interface is a named set of type definitions and function signatures.
type Interface struct {
	Name      string
	Uses      []Use
	TypeDefs  []*TypeDef
	Functions []*Function
}

// TypeDef returns the named local type definition or nil.
func (i *Interface) TypeDef(name string) *TypeDef {
	for _, td := range i.TypeDefs {
		if td.Name == name {
			return td
		}
	}
	return nil
}

// WorldItem is one import or export of a world. Package is nil for a
// reference to an interface of the world's own package.
type WorldItem struct {
	Package   *PackageName
	Interface string
}

// World is the public surface of a package: imported and exported
// interfaces.
type World struct {
	Name    string
	Imports []WorldItem
	Exports []WorldItem
}

// Package is one parsed WIT package.
type Package struct {
	Name       PackageName
	Interfaces []*Interface
	Worlds     []*World
	Files      []string // source files this package was parsed from
}

// Interface returns the named interface or nil.
func (p *Package) Interface(name string) *Interface {
	for _, i := range p.Interfaces {
		if i.Name == name {
			return i
		}
	}
	return nil
}

// World returns the named world, the sole world when name is empty and
// exactly one exists, or nil.
func (p *Package) World(name string) *World {
	if name == "" && len(p.Worlds) == 1 {
		return p.Worlds[0]
	}
	for _, w := range p.Worlds {
		if w.Name == name {
			return w
		}
	}
	return nil
}

// PackageDeps returns every foreign package referenced by this package's
// uses and world items, deduplicated, in deterministic order.
func (p *Package) PackageDeps() []PackageName {
	seen := map[string]PackageName{}
	add := func(pn *PackageName) {
		if pn != nil && !pn.Equal(p.Name) {
			seen[pn.String()] = *pn
		}
	}
	for _, i := range p.Interfaces {
		for _, u := range i.Uses {
			add(u.Package)
		}
	}
	for _, w := range p.Worlds {
		for _, it := range w.Imports {
			add(it.Package)
		}
		for _, it := range w.Exports {
			add(it.Package)
		}
	}
	out := make([]PackageName, 0, len(seen))
	for _, pn := range seen {
		out = append(out, pn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
