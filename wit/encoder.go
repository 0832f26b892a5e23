package wit

import (
	"fmt"
	"strings"
)

// Encode renders the package as canonical WIT text. The output for a given
// model is byte-stable: items render in model order with fixed layout, so
// two structurally identical packages encode identically. This is what makes
// content-hash-based staleness checks and byte-equality merge checks
// meaningful.
func Encode(pkg *Package) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "package %s;\n", pkg.Name.String())
	for _, iface := range pkg.Interfaces {
		b.WriteByte('\n')
		encodeInterface(&b, iface)
	}
	for _, world := range pkg.Worlds {
		b.WriteByte('\n')
		encodeWorld(&b, world)
	}
	return []byte(b.String())
}

// witKeywords are names the parser treats as keywords or built-in type
// heads; they are %-escaped when emitted in identifier positions.
var witKeywords = map[string]bool{
	"as": true, "bool": true, "borrow": true, "char": true,
	"constructor": true, "enum": true, "export": true, "f32": true,
	"f64": true, "flags": true, "func": true, "import": true,
	"interface": true, "list": true, "option": true, "own": true,
	"package": true, "record": true, "resource": true, "result": true,
	"s16": true, "s32": true, "s64": true, "s8": true, "static": true,
	"string": true, "tuple": true, "type": true, "u16": true, "u32": true,
	"u64": true, "u8": true, "use": true, "variant": true, "world": true,
	"_": true,
}

func escapeName(s string) string {
	if witKeywords[s] {
		return "%" + s
	}
	return s
}

func encodeInterface(b *strings.Builder, iface *Interface) {
	fmt.Fprintf(b, "interface %s {\n", escapeName(iface.Name))
	for _, u := range iface.Uses {
		b.WriteString("  use ")
		if u.Package != nil {
			b.WriteString(u.Package.Unversioned())
			b.WriteByte('/')
			b.WriteString(escapeName(u.Interface))
			if u.Package.Version != nil {
				b.WriteByte('@')
				b.WriteString(u.Package.Version.String())
			}
		} else {
			b.WriteString(escapeName(u.Interface))
		}
		b.WriteString(".{")
		for i, n := range u.Names {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(escapeName(n.Name))
			if n.As != "" {
				b.WriteString(" as ")
				b.WriteString(escapeName(n.As))
			}
		}
		b.WriteString("};\n")
	}
	for _, td := range iface.TypeDefs {
		encodeTypeDef(b, td)
	}
	for _, fn := range iface.Functions {
		b.WriteString("  ")
		encodeFunction(b, fn)
		b.WriteByte('\n')
	}
	b.WriteString("}\n")
}

func encodeTypeDef(b *strings.Builder, td *TypeDef) {
	switch k := td.Kind.(type) {
	case *Record:
		fmt.Fprintf(b, "  record %s {\n", escapeName(td.Name))
		for _, f := range k.Fields {
			fmt.Fprintf(b, "    %s: %s,\n", escapeName(f.Name), TypeString(f.Type))
		}
		b.WriteString("  }\n")
	case *Variant:
		fmt.Fprintf(b, "  variant %s {\n", escapeName(td.Name))
		for _, c := range k.Cases {
			if c.Type != nil {
				fmt.Fprintf(b, "    %s(%s),\n", escapeName(c.Name), TypeString(c.Type))
			} else {
				fmt.Fprintf(b, "    %s,\n", escapeName(c.Name))
			}
		}
		b.WriteString("  }\n")
	case *Enum:
		fmt.Fprintf(b, "  enum %s {\n", escapeName(td.Name))
		for _, c := range k.Cases {
			fmt.Fprintf(b, "    %s,\n", escapeName(c))
		}
		b.WriteString("  }\n")
	case *Flags:
		fmt.Fprintf(b, "  flags %s {\n", escapeName(td.Name))
		for _, n := range k.Names {
			fmt.Fprintf(b, "    %s,\n", escapeName(n))
		}
		b.WriteString("  }\n")
	case *Alias:
		fmt.Fprintf(b, "  type %s = %s;\n", escapeName(td.Name), TypeString(k.Target))
	case *Resource:
		if k.Constructor == nil && len(k.Methods) == 0 && len(k.Statics) == 0 {
			fmt.Fprintf(b, "  resource %s;\n", escapeName(td.Name))
			return
		}
		fmt.Fprintf(b, "  resource %s {\n", escapeName(td.Name))
		if k.Constructor != nil {
			b.WriteString("    constructor")
			encodeParams(b, k.Constructor.Params)
			b.WriteString(";\n")
		}
		for _, fn := range k.Methods {
			b.WriteString("    ")
			encodeFunction(b, fn)
			b.WriteByte('\n')
		}
		for _, fn := range k.Statics {
			b.WriteString("    static ")
			encodeFunction(b, fn)
			b.WriteByte('\n')
		}
		b.WriteString("  }\n")
	}
}

func encodeFunction(b *strings.Builder, fn *Function) {
	b.WriteString(escapeName(fn.Name))
	b.WriteString(": func")
	encodeParams(b, fn.Params)
	if fn.Result != nil {
		b.WriteString(" -> ")
		b.WriteString(TypeString(fn.Result))
	}
	b.WriteByte(';')
}

func encodeParams(b *strings.Builder, params []Param) {
	b.WriteByte('(')
	for i, p := range params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(escapeName(p.Name))
		b.WriteString(": ")
		b.WriteString(TypeString(p.Type))
	}
	b.WriteByte(')')
}

func encodeWorld(b *strings.Builder, world *World) {
	fmt.Fprintf(b, "world %s {\n", escapeName(world.Name))
	for _, it := range world.Imports {
		fmt.Fprintf(b, "  import %s;\n", worldItemString(it))
	}
	for _, it := range world.Exports {
		fmt.Fprintf(b, "  export %s;\n", worldItemString(it))
	}
	b.WriteString("}\n")
}

func worldItemString(it WorldItem) string {
	if it.Package == nil {
		return escapeName(it.Interface)
	}
	s := it.Package.Unversioned() + "/" + escapeName(it.Interface)
	if it.Package.Version != nil {
		s += "@" + it.Package.Version.String()
	}
	return s
}

// TypeString renders a type reference as WIT text.
func TypeString(t Type) string {
	switch v := t.(type) {
	case Primitive:
		return string(v)
	case *List:
		return "list<" + TypeString(v.Elem) + ">"
	case *Option:
		return "option<" + TypeString(v.Elem) + ">"
	case *Result:
		switch {
		case v.Ok == nil && v.Err == nil:
			return "result"
		case v.Err == nil:
			return "result<" + TypeString(v.Ok) + ">"
		case v.Ok == nil:
			return "result<_, " + TypeString(v.Err) + ">"
		default:
			return "result<" + TypeString(v.Ok) + ", " + TypeString(v.Err) + ">"
		}
	case *Tuple:
		parts := make([]string, len(v.Elems))
		for i, e := range v.Elems {
			parts[i] = TypeString(e)
		}
		return "tuple<" + strings.Join(parts, ", ") + ">"
	case *Named:
		return escapeName(v.Name)
	case *Own:
		return "own<" + escapeName(v.Resource) + ">"
	case *Borrow:
		return "borrow<" + escapeName(v.Resource) + ">"
	}
	return "<unknown>"
}
