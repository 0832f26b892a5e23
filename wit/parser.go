package wit

import (
	"fmt"

	"github.com/wippyai/wasm-appbuild/errors"
	"github.com/wippyai/wasm-appbuild/wit/internal/token"
)

// Parse parses one WIT source text into a Package. The filename is used only
// for error context and the package's Files list.
func Parse(src []byte, filename string) (*Package, error) {
	tokens, err := token.Tokenize(string(src))
	if err != nil {
		return nil, errors.New(errors.PhaseResolve, errors.KindParse).
			File(filename).
			Detail("%v", err).
			Cause(err).
			Build()
	}
	p := &parser{tokens: tokens, filename: filename}
	pkg, err := p.parsePackage()
	if err != nil {
		return nil, errors.New(errors.PhaseResolve, errors.KindParse).
			File(filename).
			Detail("%v", err).
			Cause(err).
			Build()
	}
	pkg.Files = []string{filename}
	return pkg, nil
}

type parser struct {
	tokens   []token.Token
	filename string
	pos      int
}

func (p *parser) peek() *token.Token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	return &p.tokens[p.pos]
}

func (p *parser) next() *token.Token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	t := &p.tokens[p.pos]
	p.pos++
	return t
}

func (p *parser) expect(typ token.Type) (*token.Token, error) {
	t := p.next()
	if t == nil {
		return nil, fmt.Errorf("unexpected end of input, expected %v", typ)
	}
	if t.Type != typ {
		return nil, fmt.Errorf("line %d: expected %v, got %q", t.Line, typ, t.Value)
	}
	return t, nil
}

// expectName accepts a plain or %-escaped identifier in a name position.
func (p *parser) expectName() (*token.Token, error) {
	t := p.next()
	if t == nil {
		return nil, fmt.Errorf("unexpected end of input, expected identifier")
	}
	if t.Type != token.Ident && t.Type != token.EscapedIdent {
		return nil, fmt.Errorf("line %d: expected identifier, got %q", t.Line, t.Value)
	}
	return t, nil
}

func (p *parser) expectIdent(value string) error {
	t, err := p.expect(token.Ident)
	if err != nil {
		return err
	}
	if t.Value != value {
		return fmt.Errorf("line %d: expected %q, got %q", t.Line, value, t.Value)
	}
	return nil
}

func (p *parser) peekIdent(value string) bool {
	t := p.peek()
	return t != nil && t.Type == token.Ident && t.Value == value
}

func (p *parser) parsePackage() (*Package, error) {
	if err := p.expectIdent("package"); err != nil {
		return nil, err
	}
	name, err := p.parsePackageName()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Semi); err != nil {
		return nil, err
	}

	pkg := &Package{Name: name}
	for p.peek() != nil {
		t := p.peek()
		if t.Type != token.Ident {
			return nil, fmt.Errorf("line %d: expected top-level item, got %q", t.Line, t.Value)
		}
		switch t.Value {
		case "interface":
			iface, err := p.parseInterface()
			if err != nil {
				return nil, err
			}
			pkg.Interfaces = append(pkg.Interfaces, iface)
		case "world":
			world, err := p.parseWorld()
			if err != nil {
				return nil, err
			}
			pkg.Worlds = append(pkg.Worlds, world)
		default:
			return nil, fmt.Errorf("line %d: unexpected top-level item %q", t.Line, t.Value)
		}
	}
	return pkg, nil
}

// parsePackageName parses "namespace:name" with an optional version suffix.
func (p *parser) parsePackageName() (PackageName, error) {
	ns, err := p.expect(token.Ident)
	if err != nil {
		return PackageName{}, err
	}
	if _, err := p.expect(token.Colon); err != nil {
		return PackageName{}, err
	}
	name, err := p.expect(token.Ident)
	if err != nil {
		return PackageName{}, err
	}
	full := ns.Value + ":" + name.Value
	if t := p.peek(); t != nil && t.Type == token.At {
		p.next()
		v, err := p.expect(token.Version)
		if err != nil {
			return PackageName{}, err
		}
		full += "@" + v.Value
	}
	return ParsePackageName(full)
}

func (p *parser) parseInterface() (*Interface, error) {
	if err := p.expectIdent("interface"); err != nil {
		return nil, err
	}
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}

	iface := &Interface{Name: name.Value}
	for {
		t := p.peek()
		if t == nil {
			return nil, fmt.Errorf("unexpected end of input in interface %q", iface.Name)
		}
		if t.Type == token.RBrace {
			p.next()
			return iface, nil
		}
		if t.Type != token.Ident && t.Type != token.EscapedIdent {
			return nil, fmt.Errorf("line %d: unexpected %q in interface %q", t.Line, t.Value, iface.Name)
		}
		// An escaped name is never a keyword: it starts a function.
		if t.Type == token.EscapedIdent {
			fn, err := p.parseFunction()
			if err != nil {
				return nil, err
			}
			iface.Functions = append(iface.Functions, fn)
			continue
		}

		switch t.Value {
		case "use":
			use, err := p.parseUse()
			if err != nil {
				return nil, err
			}
			iface.Uses = append(iface.Uses, *use)
		case "record":
			td, err := p.parseRecord()
			if err != nil {
				return nil, err
			}
			iface.TypeDefs = append(iface.TypeDefs, td)
		case "variant":
			td, err := p.parseVariant()
			if err != nil {
				return nil, err
			}
			iface.TypeDefs = append(iface.TypeDefs, td)
		case "enum":
			td, err := p.parseEnum()
			if err != nil {
				return nil, err
			}
			iface.TypeDefs = append(iface.TypeDefs, td)
		case "flags":
			td, err := p.parseFlags()
			if err != nil {
				return nil, err
			}
			iface.TypeDefs = append(iface.TypeDefs, td)
		case "type":
			td, err := p.parseAlias()
			if err != nil {
				return nil, err
			}
			iface.TypeDefs = append(iface.TypeDefs, td)
		case "resource":
			td, err := p.parseResource()
			if err != nil {
				return nil, err
			}
			iface.TypeDefs = append(iface.TypeDefs, td)
		default:
			fn, err := p.parseFunction()
			if err != nil {
				return nil, err
			}
			iface.Functions = append(iface.Functions, fn)
		}
	}
}

// parseUse parses "use pkg:name/iface.{a, b as c};" or "use iface.{a};".
func (p *parser) parseUse() (*Use, error) {
	if err := p.expectIdent("use"); err != nil {
		return nil, err
	}
	first, err := p.expectName()
	if err != nil {
		return nil, err
	}

	use := &Use{}
	if t := p.peek(); t != nil && t.Type == token.Colon {
		p.next()
		name, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		full := first.Value + ":" + name.Value
		if t := p.peek(); t != nil && t.Type == token.At {
			// version before the interface path: ns:name@1.0.0/iface
			p.next()
			v, err := p.expect(token.Version)
			if err != nil {
				return nil, err
			}
			full += "@" + v.Value
		}
		pn, err := ParsePackageName(full)
		if err != nil {
			return nil, err
		}
		use.Package = &pn
		if _, err := p.expect(token.Slash); err != nil {
			return nil, err
		}
		iface, err := p.expectName()
		if err != nil {
			return nil, err
		}
		use.Interface = iface.Value
		// trailing version form: ns:name/iface@1.0.0
		if t := p.peek(); t != nil && t.Type == token.At {
			p.next()
			v, err := p.expect(token.Version)
			if err != nil {
				return nil, err
			}
			pn, err := ParsePackageName(use.Package.Unversioned() + "@" + v.Value)
			if err != nil {
				return nil, err
			}
			use.Package = &pn
		}
	} else {
		use.Interface = first.Value
	}

	if _, err := p.expect(token.Dot); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	for {
		name, err := p.expectName()
		if err != nil {
			return nil, err
		}
		un := UseName{Name: name.Value}
		if p.peekIdent("as") {
			p.next()
			as, err := p.expectName()
			if err != nil {
				return nil, err
			}
			un.As = as.Value
		}
		use.Names = append(use.Names, un)

		t := p.next()
		if t == nil {
			return nil, fmt.Errorf("unexpected end of input in use")
		}
		if t.Type == token.RBrace {
			break
		}
		if t.Type != token.Comma {
			return nil, fmt.Errorf("line %d: expected ',' or '}' in use, got %q", t.Line, t.Value)
		}
		if next := p.peek(); next != nil && next.Type == token.RBrace {
			p.next()
			break
		}
	}
	if _, err := p.expect(token.Semi); err != nil {
		return nil, err
	}
	return use, nil
}

func (p *parser) parseRecord() (*TypeDef, error) {
	if err := p.expectIdent("record"); err != nil {
		return nil, err
	}
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	rec := &Record{}
	for {
		if t := p.peek(); t != nil && t.Type == token.RBrace {
			p.next()
			break
		}
		fname, err := p.expectName()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Colon); err != nil {
			return nil, err
		}
		ftype, err := p.parseType()
		if err != nil {
			return nil, err
		}
		rec.Fields = append(rec.Fields, Field{Name: fname.Value, Type: ftype})
		if t := p.peek(); t != nil && t.Type == token.Comma {
			p.next()
		}
	}
	return &TypeDef{Name: name.Value, Kind: rec}, nil
}

func (p *parser) parseVariant() (*TypeDef, error) {
	if err := p.expectIdent("variant"); err != nil {
		return nil, err
	}
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	v := &Variant{}
	for {
		if t := p.peek(); t != nil && t.Type == token.RBrace {
			p.next()
			break
		}
		cname, err := p.expectName()
		if err != nil {
			return nil, err
		}
		c := Case{Name: cname.Value}
		if t := p.peek(); t != nil && t.Type == token.LParen {
			p.next()
			c.Type, err = p.parseType()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RParen); err != nil {
				return nil, err
			}
		}
		v.Cases = append(v.Cases, c)
		if t := p.peek(); t != nil && t.Type == token.Comma {
			p.next()
		}
	}
	return &TypeDef{Name: name.Value, Kind: v}, nil
}

func (p *parser) parseEnum() (*TypeDef, error) {
	if err := p.expectIdent("enum"); err != nil {
		return nil, err
	}
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	e := &Enum{}
	for {
		if t := p.peek(); t != nil && t.Type == token.RBrace {
			p.next()
			break
		}
		cname, err := p.expectName()
		if err != nil {
			return nil, err
		}
		e.Cases = append(e.Cases, cname.Value)
		if t := p.peek(); t != nil && t.Type == token.Comma {
			p.next()
		}
	}
	return &TypeDef{Name: name.Value, Kind: e}, nil
}

func (p *parser) parseFlags() (*TypeDef, error) {
	if err := p.expectIdent("flags"); err != nil {
		return nil, err
	}
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	f := &Flags{}
	for {
		if t := p.peek(); t != nil && t.Type == token.RBrace {
			p.next()
			break
		}
		fname, err := p.expectName()
		if err != nil {
			return nil, err
		}
		f.Names = append(f.Names, fname.Value)
		if t := p.peek(); t != nil && t.Type == token.Comma {
			p.next()
		}
	}
	return &TypeDef{Name: name.Value, Kind: f}, nil
}

func (p *parser) parseAlias() (*TypeDef, error) {
	if err := p.expectIdent("type"); err != nil {
		return nil, err
	}
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Eq); err != nil {
		return nil, err
	}
	target, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Semi); err != nil {
		return nil, err
	}
	return &TypeDef{Name: name.Value, Kind: &Alias{Target: target}}, nil
}

func (p *parser) parseResource() (*TypeDef, error) {
	if err := p.expectIdent("resource"); err != nil {
		return nil, err
	}
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	res := &Resource{}
	if t := p.peek(); t != nil && t.Type == token.Semi {
		p.next()
		return &TypeDef{Name: name.Value, Kind: res}, nil
	}
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t == nil {
			return nil, fmt.Errorf("unexpected end of input in resource %q", name.Value)
		}
		if t.Type == token.RBrace {
			p.next()
			return &TypeDef{Name: name.Value, Kind: res}, nil
		}
		switch {
		case t.Type == token.Ident && t.Value == "constructor":
			p.next()
			params, err := p.parseParams()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.Semi); err != nil {
				return nil, err
			}
			res.Constructor = &Function{Name: "constructor", Params: params}
		case t.Type == token.Ident && t.Value == "static":
			p.next()
			fn, err := p.parseFunction()
			if err != nil {
				return nil, err
			}
			res.Statics = append(res.Statics, fn)
		default:
			fn, err := p.parseFunction()
			if err != nil {
				return nil, err
			}
			res.Methods = append(res.Methods, fn)
		}
	}
}

// parseFunction parses "name: func(params) -> result;".
func (p *parser) parseFunction() (*Function, error) {
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Colon); err != nil {
		return nil, err
	}
	if err := p.expectIdent("func"); err != nil {
		return nil, err
	}
	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	fn := &Function{Name: name.Value, Params: params}
	if t := p.peek(); t != nil && t.Type == token.Arrow {
		p.next()
		fn.Result, err = p.parseType()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.Semi); err != nil {
		return nil, err
	}
	return fn, nil
}

func (p *parser) parseParams() ([]Param, error) {
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	var params []Param
	for {
		if t := p.peek(); t != nil && t.Type == token.RParen {
			p.next()
			return params, nil
		}
		name, err := p.expectName()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Colon); err != nil {
			return nil, err
		}
		typ, err := p.parseType()
		if err != nil {
			return nil, err
		}
		params = append(params, Param{Name: name.Value, Type: typ})
		if t := p.peek(); t != nil && t.Type == token.Comma {
			p.next()
		}
	}
}

func (p *parser) parseType() (Type, error) {
	t, err := p.expectName()
	if err != nil {
		return nil, err
	}
	if t.Type == token.EscapedIdent {
		return &Named{Name: t.Value}, nil
	}
	switch t.Value {
	case "bool", "u8", "u16", "u32", "u64", "s8", "s16", "s32", "s64",
		"f32", "f64", "char", "string":
		return Primitive(t.Value), nil
	case "list":
		elem, err := p.parseTypeArgs1()
		if err != nil {
			return nil, err
		}
		return &List{Elem: elem}, nil
	case "option":
		elem, err := p.parseTypeArgs1()
		if err != nil {
			return nil, err
		}
		return &Option{Elem: elem}, nil
	case "result":
		res := &Result{}
		if nt := p.peek(); nt != nil && nt.Type == token.Lt {
			p.next()
			if nt := p.peek(); nt != nil && nt.Type == token.Ident && nt.Value == "_" {
				p.next()
			} else {
				res.Ok, err = p.parseType()
				if err != nil {
					return nil, err
				}
			}
			if nt := p.peek(); nt != nil && nt.Type == token.Comma {
				p.next()
				res.Err, err = p.parseType()
				if err != nil {
					return nil, err
				}
			}
			if _, err := p.expect(token.Gt); err != nil {
				return nil, err
			}
		}
		return res, nil
	case "tuple":
		if _, err := p.expect(token.Lt); err != nil {
			return nil, err
		}
		tup := &Tuple{}
		for {
			elem, err := p.parseType()
			if err != nil {
				return nil, err
			}
			tup.Elems = append(tup.Elems, elem)
			nt := p.next()
			if nt == nil {
				return nil, fmt.Errorf("unexpected end of input in tuple")
			}
			if nt.Type == token.Gt {
				return tup, nil
			}
			if nt.Type != token.Comma {
				return nil, fmt.Errorf("line %d: expected ',' or '>' in tuple, got %q", nt.Line, nt.Value)
			}
		}
	case "own":
		name, err := p.parseResourceArg()
		if err != nil {
			return nil, err
		}
		return &Own{Resource: name}, nil
	case "borrow":
		name, err := p.parseResourceArg()
		if err != nil {
			return nil, err
		}
		return &Borrow{Resource: name}, nil
	default:
		return &Named{Name: t.Value}, nil
	}
}

func (p *parser) parseTypeArgs1() (Type, error) {
	if _, err := p.expect(token.Lt); err != nil {
		return nil, err
	}
	elem, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Gt); err != nil {
		return nil, err
	}
	return elem, nil
}

func (p *parser) parseResourceArg() (string, error) {
	if _, err := p.expect(token.Lt); err != nil {
		return "", err
	}
	name, err := p.expectName()
	if err != nil {
		return "", err
	}
	if _, err := p.expect(token.Gt); err != nil {
		return "", err
	}
	return name.Value, nil
}

func (p *parser) parseWorld() (*World, error) {
	if err := p.expectIdent("world"); err != nil {
		return nil, err
	}
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	world := &World{Name: name.Value}
	for {
		t := p.peek()
		if t == nil {
			return nil, fmt.Errorf("unexpected end of input in world %q", world.Name)
		}
		if t.Type == token.RBrace {
			p.next()
			return world, nil
		}
		if t.Type != token.Ident {
			return nil, fmt.Errorf("line %d: unexpected %q in world %q", t.Line, t.Value, world.Name)
		}
		switch t.Value {
		case "import":
			p.next()
			item, err := p.parseWorldItem()
			if err != nil {
				return nil, err
			}
			world.Imports = append(world.Imports, *item)
		case "export":
			p.next()
			item, err := p.parseWorldItem()
			if err != nil {
				return nil, err
			}
			world.Exports = append(world.Exports, *item)
		default:
			return nil, fmt.Errorf("line %d: unexpected %q in world %q", t.Line, t.Value, world.Name)
		}
	}
}

// parseWorldItem parses "iface;" or "ns:pkg/iface;" with an optional
// version suffix.
func (p *parser) parseWorldItem() (*WorldItem, error) {
	first, err := p.expectName()
	if err != nil {
		return nil, err
	}
	item := &WorldItem{}
	if t := p.peek(); t != nil && t.Type == token.Colon {
		p.next()
		name, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		full := first.Value + ":" + name.Value
		if _, err := p.expect(token.Slash); err != nil {
			return nil, err
		}
		iface, err := p.expectName()
		if err != nil {
			return nil, err
		}
		if t := p.peek(); t != nil && t.Type == token.At {
			p.next()
			v, err := p.expect(token.Version)
			if err != nil {
				return nil, err
			}
			full += "@" + v.Value
		}
		pn, err := ParsePackageName(full)
		if err != nil {
			return nil, err
		}
		item.Package = &pn
		item.Interface = iface.Value
	} else {
		item.Interface = first.Value
	}
	if _, err := p.expect(token.Semi); err != nil {
		return nil, err
	}
	return item, nil
}
