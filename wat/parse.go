package wat

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wippyai/wasm-appbuild/errors"
	"github.com/wippyai/wasm-appbuild/wat/internal/token"
)

// sexpr is one node of the parenthesized source tree. Either atom is set or
// the node is a list.
type sexpr struct {
	atom     *token.Token
	children []sexpr
	line     int
}

func (s *sexpr) isList(head string) bool {
	return s.atom == nil && len(s.children) > 0 &&
		s.children[0].atom != nil && s.children[0].atom.Value == head
}

// Module AST, restricted to the compiler's subset.

type valType byte

const (
	valI32 valType = 0x7F
	valI64 valType = 0x7E
	valF32 valType = 0x7D
	valF64 valType = 0x7C
)

type funcType struct {
	params  []valType
	results []valType
}

func (ft funcType) key() string {
	return fmt.Sprintf("%v->%v", ft.params, ft.results)
}

type funcImport struct {
	module  string
	name    string
	typeIdx uint32
}

type instruction struct {
	opcode  byte
	operand int64
	hasImm  bool
}

type function struct {
	typeIdx uint32
	body    []instruction
}

type export struct {
	name    string
	funcIdx uint32
}

type module struct {
	types   []funcType
	imports []funcImport
	funcs   []function
	exports []export
}

func parseErr(line int, format string, args ...any) error {
	return errors.New(errors.PhaseBuild, errors.KindParse).
		Detail("wat line %d: %s", line, fmt.Sprintf(format, args...)).
		Build()
}

// parseTree builds the sexpr tree from the token stream.
func parseTree(tokens []token.Token) (*sexpr, error) {
	pos := 0
	var parse func() (sexpr, error)
	parse = func() (sexpr, error) {
		if pos >= len(tokens) {
			return sexpr{}, parseErr(0, "unexpected end of input")
		}
		tok := tokens[pos]
		if tok.Type == token.RParen {
			return sexpr{}, parseErr(tok.Line, "unexpected ')'")
		}
		if tok.Type != token.LParen {
			pos++
			t := tok
			return sexpr{atom: &t, line: tok.Line}, nil
		}

		pos++ // consume '('
		node := sexpr{line: tok.Line}
		for {
			if pos >= len(tokens) {
				return sexpr{}, parseErr(tok.Line, "unclosed '('")
			}
			if tokens[pos].Type == token.RParen {
				pos++
				return node, nil
			}
			child, err := parse()
			if err != nil {
				return sexpr{}, err
			}
			node.children = append(node.children, child)
		}
	}

	root, err := parse()
	if err != nil {
		return nil, err
	}
	if pos != len(tokens) {
		return nil, parseErr(tokens[pos].Line, "trailing input after module")
	}
	return &root, nil
}

// moduleBuilder accumulates the module while resolving $names to indices.
type moduleBuilder struct {
	mod       module
	typeIdx   map[string]uint32 // funcType key -> index
	funcNames map[string]uint32 // $name -> function index (imports first)
	nextFunc  uint32
}

func parseModule(root *sexpr) (*module, error) {
	if !root.isList("module") {
		return nil, parseErr(root.line, "expected (module ...)")
	}

	b := &moduleBuilder{
		typeIdx:   map[string]uint32{},
		funcNames: map[string]uint32{},
	}

	// Imports and function names are registered in a first pass so call and
	// export can reference functions defined later in the source.
	var funcNodes []*sexpr
	for i := 1; i < len(root.children); i++ {
		node := &root.children[i]
		switch {
		case node.isList("import"):
			if len(funcNodes) > 0 {
				return nil, parseErr(node.line, "imports must precede function definitions")
			}
			if err := b.addImport(node); err != nil {
				return nil, err
			}
		case node.isList("func"):
			b.registerFunc(node)
			funcNodes = append(funcNodes, node)
		case node.isList("export"):
			// handled after functions are registered
		default:
			return nil, parseErr(node.line, "unsupported module field")
		}
	}

	for _, node := range funcNodes {
		if err := b.addFunc(node); err != nil {
			return nil, err
		}
	}
	for i := 1; i < len(root.children); i++ {
		node := &root.children[i]
		if node.isList("export") {
			if err := b.addExport(node); err != nil {
				return nil, err
			}
		}
	}

	return &b.mod, nil
}

func (b *moduleBuilder) internType(ft funcType) uint32 {
	if idx, ok := b.typeIdx[ft.key()]; ok {
		return idx
	}
	idx := uint32(len(b.mod.types))
	b.mod.types = append(b.mod.types, ft)
	b.typeIdx[ft.key()] = idx
	return idx
}

// registerFunc assigns the function's index before bodies are parsed.
func (b *moduleBuilder) registerFunc(node *sexpr) {
	if len(node.children) > 1 {
		if a := node.children[1].atom; a != nil && strings.HasPrefix(a.Value, "$") {
			b.funcNames[a.Value] = b.nextFunc
		}
	}
	b.nextFunc++
}

func (b *moduleBuilder) addImport(node *sexpr) error {
	c := node.children
	if len(c) != 4 || c[1].atom == nil || c[2].atom == nil || !c[3].isList("func") {
		return parseErr(node.line, "expected (import \"mod\" \"name\" (func ...))")
	}
	desc := &c[3]
	sig, rest, err := parseSignature(desc.children[1:])
	if err != nil {
		return err
	}
	if len(rest) > 0 {
		if rest[0].atom != nil && strings.HasPrefix(rest[0].atom.Value, "$") {
			b.funcNames[rest[0].atom.Value] = b.nextFunc
			// the name atom precedes the signature fields
			sig, rest, err = parseSignature(desc.children[2:])
			if err != nil {
				return err
			}
		}
		if len(rest) > 0 {
			return parseErr(node.line, "unexpected field in imported func")
		}
	}
	b.mod.imports = append(b.mod.imports, funcImport{
		module:  c[1].atom.Value,
		name:    c[2].atom.Value,
		typeIdx: b.internType(sig),
	})
	b.nextFunc++
	return nil
}

func (b *moduleBuilder) addFunc(node *sexpr) error {
	fields := node.children[1:]

	// Optional $name, already registered.
	if len(fields) > 0 && fields[0].atom != nil && strings.HasPrefix(fields[0].atom.Value, "$") {
		fields = fields[1:]
	}

	// Optional inline (export "name").
	funcIdx := uint32(len(b.mod.imports) + len(b.mod.funcs))
	for len(fields) > 0 && fields[0].isList("export") {
		e := &fields[0]
		if len(e.children) != 2 || e.children[1].atom == nil {
			return parseErr(e.line, "expected (export \"name\")")
		}
		b.mod.exports = append(b.mod.exports, export{
			name:    e.children[1].atom.Value,
			funcIdx: funcIdx,
		})
		fields = fields[1:]
	}

	sig, body, err := parseSignature(fields)
	if err != nil {
		return err
	}

	fn := function{typeIdx: b.internType(sig)}
	for i := range body {
		if err := b.emitInstr(&fn, &body[i]); err != nil {
			return err
		}
	}
	b.mod.funcs = append(b.mod.funcs, fn)
	return nil
}

func (b *moduleBuilder) addExport(node *sexpr) error {
	c := node.children
	if len(c) != 3 || c[1].atom == nil || !c[2].isList("func") ||
		len(c[2].children) != 2 {
		return parseErr(node.line, "expected (export \"name\" (func $f))")
	}
	idx, err := b.funcRef(&c[2].children[1])
	if err != nil {
		return err
	}
	b.mod.exports = append(b.mod.exports, export{name: c[1].atom.Value, funcIdx: idx})
	return nil
}

// parseSignature consumes leading (param ...) and (result ...) fields and
// returns the remaining body nodes.
func parseSignature(fields []sexpr) (funcType, []sexpr, error) {
	var ft funcType
	i := 0
	for ; i < len(fields) && fields[i].isList("param"); i++ {
		types, err := parseValTypes(&fields[i])
		if err != nil {
			return ft, nil, err
		}
		ft.params = append(ft.params, types...)
	}
	for ; i < len(fields) && fields[i].isList("result"); i++ {
		types, err := parseValTypes(&fields[i])
		if err != nil {
			return ft, nil, err
		}
		ft.results = append(ft.results, types...)
	}
	return ft, fields[i:], nil
}

func parseValTypes(node *sexpr) ([]valType, error) {
	var out []valType
	for _, c := range node.children[1:] {
		if c.atom == nil {
			return nil, parseErr(node.line, "expected a value type")
		}
		switch c.atom.Value {
		case "i32":
			out = append(out, valI32)
		case "i64":
			out = append(out, valI64)
		case "f32":
			out = append(out, valF32)
		case "f64":
			out = append(out, valF64)
		default:
			return nil, parseErr(c.line, "unsupported value type %q", c.atom.Value)
		}
	}
	return out, nil
}

var plainOps = map[string]byte{
	"i32.add": 0x6A,
	"i32.sub": 0x6B,
	"i32.mul": 0x6C,
	"i64.add": 0x7C,
	"i64.sub": 0x7D,
	"i64.mul": 0x7E,
}

// emitInstr flattens one folded instruction: operands first, opcode last.
func (b *moduleBuilder) emitInstr(fn *function, node *sexpr) error {
	if node.atom != nil || len(node.children) == 0 || node.children[0].atom == nil {
		return parseErr(node.line, "expected a folded instruction")
	}
	op := node.children[0].atom.Value
	operands := node.children[1:]

	emitOperands := func() error {
		for i := range operands {
			if err := b.emitInstr(fn, &operands[i]); err != nil {
				return err
			}
		}
		return nil
	}

	switch op {
	case "local.get":
		idx, err := immediate(node, operands)
		if err != nil {
			return err
		}
		fn.body = append(fn.body, instruction{opcode: 0x20, operand: idx, hasImm: true})
		return nil

	case "i32.const", "i64.const":
		v, err := immediate(node, operands)
		if err != nil {
			return err
		}
		opcode := byte(0x41)
		if op == "i64.const" {
			opcode = 0x42
		}
		fn.body = append(fn.body, instruction{opcode: opcode, operand: v, hasImm: true})
		return nil

	case "call":
		if len(operands) == 0 || operands[0].atom == nil {
			return parseErr(node.line, "call needs a function reference")
		}
		idx, err := b.funcRef(&operands[0])
		if err != nil {
			return err
		}
		operands = operands[1:]
		if err := emitOperands(); err != nil {
			return err
		}
		fn.body = append(fn.body, instruction{opcode: 0x10, operand: int64(idx), hasImm: true})
		return nil

	default:
		opcode, ok := plainOps[op]
		if !ok {
			return parseErr(node.line, "unsupported instruction %q", op)
		}
		if err := emitOperands(); err != nil {
			return err
		}
		fn.body = append(fn.body, instruction{opcode: opcode})
		return nil
	}
}

// immediate parses the single numeric operand of local.get / const.
func immediate(node *sexpr, operands []sexpr) (int64, error) {
	if len(operands) != 1 || operands[0].atom == nil ||
		operands[0].atom.Type != token.Number {
		return 0, parseErr(node.line, "expected one numeric immediate")
	}
	v, err := strconv.ParseInt(operands[0].atom.Value, 0, 64)
	if err != nil {
		return 0, parseErr(operands[0].line, "bad number %q", operands[0].atom.Value)
	}
	return v, nil
}

func (b *moduleBuilder) funcRef(node *sexpr) (uint32, error) {
	if node.atom == nil {
		return 0, parseErr(node.line, "expected a function reference")
	}
	v := node.atom.Value
	if strings.HasPrefix(v, "$") {
		idx, ok := b.funcNames[v]
		if !ok {
			return 0, parseErr(node.line, "unknown function %s", v)
		}
		return idx, nil
	}
	idx, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, parseErr(node.line, "bad function index %q", v)
	}
	return uint32(idx), nil
}
