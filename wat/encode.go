package wat

import (
	"bytes"

	"github.com/wippyai/wasm-appbuild/wasm"
)

const funcTypeByte = 0x60

// encode emits the module as a core binary.
func encode(m *module) []byte {
	out := &bytes.Buffer{}
	out.Write([]byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00})

	if len(m.types) > 0 {
		writeSection(out, 1, func(sec *bytes.Buffer) {
			wasm.WriteLEB128u(sec, uint32(len(m.types)))
			for _, ft := range m.types {
				sec.WriteByte(funcTypeByte)
				writeValTypes(sec, ft.params)
				writeValTypes(sec, ft.results)
			}
		})
	}

	if len(m.imports) > 0 {
		writeSection(out, 2, func(sec *bytes.Buffer) {
			wasm.WriteLEB128u(sec, uint32(len(m.imports)))
			for _, imp := range m.imports {
				writeName(sec, imp.module)
				writeName(sec, imp.name)
				sec.WriteByte(0x00) // func import
				wasm.WriteLEB128u(sec, imp.typeIdx)
			}
		})
	}

	if len(m.funcs) > 0 {
		writeSection(out, 3, func(sec *bytes.Buffer) {
			wasm.WriteLEB128u(sec, uint32(len(m.funcs)))
			for _, fn := range m.funcs {
				wasm.WriteLEB128u(sec, fn.typeIdx)
			}
		})
	}

	if len(m.exports) > 0 {
		writeSection(out, 7, func(sec *bytes.Buffer) {
			wasm.WriteLEB128u(sec, uint32(len(m.exports)))
			for _, exp := range m.exports {
				writeName(sec, exp.name)
				sec.WriteByte(0x00) // func export
				wasm.WriteLEB128u(sec, exp.funcIdx)
			}
		})
	}

	if len(m.funcs) > 0 {
		writeSection(out, 10, func(sec *bytes.Buffer) {
			wasm.WriteLEB128u(sec, uint32(len(m.funcs)))
			for _, fn := range m.funcs {
				var body bytes.Buffer
				body.WriteByte(0x00) // no local declarations
				for _, ins := range fn.body {
					body.WriteByte(ins.opcode)
					if ins.hasImm {
						switch ins.opcode {
						case 0x41, 0x42: // const immediates are signed
							writeLEB128s(&body, ins.operand)
						default:
							wasm.WriteLEB128u(&body, uint32(ins.operand))
						}
					}
				}
				body.WriteByte(0x0B) // end
				wasm.WriteLEB128u(sec, uint32(body.Len()))
				sec.Write(body.Bytes())
			}
		})
	}

	return out.Bytes()
}

func writeSection(out *bytes.Buffer, id byte, fill func(sec *bytes.Buffer)) {
	var sec bytes.Buffer
	fill(&sec)
	out.WriteByte(id)
	wasm.WriteLEB128u(out, uint32(sec.Len()))
	out.Write(sec.Bytes())
}

func writeValTypes(sec *bytes.Buffer, types []valType) {
	wasm.WriteLEB128u(sec, uint32(len(types)))
	for _, t := range types {
		sec.WriteByte(byte(t))
	}
}

func writeName(sec *bytes.Buffer, name string) {
	wasm.WriteLEB128u(sec, uint32(len(name)))
	sec.WriteString(name)
}

func writeLEB128s(w *bytes.Buffer, v int64) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			w.WriteByte(b)
			return
		}
		w.WriteByte(b | 0x80)
	}
}
