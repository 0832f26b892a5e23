package wasm

import (
	"bytes"
	"errors"
	"io"
)

// ErrOverflow is returned when an encoded value does not fit in 32 bits.
// Section sizes, name lengths, and the link/meta section counts are all
// encoded as u32, so anything wider is a malformed input.
var ErrOverflow = errors.New("leb128: overflow")

// ReadLEB128u decodes one unsigned LEB128 u32.
func ReadLEB128u(r io.ByteReader) (uint32, error) {
	var result uint32
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift >= 35 {
			return 0, ErrOverflow
		}
	}
}

// WriteLEB128u appends the unsigned LEB128 encoding of v.
func WriteLEB128u(w *bytes.Buffer, v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.WriteByte(b)
		if v == 0 {
			return
		}
	}
}

// writeName appends a length-prefixed UTF-8 string, the encoding both the
// link and meta custom sections use for their fields.
func writeName(w *bytes.Buffer, name string) {
	WriteLEB128u(w, uint32(len(name)))
	w.WriteString(name)
}

// readName reads a length-prefixed UTF-8 string written by writeName.
func readName(r *bytes.Reader) (string, error) {
	n, err := ReadLEB128u(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
