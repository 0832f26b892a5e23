package wasm

import (
	"bytes"
	"encoding/binary"

	"github.com/wippyai/wasm-appbuild/errors"
)

// WebAssembly binary format magic number and versions.
const (
	// Magic is the WebAssembly binary magic number ("\0asm" in little-endian).
	Magic uint32 = 0x6D736100

	// CoreVersion is the core-module binary format version.
	CoreVersion uint16 = 0x01

	// ComponentVersion and ComponentLayer identify a component-layer binary.
	// The version/layer word of a component preamble is 0x0d 0x00 0x01 0x00.
	ComponentVersion uint16 = 0x0d
	ComponentLayer   uint16 = 0x01
)

// Section IDs used by the link container. Core modules define many more, but
// the container only ever scans past them by size.
const (
	// SectionCustom is the custom section ID, shared by both layers.
	SectionCustom byte = 0

	// SectionCoreModule is the component-layer section embedding one full
	// core module binary.
	SectionCoreModule byte = 1
)

const preambleSize = 8

// Section is one raw section of a binary, scanned without decoding the
// payload.
type Section struct {
	ID      byte
	Name    string // set only for custom sections
	Payload []byte // for custom sections, the bytes after the name
}

// IsCoreModule reports whether data starts with a core-module preamble.
func IsCoreModule(data []byte) bool {
	return len(data) >= preambleSize &&
		binary.LittleEndian.Uint32(data) == Magic &&
		binary.LittleEndian.Uint16(data[4:]) == CoreVersion &&
		binary.LittleEndian.Uint16(data[6:]) == 0
}

// IsLinkContainer reports whether data starts with a component-layer
// preamble, the shape BuildLinkContainer produces.
func IsLinkContainer(data []byte) bool {
	return len(data) >= preambleSize &&
		binary.LittleEndian.Uint32(data) == Magic &&
		binary.LittleEndian.Uint16(data[4:]) == ComponentVersion &&
		binary.LittleEndian.Uint16(data[6:]) == ComponentLayer
}

// ValidateModule checks that data is a well-formed sequence of sections
// behind a core-module preamble. Section payloads are not decoded.
func ValidateModule(data []byte) error {
	if !IsCoreModule(data) {
		return errors.New(errors.PhaseLink, errors.KindInvalidInput).
			Detail("not a WebAssembly core module").
			Build()
	}
	_, err := scanSections(data)
	return err
}

// scanSections walks the section sequence after the preamble. The same
// framing (id byte, LEB128 size, payload) applies to both binary layers.
func scanSections(data []byte) ([]Section, error) {
	malformed := func(detail string) error {
		return errors.New(errors.PhaseLink, errors.KindInvalidInput).
			Detail("%s", detail).
			Build()
	}

	if len(data) < preambleSize {
		return nil, malformed("truncated preamble")
	}

	var sections []Section
	r := bytes.NewReader(data[preambleSize:])
	for r.Len() > 0 {
		id, err := r.ReadByte()
		if err != nil {
			return nil, malformed("truncated section id")
		}
		size, err := ReadLEB128u(r)
		if err != nil {
			return nil, malformed("truncated section size")
		}
		if uint32(r.Len()) < size {
			return nil, malformed("section size exceeds remaining input")
		}
		payload := make([]byte, size)
		if _, err := r.Read(payload); err != nil {
			return nil, malformed("truncated section payload")
		}

		sec := Section{ID: id, Payload: payload}
		if id == SectionCustom {
			pr := bytes.NewReader(payload)
			name, err := readName(pr)
			if err != nil {
				return nil, malformed("truncated custom section name")
			}
			sec.Name = name
			sec.Payload = payload[len(payload)-pr.Len():]
		}
		sections = append(sections, sec)
	}
	return sections, nil
}

// AppendCustomSection returns data with a custom section of the given name
// and payload appended. data must be a core module or a link container.
func AppendCustomSection(data []byte, name string, payload []byte) ([]byte, error) {
	if !IsCoreModule(data) && !IsLinkContainer(data) {
		return nil, errors.New(errors.PhaseLink, errors.KindInvalidInput).
			Detail("not a WebAssembly binary").
			Build()
	}

	var body bytes.Buffer
	writeName(&body, name)
	body.Write(payload)

	out := bytes.NewBuffer(make([]byte, 0, len(data)+body.Len()+8))
	out.Write(data)
	out.WriteByte(SectionCustom)
	WriteLEB128u(out, uint32(body.Len()))
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

// CustomSection returns the payload of the last custom section with the
// given name, or false if the binary carries none. Last wins so re-stamping
// an artifact shadows an earlier stamp without rewriting it.
func CustomSection(data []byte, name string) ([]byte, bool, error) {
	sections, err := scanSections(data)
	if err != nil {
		return nil, false, err
	}
	var payload []byte
	found := false
	for _, sec := range sections {
		if sec.ID == SectionCustom && sec.Name == name {
			payload = sec.Payload
			found = true
		}
	}
	return payload, found, nil
}
