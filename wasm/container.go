package wasm

import (
	"bytes"
	"encoding/binary"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-appbuild/errors"
)

// LinkSectionName is the custom section recording instance namespaces.
const LinkSectionName = "wasm-appbuild:link"

// LinkInfo describes how the modules of a link container are instantiated.
// Namespaces has one entry per embedded module, in section order; the last
// entry names the root component, every earlier entry is the namespace a
// dependency's exports are registered under.
type LinkInfo struct {
	Namespaces []string
}

// Root returns the name of the root module.
func (l *LinkInfo) Root() string {
	if len(l.Namespaces) == 0 {
		return ""
	}
	return l.Namespaces[len(l.Namespaces)-1]
}

// Dependencies returns the namespaces of everything before the root module.
func (l *LinkInfo) Dependencies() []string {
	if len(l.Namespaces) == 0 {
		return nil
	}
	return l.Namespaces[:len(l.Namespaces)-1]
}

// BuildLinkContainer bundles core modules into a component-layer container.
// modules and namespaces must be the same length, with the root component
// last. Each module is validated before embedding.
func BuildLinkContainer(modules [][]byte, namespaces []string) ([]byte, error) {
	if len(modules) == 0 || len(modules) != len(namespaces) {
		return nil, errors.New(errors.PhaseLink, errors.KindInvalidInput).
			Detail("need one namespace per module and at least the root module").
			Build()
	}
	for i, mod := range modules {
		if err := ValidateModule(mod); err != nil {
			return nil, errors.New(errors.PhaseLink, errors.KindInvalidInput).
				Package(namespaces[i]).
				Detail("embedded module is not a valid core module").
				Cause(err).
				Build()
		}
	}

	out := &bytes.Buffer{}
	writePreamble(out, ComponentVersion, ComponentLayer)

	var link bytes.Buffer
	WriteLEB128u(&link, uint32(len(namespaces)))
	for _, ns := range namespaces {
		writeName(&link, ns)
	}
	writeRawSection(out, SectionCustom, func(body *bytes.Buffer) {
		writeName(body, LinkSectionName)
		body.Write(link.Bytes())
	})

	for _, mod := range modules {
		writeRawSection(out, SectionCoreModule, func(body *bytes.Buffer) {
			body.Write(mod)
		})
	}

	Logger().Debug("built link container",
		zap.Strings("namespaces", namespaces),
		zap.Int("size", out.Len()))
	return out.Bytes(), nil
}

// ParseLinkContainer extracts the embedded core modules and the link info
// from a container produced by BuildLinkContainer.
func ParseLinkContainer(data []byte) ([][]byte, *LinkInfo, error) {
	malformed := func(detail string) error {
		return errors.New(errors.PhaseLink, errors.KindInvalidInput).
			Detail("%s", detail).
			Build()
	}

	if !IsLinkContainer(data) {
		return nil, nil, malformed("not a link container")
	}
	sections, err := scanSections(data)
	if err != nil {
		return nil, nil, err
	}

	var modules [][]byte
	var info *LinkInfo
	for _, sec := range sections {
		switch {
		case sec.ID == SectionCoreModule:
			modules = append(modules, sec.Payload)
		case sec.ID == SectionCustom && sec.Name == LinkSectionName:
			parsed, err := parseLinkPayload(sec.Payload)
			if err != nil {
				return nil, nil, err
			}
			info = parsed
		}
	}

	if info == nil {
		return nil, nil, malformed("container has no link section")
	}
	if len(modules) != len(info.Namespaces) {
		return nil, nil, malformed("link section does not match embedded module count")
	}
	return modules, info, nil
}

func parseLinkPayload(payload []byte) (*LinkInfo, error) {
	r := bytes.NewReader(payload)
	count, err := ReadLEB128u(r)
	if err != nil {
		return nil, errors.New(errors.PhaseLink, errors.KindInvalidInput).
			Detail("truncated link section").
			Cause(err).
			Build()
	}
	info := &LinkInfo{Namespaces: make([]string, 0, count)}
	for i := uint32(0); i < count; i++ {
		ns, err := readName(r)
		if err != nil {
			return nil, errors.New(errors.PhaseLink, errors.KindInvalidInput).
				Detail("truncated link section namespace").
				Cause(err).
				Build()
		}
		info.Namespaces = append(info.Namespaces, ns)
	}
	return info, nil
}

func writePreamble(w *bytes.Buffer, version, layer uint16) {
	var word [preambleSize]byte
	binary.LittleEndian.PutUint32(word[:], Magic)
	binary.LittleEndian.PutUint16(word[4:], version)
	binary.LittleEndian.PutUint16(word[6:], layer)
	w.Write(word[:])
}

func writeRawSection(w *bytes.Buffer, id byte, fill func(body *bytes.Buffer)) {
	var body bytes.Buffer
	fill(&body)
	w.WriteByte(id)
	WriteLEB128u(w, uint32(body.Len()))
	w.Write(body.Bytes())
}
