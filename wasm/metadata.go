package wasm

import (
	"bytes"

	"github.com/wippyai/wasm-appbuild/errors"
)

// MetaSectionName is the custom section stamping build metadata.
const MetaSectionName = "wasm-appbuild:meta"

// Metadata is the information stamped onto a built artifact.
type Metadata struct {
	Package string // unversioned root WIT package name, e.g. "app:gateway"
	Version string // package version, empty when the package carries none
}

// AddMetadata returns the artifact with a metadata custom section appended.
// Works on both plain core modules and link containers.
func AddMetadata(artifact []byte, meta Metadata) ([]byte, error) {
	if meta.Package == "" {
		return nil, errors.New(errors.PhaseLink, errors.KindInvalidInput).
			Detail("metadata needs a package name").
			Build()
	}
	var payload bytes.Buffer
	writeName(&payload, meta.Package)
	writeName(&payload, meta.Version)
	return AppendCustomSection(artifact, MetaSectionName, payload.Bytes())
}

// ReadMetadata returns the stamped metadata, or false when the artifact has
// no metadata section.
func ReadMetadata(artifact []byte) (Metadata, bool, error) {
	payload, found, err := CustomSection(artifact, MetaSectionName)
	if err != nil || !found {
		return Metadata{}, false, err
	}

	r := bytes.NewReader(payload)
	pkg, err := readName(r)
	if err == nil {
		var version string
		version, err = readName(r)
		if err == nil {
			return Metadata{Package: pkg, Version: version}, true, nil
		}
	}
	return Metadata{}, false, errors.New(errors.PhaseLink, errors.KindInvalidInput).
		Detail("truncated metadata section").
		Cause(err).
		Build()
}
