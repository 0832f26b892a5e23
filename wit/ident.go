package wit

import (
	"strings"

	"github.com/coreos/go-semver/semver"
	bawit "go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-appbuild/errors"
)

// PackageName is the identity key for all package lookups: namespace, name,
// and an optional semantic version. Immutable once parsed.
type PackageName struct {
	Namespace string
	Name      string
	Version   *semver.Version
}

// ParsePackageName parses "namespace:name" with an optional "@version"
// suffix, e.g. "wasi:clocks@0.2.0".
func ParsePackageName(s string) (PackageName, error) {
	id, err := bawit.ParseIdent(s)
	if err != nil {
		return PackageName{}, errors.New(errors.PhaseResolve, errors.KindParse).
			Detail("invalid package name %q: %v", s, err).
			Cause(err).
			Build()
	}
	return PackageName{
		Namespace: id.Namespace,
		Name:      id.Package,
		Version:   id.Version,
	}, nil
}

// String renders the canonical "namespace:name@version" form.
func (n PackageName) String() string {
	var b strings.Builder
	b.WriteString(n.Namespace)
	b.WriteByte(':')
	b.WriteString(n.Name)
	if n.Version != nil {
		b.WriteByte('@')
		b.WriteString(n.Version.String())
	}
	return b.String()
}

// Unversioned returns the "namespace:name" form without the version.
func (n PackageName) Unversioned() string {
	return n.Namespace + ":" + n.Name
}

// DirName returns the directory name used for this package under a WIT
// root's deps directory.
func (n PackageName) DirName() string {
	d := n.Namespace + "_" + n.Name
	if n.Version != nil {
		d += "@" + n.Version.String()
	}
	return d
}

// Equal reports full identity equality including version.
func (n PackageName) Equal(other PackageName) bool {
	if n.Namespace != other.Namespace || n.Name != other.Name {
		return false
	}
	if (n.Version == nil) != (other.Version == nil) {
		return false
	}
	return n.Version == nil || *n.Version == *other.Version
}

// Less orders package names lexically by namespace, name, then version.
// Used wherever a deterministic package ordering is needed.
func (n PackageName) Less(other PackageName) bool {
	if n.Namespace != other.Namespace {
		return n.Namespace < other.Namespace
	}
	if n.Name != other.Name {
		return n.Name < other.Name
	}
	switch {
	case n.Version == nil && other.Version == nil:
		return false
	case n.Version == nil:
		return true
	case other.Version == nil:
		return false
	default:
		return n.Version.LessThan(*other.Version)
	}
}

// WithName returns a copy with a different package name, keeping namespace
// and version. Used for derived packages such as "<name>-client".
func (n PackageName) WithName(name string) PackageName {
	out := PackageName{Namespace: n.Namespace, Name: name}
	if n.Version != nil {
		v := *n.Version
		out.Version = &v
	}
	return out
}
