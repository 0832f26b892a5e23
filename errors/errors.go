package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the build pipeline the error occurred
type Phase string

const (
	PhaseResolve  Phase = "resolve"  // WIT package graph resolution
	PhaseGenerate Phase = "generate" // client stub synthesis
	PhaseMerge    Phase = "merge"    // client-as-dependency merging
	PhaseBuild    Phase = "build"    // external build commands
	PhaseLink     Phase = "link"     // binary composition
	PhaseInvoke   Phase = "invoke"   // running linked artifacts
	PhaseIO       Phase = "io"       // filesystem access
)

// Kind categorizes the error
type Kind string

const (
	KindParse            Kind = "parse"
	KindUnresolvedImport Kind = "unresolved_import"
	KindDuplicatePackage Kind = "duplicate_package"
	KindDependencyType   Kind = "dependency_type"
	KindUnsupportedType  Kind = "unsupported_type"
	KindNameCollision    Kind = "name_collision"
	KindCommandFailed    Kind = "command_failed"
	KindMissingArtifact  Kind = "missing_artifact"
	KindNotFound         Kind = "not_found"
	KindInvalidInput     Kind = "invalid_input"
)

// Error is the structured error type used throughout the build engine
type Error struct {
	Cause   error
	Phase   Phase
	Kind    Kind
	Package string // WIT package or component name, when attributable
	Symbol  string // interface, type, or function name, when attributable
	File    string // source file or directory path, when attributable
	Detail  string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Package != "" {
		b.WriteString(" in ")
		b.WriteString(e.Package)
	}
	if e.Symbol != "" {
		b.WriteString(" at ")
		b.WriteString(e.Symbol)
	}
	if e.File != "" {
		b.WriteString(" (")
		b.WriteString(e.File)
		b.WriteByte(')')
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Package sets the owning WIT package or component name
func (b *Builder) Package(name string) *Builder {
	b.err.Package = name
	return b
}

// Symbol sets the interface, type, or function name
func (b *Builder) Symbol(name string) *Builder {
	b.err.Symbol = name
	return b
}

// File sets the source file or directory path
func (b *Builder) File(path string) *Builder {
	b.err.File = path
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// UnsupportedType creates an error naming a type the RPC encoding cannot
// represent, attributed to its owning interface.
func UnsupportedType(pkg, iface, typeName, reason string) *Error {
	return &Error{
		Phase:   PhaseGenerate,
		Kind:    KindUnsupportedType,
		Package: pkg,
		Symbol:  iface + "." + typeName,
		Detail:  reason,
	}
}

// NameCollision creates an error for conflicting package definitions in a
// merge destination.
func NameCollision(pkg, destDir string) *Error {
	return &Error{
		Phase:   PhaseMerge,
		Kind:    KindNameCollision,
		Package: pkg,
		File:    destDir,
		Detail:  "destination already contains a different definition of this package",
	}
}

// CommandFailed creates an error for a non-zero external command exit.
func CommandFailed(component, command string, exitCode int, stderr string) *Error {
	detail := fmt.Sprintf("command %q exited with code %d", command, exitCode)
	if stderr = strings.TrimSpace(stderr); stderr != "" {
		detail += ": " + stderr
	}
	return &Error{
		Phase:   PhaseBuild,
		Kind:    KindCommandFailed,
		Package: component,
		Detail:  detail,
	}
}

// MissingArtifact creates an error for an expected but absent build output.
func MissingArtifact(component, path string) *Error {
	return &Error{
		Phase:   PhaseBuild,
		Kind:    KindMissingArtifact,
		Package: component,
		File:    path,
		Detail:  "expected build output does not exist",
	}
}

// IO wraps a filesystem error with the path and operation context.
func IO(op, path string, cause error) *Error {
	return &Error{
		Phase:  PhaseIO,
		Kind:   KindInvalidInput,
		File:   path,
		Detail: op,
		Cause:  cause,
	}
}
