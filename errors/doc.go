// Package errors provides structured error types for the wasm-appbuild engine.
//
// Errors are categorized by Phase (where in the build pipeline the error
// occurred) and Kind (error category). The Error type includes rich context:
// owning package, symbol, file path, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseResolve, errors.KindUnresolvedImport).
//		Package("app:main").
//		Symbol("api.get-user").
//		File("wit/main.wit").
//		Detail("use refers to unknown package %s", dep).
//		Build()
//
// Validation-style failures are accumulated rather than thrown individually:
//
//	var verr errors.ValidationErrors
//	verr.Add(err)
//	return verr.Err()
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
