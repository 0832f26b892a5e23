// Package build sequences the WIT and binary pipeline into incremental
// steps: GenRpc generates each component's WIT root with merged dependency
// clients, Componentize produces the component binaries, LinkRpc composes
// static dependencies into link containers, and AddMetadata stamps the
// result with the root package identity.
//
// Every unit of work is gated twice: a TaskResultMarker records success or
// failure under a content hash of the task's defining inputs, and
// IsUpToDate compares source and target modification times. The marker is
// what makes a crash or failure safe: no success marker means the unit
// reruns on the next invocation, a failure marker forces a rerun even when
// timestamps look current.
//
// A failed unit aborts only its own component's later steps. Sibling
// components proceed, and the next invocation retries exactly the failed
// or stale work.
package build
