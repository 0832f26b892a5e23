package invoke

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-appbuild/errors"
	"github.com/wippyai/wasm-appbuild/wasm"
)

// Runner owns a wazero runtime. One Runner can load many artifacts; Close
// releases every instance it created.
type Runner struct {
	runtime wazero.Runtime
}

// NewRunner creates a runner backed by a fresh wazero runtime.
func NewRunner(ctx context.Context) *Runner {
	return &Runner{runtime: wazero.NewRuntime(ctx)}
}

// Close releases the runtime and everything instantiated in it.
func (r *Runner) Close(ctx context.Context) error {
	return r.runtime.Close(ctx)
}

// Instance is a loaded artifact ready for calls.
type Instance struct {
	root api.Module
}

// Load instantiates the artifact. For a link container every dependency
// module is instantiated first, named after its namespace so the root
// module's imports resolve against it; a plain core module is instantiated
// as-is.
func (r *Runner) Load(ctx context.Context, artifact []byte) (*Instance, error) {
	if wasm.IsCoreModule(artifact) {
		mod, err := r.runtime.Instantiate(ctx, artifact)
		if err != nil {
			return nil, instantiateErr("", err)
		}
		return &Instance{root: mod}, nil
	}

	modules, info, err := wasm.ParseLinkContainer(artifact)
	if err != nil {
		return nil, err
	}

	var root api.Module
	for i, bin := range modules {
		ns := info.Namespaces[i]
		mod, err := r.runtime.InstantiateWithConfig(ctx, bin,
			wazero.NewModuleConfig().WithName(ns))
		if err != nil {
			return nil, instantiateErr(ns, err)
		}
		Logger().Debug("instantiated module", zap.String("namespace", ns))
		root = mod
	}
	// BuildLinkContainer guarantees at least one module, root last.
	return &Instance{root: root}, nil
}

// Call invokes an exported function with raw core-wasm arguments.
func (i *Instance) Call(ctx context.Context, fn string, args ...uint64) ([]uint64, error) {
	exported := i.root.ExportedFunction(fn)
	if exported == nil {
		return nil, errors.New(errors.PhaseInvoke, errors.KindNotFound).
			Symbol(fn).
			Detail("module exports no such function").
			Build()
	}
	results, err := exported.Call(ctx, args...)
	if err != nil {
		return nil, errors.New(errors.PhaseInvoke, errors.KindCommandFailed).
			Symbol(fn).
			Detail("call trapped").
			Cause(err).
			Build()
	}
	return results, nil
}

func instantiateErr(namespace string, cause error) error {
	b := errors.New(errors.PhaseInvoke, errors.KindInvalidInput).
		Detail("module instantiation failed").
		Cause(cause)
	if namespace != "" {
		b = b.Package(namespace)
	}
	return b.Build()
}
