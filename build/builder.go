package build

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	appbuild "github.com/wippyai/wasm-appbuild"
	"github.com/wippyai/wasm-appbuild/errors"
	"github.com/wippyai/wasm-appbuild/stub"
	"github.com/wippyai/wasm-appbuild/wasm"
	"github.com/wippyai/wasm-appbuild/wat"
	"github.com/wippyai/wasm-appbuild/wit"
	"github.com/wippyai/wasm-appbuild/witmerge"
	"github.com/wippyai/wasm-appbuild/witresolve"
)

// Step is one phase of the build pipeline.
type Step string

const (
	StepGenRpc       Step = "gen-rpc"
	StepComponentize Step = "componentize"
	StepLinkRpc      Step = "link-rpc"
	StepAddMetadata  Step = "add-metadata"
)

// Steps returns the pipeline steps in execution order.
func Steps() []Step {
	return []Step{StepGenRpc, StepComponentize, StepLinkRpc, StepAddMetadata}
}

// ParseStep resolves a step name from the CLI.
func ParseStep(name string) (Step, error) {
	for _, s := range Steps() {
		if string(s) == name {
			return s, nil
		}
	}
	return "", errors.New(errors.PhaseBuild, errors.KindInvalidInput).
		Detail("unknown step %q", name).
		Build()
}

// Options selects what one build invocation does.
type Options struct {
	Profile    string
	Steps      []Step                   // empty runs every step
	Components []appbuild.ComponentName // empty selects every component
	Force      bool                     // bypass every up-to-date check
	EmitCrates bool                     // write client crate skeletons
}

// Builder runs the incremental pipeline for one application.
type Builder struct {
	app      *appbuild.Application
	layout   appbuild.Layout
	opts     Options
	resolver *witresolve.Resolver
	resolved *witresolve.ResolvedApplication

	validated bool

	mu     sync.Mutex
	failed map[appbuild.ComponentName]error
}

// New creates a builder. The profile defaults to "default".
func New(app *appbuild.Application, layout appbuild.Layout, opts Options) (*Builder, error) {
	if opts.Profile == "" {
		opts.Profile = "default"
	}
	resolver, err := witresolve.NewResolver(witresolve.Options{
		GenericPackages: stub.StandardPackageNames(),
	})
	if err != nil {
		return nil, err
	}
	return &Builder{
		app:      app,
		layout:   layout,
		opts:     opts,
		resolver: resolver,
		failed:   map[appbuild.ComponentName]error{},
	}, nil
}

// Run executes the selected steps in pipeline order. Validation problems and
// resolution failures abort the whole invocation; a failure inside one
// component's unit of work only aborts that component's later steps, and the
// collected failures are returned at the end.
func (b *Builder) Run(ctx *Context) error {
	for _, step := range Steps() {
		if !b.stepSelected(step) {
			continue
		}
		if err := b.RunStep(ctx, step); err != nil {
			return err
		}
	}
	return b.Failures()
}

// RunStep executes a single pipeline step. The first call validates the
// application manifest. Callers driving steps individually collect
// per-component failures through Failures once every step has run.
func (b *Builder) RunStep(ctx *Context, step Step) error {
	if !b.validated {
		if err := b.app.Validate(); err != nil {
			return err
		}
		b.validated = true
	}

	ctx.Info("step", zap.String("step", string(step)))
	restore := ctx.Push()
	defer restore()

	switch step {
	case StepGenRpc:
		return b.genRpc(ctx)
	case StepComponentize:
		return b.componentize(ctx)
	case StepLinkRpc:
		return b.linkRpc(ctx)
	case StepAddMetadata:
		return b.addMetadata(ctx)
	}
	return errors.New(errors.PhaseBuild, errors.KindInvalidInput).
		Detail("unknown step %q", step).
		Build()
}

func (b *Builder) stepSelected(step Step) bool {
	if len(b.opts.Steps) == 0 {
		return true
	}
	for _, s := range b.opts.Steps {
		if s == step {
			return true
		}
	}
	return false
}

// selected returns the component set this invocation operates on.
func (b *Builder) selected() []appbuild.ComponentName {
	if len(b.opts.Components) == 0 {
		return b.app.ComponentNames()
	}
	names := append([]appbuild.ComponentName(nil), b.opts.Components...)
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

func (b *Builder) isSelected(name appbuild.ComponentName) bool {
	for _, s := range b.selected() {
		if s == name {
			return true
		}
	}
	return false
}

// needed widens the selection with direct dependency targets: their base WIT
// and clients must exist before a selected dependent can generate.
func (b *Builder) needed() []appbuild.ComponentName {
	set := map[appbuild.ComponentName]bool{}
	for _, name := range b.selected() {
		set[name] = true
		for _, dep := range b.app.Component(name).Dependencies {
			if b.app.Component(dep.Target) != nil {
				set[dep.Target] = true
			}
		}
	}
	names := make([]appbuild.ComponentName, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

func (b *Builder) markFailed(name appbuild.ComponentName, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.failed[name]; !ok {
		b.failed[name] = err
	}
}

func (b *Builder) isFailed(name appbuild.ComponentName) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.failed[name]
	return ok
}

// Failures aggregates the per-component failures recorded so far, ordered
// by component name, or returns nil when every component succeeded.
func (b *Builder) Failures() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var names []appbuild.ComponentName
	for name := range b.failed {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	var verr errors.ValidationErrors
	for _, name := range names {
		verr.Add(b.failed[name])
	}
	return verr.Err()
}

// ensureResolved resolves every component's source WIT root once per
// invocation. The resolver's parse cache makes repeated resolution cheap.
func (b *Builder) ensureResolved() (*witresolve.ResolvedApplication, error) {
	if b.resolved != nil {
		return b.resolved, nil
	}
	roots := make([]witresolve.Root, 0, len(b.app.Components))
	for _, name := range b.app.ComponentNames() {
		roots = append(roots, witresolve.Root{
			Component: name,
			Dir:       b.layout.SourceWitDir(b.app, name),
		})
	}
	resolved, err := b.resolver.Resolve(b.app, roots)
	if err != nil {
		return nil, err
	}
	b.resolved = resolved
	return resolved, nil
}

// GenRpc: base WIT per component, client packages per wasm-rpc dependency
// target, then the final per-profile WIT with every dependency client
// merged in.
func (b *Builder) genRpc(ctx *Context) error {
	resolved, err := b.ensureResolved()
	if err != nil {
		return err
	}

	// Base WIT roots are disjoint per component.
	g := &errgroup.Group{}
	for _, name := range b.needed() {
		name := name
		fork := ctx.Fork()
		g.Go(func() error {
			if err := b.genBaseWit(fork, resolved, name); err != nil {
				fork.Error("base wit generation failed",
					zap.String("component", string(name)), zap.Error(err))
				b.markFailed(name, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	// One client per wasm-rpc dependency target, shared by every dependent.
	g = &errgroup.Group{}
	for _, target := range b.clientTargets() {
		target := target
		fork := ctx.Fork()
		g.Go(func() error {
			if b.isFailed(target) {
				return nil
			}
			if err := b.genClient(fork, target); err != nil {
				fork.Error("client generation failed",
					zap.String("component", string(target)), zap.Error(err))
				b.markFailed(target, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	// Final WIT in dependency order: a dependent's merge step sees its
	// dependencies' clients already generated.
	for _, name := range resolved.ComponentOrder() {
		if !b.isSelected(name) || b.isFailed(name) {
			continue
		}
		if failedDep := b.failedDependency(name); failedDep != "" {
			b.markFailed(name, errors.New(errors.PhaseGenerate, errors.KindMissingArtifact).
				Package(string(name)).
				Detail("dependency %q failed earlier in this invocation", failedDep).
				Build())
			continue
		}
		if err := b.assembleWit(ctx, resolved, name); err != nil {
			ctx.Error("wit assembly failed",
				zap.String("component", string(name)), zap.Error(err))
			b.markFailed(name, err)
		}
	}
	return nil
}

// clientTargets returns the sorted unique wasm-rpc dependency targets of the
// selected components.
func (b *Builder) clientTargets() []appbuild.ComponentName {
	set := map[appbuild.ComponentName]bool{}
	for _, name := range b.selected() {
		for _, dep := range b.app.Component(name).Dependencies {
			if dep.Type.IsWasmRpc() && b.app.Component(dep.Target) != nil {
				set[dep.Target] = true
			}
		}
	}
	names := make([]appbuild.ComponentName, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

func (b *Builder) failedDependency(name appbuild.ComponentName) appbuild.ComponentName {
	for _, dep := range b.app.Component(name).Dependencies {
		if b.isFailed(dep.Target) {
			return dep.Target
		}
	}
	return ""
}

// genBaseWit copies the component's source WIT and vendors every package the
// root needs to resolve on its own: missing generic packages from the
// embedded standard WIT, and other components' main packages the source
// references.
func (b *Builder) genBaseWit(ctx *Context, resolved *witresolve.ResolvedApplication, name appbuild.ComponentName) error {
	srcDir := b.layout.SourceWitDir(b.app, name)
	baseDir := b.layout.BaseWitDir(name)

	marker, err := NewTaskResultMarker(b.layout.MarkerDir(), "gen-base-wit", string(name))
	if err != nil {
		return err
	}
	current, err := IsUpToDate(b.opts.Force, []string{srcDir}, []string{baseDir})
	if err != nil {
		return err
	}
	if current && marker.IsUpToDate() {
		ctx.Debug("base wit up to date", zap.String("component", string(name)))
		return nil
	}

	ctx.Info("generating base wit", zap.String("component", string(name)))
	return marker.Run(func() error {
		if err := replaceTree(srcDir, baseDir); err != nil {
			return err
		}
		for _, dep := range resolved.MissingGenericSourcePackageDeps(name) {
			pkg := stub.StandardPackage(dep.Unversioned())
			if pkg == nil {
				return errors.New(errors.PhaseGenerate, errors.KindUnresolvedImport).
					Package(string(name)).
					Detail("no embedded package for %s", dep).
					Build()
			}
			depDir := filepath.Join(baseDir, wit.DepsDir, pkg.Name.DirName())
			if err := wit.WritePackage(depDir, pkg); err != nil {
				return err
			}
		}
		for _, exp := range resolved.ComponentExportsPackageDeps(name) {
			rc := resolved.Component(exp.Component)
			if rc == nil {
				continue
			}
			depDir := filepath.Join(baseDir, wit.DepsDir, rc.Main.Name.DirName())
			if err := wit.WritePackage(depDir, rc.Main); err != nil {
				return err
			}
		}
		return nil
	})
}

// genClient builds (or reuses) the client package for one wasm-rpc
// dependency target.
func (b *Builder) genClient(ctx *Context, name appbuild.ComponentName) error {
	baseDir := b.layout.BaseWitDir(name)
	clientDir := b.layout.ClientWitDir(name)

	marker, err := NewTaskResultMarker(b.layout.MarkerDir(), "gen-client", string(name))
	if err != nil {
		return err
	}
	current, err := IsUpToDate(b.opts.Force, []string{baseDir}, []string{clientDir})
	if err != nil {
		return err
	}
	if current && marker.IsUpToDate() {
		ctx.Debug("client up to date", zap.String("component", string(name)))
		return nil
	}

	ctx.Info("generating client", zap.String("component", string(name)))
	return marker.Run(func() error {
		pkg, err := wit.LoadPackage(baseDir)
		if err != nil {
			return err
		}
		view, err := stub.ExtractExports(pkg, "", stub.ExtractExportsPackage)
		if err != nil {
			return err
		}
		client, err := stub.GenerateClient(view)
		if err != nil {
			return err
		}
		if err := os.RemoveAll(clientDir); err != nil {
			return errors.IO("remove", clientDir, err)
		}
		if err := client.WriteTo(clientDir); err != nil {
			return err
		}
		if b.opts.EmitCrates {
			crateDir := filepath.Join(filepath.Dir(clientDir), "crate")
			if err := stub.EmitCrateSkeleton(crateDir, clientDir, client); err != nil {
				return err
			}
		}
		return nil
	})
}

// assembleWit builds the component's final per-profile WIT root: the base
// tree with every wasm-rpc dependency's client merged in.
func (b *Builder) assembleWit(ctx *Context, resolved *witresolve.ResolvedApplication, name appbuild.ComponentName) error {
	baseDir := b.layout.BaseWitDir(name)
	witDir := b.layout.WitDir(name)
	fpPath := b.layout.DepFingerprintPath(name)

	targets := b.rpcDependencyTargets(name)
	sources := []string{baseDir}
	for _, target := range targets {
		sources = append(sources, b.layout.ClientWitDir(target))
	}

	marker, err := NewTaskResultMarker(b.layout.MarkerDir(), "gen-wit",
		string(name)+"\x00"+b.opts.Profile)
	if err != nil {
		return err
	}
	current, err := IsUpToDate(b.opts.Force, sources, []string{witDir})
	if err != nil {
		return err
	}
	if current && marker.IsUpToDate() && resolved.IsDepGraphUpToDate(name, fpPath) {
		ctx.Debug("generated wit up to date", zap.String("component", string(name)))
		return nil
	}

	ctx.Info("assembling wit",
		zap.String("component", string(name)),
		zap.Int("clients", len(targets)))
	return marker.Run(func() error {
		if err := replaceTree(baseDir, witDir); err != nil {
			return err
		}
		for _, target := range targets {
			if err := witmerge.Merge(b.layout.ClientWitDir(target), witDir); err != nil {
				return err
			}
		}
		return resolved.RecordDepGraphFingerprint(name, fpPath)
	})
}

func (b *Builder) rpcDependencyTargets(name appbuild.ComponentName) []appbuild.ComponentName {
	set := map[appbuild.ComponentName]bool{}
	for _, dep := range b.app.Component(name).Dependencies {
		if dep.Type.IsWasmRpc() && b.app.Component(dep.Target) != nil {
			set[dep.Target] = true
		}
	}
	targets := make([]appbuild.ComponentName, 0, len(set))
	for t := range set {
		targets = append(targets, t)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })
	return targets
}

// Componentize: run each selected component's external build commands, or
// the built-in WAT fallback when it has none and a .wat source.
func (b *Builder) componentize(ctx *Context) error {
	g := &errgroup.Group{}
	for _, name := range b.selected() {
		name := name
		fork := ctx.Fork()
		g.Go(func() error {
			if b.isFailed(name) {
				return nil
			}
			if err := b.componentizeOne(fork, name); err != nil {
				fork.Error("componentize failed",
					zap.String("component", string(name)), zap.Error(err))
				b.markFailed(name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (b *Builder) componentizeOne(ctx *Context, name appbuild.ComponentName) error {
	c := b.app.Component(name)
	componentDir := b.layout.ComponentDir(b.app, name)
	artifact := filepath.Join(componentDir, c.SourceWasm)
	out := b.layout.ComponentWasm(name)

	cmds := c.BuildCommands(b.opts.Profile)
	if len(cmds) == 0 && strings.HasSuffix(c.SourceWasm, ".wat") {
		return b.compileWat(ctx, name, artifact, out)
	}

	env := b.opts.profileEnv(b.app)
	for i, cmd := range cmds {
		if err := b.runBuildCommand(ctx, name, componentDir, i, cmd, env); err != nil {
			return err
		}
	}

	if !fileExists(artifact) {
		return errors.MissingArtifact(string(name), artifact)
	}
	current, err := IsUpToDate(b.opts.Force, []string{artifact}, []string{out})
	if err != nil {
		return err
	}
	if current {
		return nil
	}
	return copyFile(artifact, out)
}

// compileWat is the built-in fallback for components whose source is a .wat
// file and which declare no build commands.
func (b *Builder) compileWat(ctx *Context, name appbuild.ComponentName, source, out string) error {
	marker, err := NewTaskResultMarker(b.layout.MarkerDir(), "componentize-wat",
		string(name)+"\x00"+b.opts.Profile)
	if err != nil {
		return err
	}
	current, err := IsUpToDate(b.opts.Force, []string{source}, []string{out})
	if err != nil {
		return err
	}
	if current && marker.IsUpToDate() {
		ctx.Debug("component binary up to date", zap.String("component", string(name)))
		return nil
	}

	ctx.Info("compiling wat source", zap.String("component", string(name)))
	return marker.Run(func() error {
		src, err := os.ReadFile(source)
		if err != nil {
			return errors.IO("read", source, err)
		}
		bin, err := wat.Compile(string(src))
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return errors.IO("create dir", filepath.Dir(out), err)
		}
		if err := os.WriteFile(out, bin, 0o644); err != nil {
			return errors.IO("write", out, err)
		}
		return nil
	})
}

func (b *Builder) runBuildCommand(ctx *Context, name appbuild.ComponentName, componentDir string, index int, cmd appbuild.BuildCommand, env map[string]string) error {
	dir := componentDir
	if cmd.Dir != "" {
		dir = filepath.Join(componentDir, cmd.Dir)
	}

	marker, err := NewTaskResultMarker(b.layout.MarkerDir(), "componentize-cmd",
		string(name)+"\x00"+b.opts.Profile+"\x00"+strings.Join([]string{cmd.Command, dir}, "\x00"))
	if err != nil {
		return err
	}
	sources, err := ExpandGlobs(dir, cmd.Sources)
	if err != nil {
		return err
	}
	targets, err := ExpandGlobs(dir, cmd.Targets)
	if err != nil {
		return err
	}
	current, err := IsUpToDate(b.opts.Force, sources, targets)
	if err != nil {
		return err
	}
	if current && marker.IsUpToDate() {
		ctx.Debug("build command up to date",
			zap.String("component", string(name)),
			zap.Int("command", index))
		return nil
	}

	ctx.Info("running build command",
		zap.String("component", string(name)),
		zap.String("command", cmd.Command))
	return marker.Run(func() error {
		return RunCommand(ctx, name, dir, cmd.Command, env)
	})
}

func (o Options) profileEnv(app *appbuild.Application) map[string]string {
	return app.Profiles[o.Profile]
}

// LinkRpc: compose each selected component's binary with the binaries its
// static edges require into a link container; components with no composable
// dependencies are copied through unchanged.
func (b *Builder) linkRpc(ctx *Context) error {
	resolved, err := b.ensureResolved()
	if err != nil {
		return err
	}
	g := &errgroup.Group{}
	for _, name := range b.selected() {
		name := name
		fork := ctx.Fork()
		g.Go(func() error {
			if b.isFailed(name) {
				return nil
			}
			if err := b.linkOne(fork, resolved, name); err != nil {
				fork.Error("link failed",
					zap.String("component", string(name)), zap.Error(err))
				b.markFailed(name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// composedDependency is one binary that must be linked into the dependent.
type composedDependency struct {
	target appbuild.ComponentName
	path   string
}

// composedDependencies lists the binaries LinkRpc must embed: static
// wasm-rpc clients and plain wasm library binaries. Dynamic wasm-rpc edges
// resolve at runtime and contribute nothing here.
func (b *Builder) composedDependencies(name appbuild.ComponentName) []composedDependency {
	seen := map[appbuild.ComponentName]bool{}
	var out []composedDependency
	for _, dep := range b.app.Component(name).Dependencies {
		if seen[dep.Target] || b.app.Component(dep.Target) == nil {
			continue
		}
		switch dep.Type {
		case appbuild.DependencyStaticWasmRpc:
			out = append(out, composedDependency{dep.Target, b.layout.ClientWasm(dep.Target)})
		case appbuild.DependencyWasm:
			out = append(out, composedDependency{dep.Target, b.layout.ComponentWasm(dep.Target)})
		default:
			continue
		}
		seen[dep.Target] = true
	}
	sort.Slice(out, func(i, j int) bool { return out[i].target < out[j].target })
	return out
}

func (b *Builder) linkOne(ctx *Context, resolved *witresolve.ResolvedApplication, name appbuild.ComponentName) error {
	rootBin := b.layout.ComponentWasm(name)
	out := b.layout.LinkedWasm(name)
	deps := b.composedDependencies(name)

	sources := []string{rootBin}
	for _, dep := range deps {
		sources = append(sources, dep.path)
	}

	marker, err := NewTaskResultMarker(b.layout.MarkerDir(), "link-rpc",
		string(name)+"\x00"+b.opts.Profile)
	if err != nil {
		return err
	}
	current, err := IsUpToDate(b.opts.Force, sources, []string{out})
	if err != nil {
		return err
	}
	if current && marker.IsUpToDate() {
		ctx.Debug("linked binary up to date", zap.String("component", string(name)))
		return nil
	}

	return marker.Run(func() error {
		if !fileExists(rootBin) {
			return errors.MissingArtifact(string(name), rootBin)
		}
		if len(deps) == 0 {
			ctx.Info("no static dependencies, copying through",
				zap.String("component", string(name)))
			return copyFile(rootBin, out)
		}

		var modules [][]byte
		var namespaces []string
		for _, dep := range deps {
			bin, err := os.ReadFile(dep.path)
			if err != nil {
				return errors.MissingArtifact(string(dep.target), dep.path)
			}
			modules = append(modules, bin)
			namespaces = append(namespaces, b.packageNamespace(resolved, dep.target))
		}
		root, err := os.ReadFile(rootBin)
		if err != nil {
			return errors.IO("read", rootBin, err)
		}
		modules = append(modules, root)
		namespaces = append(namespaces, b.packageNamespace(resolved, name))

		ctx.Info("linking",
			zap.String("component", string(name)),
			zap.Int("dependencies", len(deps)))
		container, err := wasm.BuildLinkContainer(modules, namespaces)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return errors.IO("create dir", filepath.Dir(out), err)
		}
		if err := os.WriteFile(out, container, 0o644); err != nil {
			return errors.IO("write", out, err)
		}
		return nil
	})
}

// packageNamespace is the name a component's exports are registered under
// at instantiation time: its root package's unversioned name.
func (b *Builder) packageNamespace(resolved *witresolve.ResolvedApplication, name appbuild.ComponentName) string {
	if rc := resolved.Component(name); rc != nil {
		return rc.Main.Name.Unversioned()
	}
	return string(name)
}

// AddMetadata: stamp each linked binary with its root package identity.
// Stamping appends a custom section, so an already-stamped artifact is
// detected by reading the section back rather than by timestamps.
func (b *Builder) addMetadata(ctx *Context) error {
	resolved, err := b.ensureResolved()
	if err != nil {
		return err
	}
	for _, name := range b.selected() {
		if b.isFailed(name) {
			continue
		}
		if err := b.stampOne(ctx, resolved, name); err != nil {
			ctx.Error("metadata stamp failed",
				zap.String("component", string(name)), zap.Error(err))
			b.markFailed(name, err)
		}
	}
	return nil
}

func (b *Builder) stampOne(ctx *Context, resolved *witresolve.ResolvedApplication, name appbuild.ComponentName) error {
	path := b.layout.LinkedWasm(name)

	meta := wasm.Metadata{Package: string(name)}
	if rc := resolved.Component(name); rc != nil {
		meta.Package = rc.Main.Name.Unversioned()
		if rc.Main.Name.Version != nil {
			meta.Version = rc.Main.Name.Version.String()
		}
	}

	marker, err := NewTaskResultMarker(b.layout.MarkerDir(), "add-metadata",
		string(name)+"\x00"+b.opts.Profile)
	if err != nil {
		return err
	}
	return marker.Run(func() error {
		bin, err := os.ReadFile(path)
		if err != nil {
			return errors.MissingArtifact(string(name), path)
		}
		if existing, found, _ := wasm.ReadMetadata(bin); found && existing == meta && !b.opts.Force {
			ctx.Debug("metadata up to date", zap.String("component", string(name)))
			return nil
		}
		stamped, err := wasm.AddMetadata(bin, meta)
		if err != nil {
			return err
		}
		ctx.Info("stamping metadata",
			zap.String("component", string(name)),
			zap.String("package", meta.Package))
		if err := os.WriteFile(path, stamped, 0o644); err != nil {
			return errors.IO("write", path, err)
		}
		return nil
	})
}
