package witresolve

import (
	"sort"

	appbuild "github.com/wippyai/wasm-appbuild"
	"github.com/wippyai/wasm-appbuild/wit"
)

// componentOrder computes the build order over the application's declared
// dependency edges: a component never precedes one of its non-circular
// dependencies. Components within a cyclic group cannot satisfy that, so
// the cycle is broken deterministically by lexical component-name order.
func componentOrder(app *appbuild.Application) []appbuild.ComponentName {
	names := app.ComponentNames()

	// Kahn's algorithm, always picking the lexically smallest ready node.
	// When nothing is ready (a cycle), the lexically smallest remaining
	// node is forced out, which both breaks the cycle and keeps the order
	// deterministic.
	waiting := map[appbuild.ComponentName]map[appbuild.ComponentName]bool{}
	for _, name := range names {
		deps := map[appbuild.ComponentName]bool{}
		for _, d := range app.Components[name].Dependencies {
			if d.Target != name && app.Components[d.Target] != nil {
				deps[d.Target] = true
			}
		}
		waiting[name] = deps
	}

	var order []appbuild.ComponentName
	done := map[appbuild.ComponentName]bool{}
	for len(order) < len(names) {
		picked := appbuild.ComponentName("")
		forced := appbuild.ComponentName("")
		for _, name := range names {
			if done[name] {
				continue
			}
			if forced == "" {
				forced = name
			}
			ready := true
			for dep := range waiting[name] {
				if !done[dep] {
					ready = false
					break
				}
			}
			if ready {
				picked = name
				break
			}
		}
		if picked == "" {
			picked = forced
		}
		done[picked] = true
		order = append(order, picked)
	}
	return order
}

// ComponentOrder returns the topological build order of components by their
// dependency edges. Cyclic groups are broken by lexical name order.
func (ra *ResolvedApplication) ComponentOrder() []appbuild.ComponentName {
	out := make([]appbuild.ComponentName, len(ra.order))
	copy(out, ra.order)
	return out
}

// Component returns the named resolved component or nil.
func (ra *ResolvedApplication) Component(name appbuild.ComponentName) *ResolvedComponent {
	return ra.components[name]
}

// ComponentNames returns all resolved component names in lexical order.
func (ra *ResolvedApplication) ComponentNames() []appbuild.ComponentName {
	names := make([]appbuild.ComponentName, 0, len(ra.components))
	for name := range ra.components {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// MissingGenericSourcePackageDeps returns the generic packages a component
// references but does not vendor under deps/. The orchestrator copies these
// from the embedded standard WIT before the component's package resolves.
func (ra *ResolvedApplication) MissingGenericSourcePackageDeps(name appbuild.ComponentName) []wit.PackageName {
	rc := ra.components[name]
	if rc == nil {
		return nil
	}
	out := make([]wit.PackageName, len(rc.MissingGeneric))
	copy(out, rc.MissingGeneric)
	return out
}

// ComponentExportsPackageDeps returns referenced packages that are exported
// by other components, paired with the owning component.
func (ra *ResolvedApplication) ComponentExportsPackageDeps(name appbuild.ComponentName) []ExportDep {
	rc := ra.components[name]
	if rc == nil {
		return nil
	}
	out := make([]ExportDep, len(rc.ExportDeps))
	copy(out, rc.ExportDeps)
	return out
}
