package appbuild

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/wasm-appbuild/errors"
)

// ComponentName identifies a component. It is an opaque, case-sensitive
// string and acts as the node id in the dependency graph.
type ComponentName string

// ComponentType classifies a component's runtime role.
type ComponentType string

const (
	ComponentDurable   ComponentType = "durable"
	ComponentEphemeral ComponentType = "ephemeral"
	ComponentLibrary   ComponentType = "library"
)

// DependencyType classifies an edge between two components.
type DependencyType string

const (
	// DependencyStaticWasmRpc requires the target's compiled client binary
	// to be composed into the dependent at link time.
	DependencyStaticWasmRpc DependencyType = "static-wasm-rpc"
	// DependencyDynamicWasmRpc only requires the target's client WIT;
	// resolution happens at runtime.
	DependencyDynamicWasmRpc DependencyType = "dynamic-wasm-rpc"
	// DependencyWasm is a plain library dependency: WIT-level import, no
	// client generation.
	DependencyWasm DependencyType = "wasm"
)

// IsWasmRpc reports whether the edge requires client stub generation.
func (t DependencyType) IsWasmRpc() bool {
	return t == DependencyStaticWasmRpc || t == DependencyDynamicWasmRpc
}

// Dependency is one declared edge from a component to a target component.
type Dependency struct {
	Target ComponentName  `yaml:"target"`
	Type   DependencyType `yaml:"type"`
}

// BuildCommand is one external build step for a component. The command is an
// opaque shell-style string; Sources and Targets are doublestar globs used
// for staleness checks, relative to Dir (or the component source dir when
// Dir is empty).
type BuildCommand struct {
	Command string   `yaml:"command"`
	Dir     string   `yaml:"dir,omitempty"`
	Sources []string `yaml:"sources,omitempty"`
	Targets []string `yaml:"targets,omitempty"`
}

// Component is one buildable unit of the application.
type Component struct {
	Name      ComponentName `yaml:"-"`
	Type      ComponentType `yaml:"type"`
	SourceWit string        `yaml:"source-wit"`
	// SourceWasm names the artifact the build commands produce, relative to
	// the component directory. For .wat sources with no build commands the
	// built-in compiler produces it instead.
	SourceWasm   string                    `yaml:"source-wasm"`
	Dependencies []Dependency              `yaml:"dependencies,omitempty"`
	Build        map[string][]BuildCommand `yaml:"build,omitempty"` // profile -> commands
}

// BuildCommands returns the command list for the given profile, falling back
// to the "default" profile when the named one is absent.
func (c *Component) BuildCommands(profile string) []BuildCommand {
	if cmds, ok := c.Build[profile]; ok {
		return cmds
	}
	return c.Build["default"]
}

// Application is the read-only graph description consumed by the build
// engine. It is immutable after LoadApplication/Validate.
type Application struct {
	Name       string                       `yaml:"name"`
	Components map[ComponentName]*Component `yaml:"components"`
	Profiles   map[string]map[string]string `yaml:"profiles,omitempty"` // profile -> env overrides
	Dir        string                       `yaml:"-"`                  // directory containing the manifest
}

// ComponentNames returns all component names in lexical order.
func (a *Application) ComponentNames() []ComponentName {
	names := make([]ComponentName, 0, len(a.Components))
	for name := range a.Components {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Component returns the named component or nil.
func (a *Application) Component(name ComponentName) *Component {
	return a.Components[name]
}

// Validate checks the dependency graph for structural and type errors.
// All problems are collected and returned as one aggregate.
func (a *Application) Validate() error {
	var verr errors.ValidationErrors

	for _, name := range a.ComponentNames() {
		c := a.Components[name]
		switch c.Type {
		case ComponentDurable, ComponentEphemeral, ComponentLibrary:
		default:
			verr.Add(errors.New(errors.PhaseResolve, errors.KindInvalidInput).
				Package(string(name)).
				Detail("unknown component type %q", c.Type).
				Build())
		}
		if c.SourceWit == "" {
			verr.Add(errors.New(errors.PhaseResolve, errors.KindInvalidInput).
				Package(string(name)).
				Detail("component has no source-wit directory").
				Build())
		}

		for _, dep := range c.Dependencies {
			target, ok := a.Components[dep.Target]
			if !ok {
				verr.Add(errors.New(errors.PhaseResolve, errors.KindNotFound).
					Package(string(name)).
					Detail("dependency targets unknown component %q", dep.Target).
					Build())
				continue
			}
			switch dep.Type {
			case DependencyStaticWasmRpc, DependencyDynamicWasmRpc:
				if target.Type == ComponentLibrary {
					verr.Add(errors.New(errors.PhaseResolve, errors.KindDependencyType).
						Package(string(name)).
						Detail("%s dependency targets library component %q; library components cannot serve wasm-rpc", dep.Type, dep.Target).
						Build())
				}
			case DependencyWasm:
				if target.Type != ComponentLibrary {
					verr.Add(errors.New(errors.PhaseResolve, errors.KindDependencyType).
						Package(string(name)).
						Detail("wasm dependency targets %s component %q; plain wasm dependencies must target library components", target.Type, dep.Target).
						Build())
				}
			default:
				verr.Add(errors.New(errors.PhaseResolve, errors.KindInvalidInput).
					Package(string(name)).
					Detail("unknown dependency type %q on edge to %q", dep.Type, dep.Target).
					Build())
			}
		}
	}

	return verr.Err()
}

// LoadApplication reads and validates an application manifest.
func LoadApplication(path string) (*Application, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.IO("read manifest", path, err)
	}
	app, err := ParseApplication(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	app.Dir = dirOf(path)
	if err := app.Validate(); err != nil {
		return nil, err
	}
	return app, nil
}

// ParseApplication decodes a manifest from YAML. Component names are filled
// in from their map keys.
func ParseApplication(data []byte) (*Application, error) {
	var app Application
	if err := yaml.Unmarshal(data, &app); err != nil {
		return nil, errors.New(errors.PhaseResolve, errors.KindParse).
			Detail("invalid application manifest: %v", err).
			Cause(err).
			Build()
	}
	for name, c := range app.Components {
		if c == nil {
			c = &Component{}
			app.Components[name] = c
		}
		c.Name = name
	}
	return &app, nil
}
