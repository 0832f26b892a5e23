package appbuild

import "path/filepath"

func dirOf(path string) string {
	d := filepath.Dir(path)
	if d == "" {
		return "."
	}
	return d
}

// Layout maps application-level names to concrete filesystem locations under
// the build target directory. All generated directories for distinct
// components are disjoint, which is what makes per-step parallelism safe.
type Layout struct {
	AppDir    string // directory containing the manifest
	TargetDir string // build output root, usually <AppDir>/target
	Profile   string // selected build profile
}

// NewLayout builds the default layout for an application and profile.
func NewLayout(app *Application, profile string) Layout {
	return Layout{
		AppDir:    app.Dir,
		TargetDir: filepath.Join(app.Dir, "target"),
		Profile:   profile,
	}
}

// ComponentDir is the component's source directory.
func (l Layout) ComponentDir(app *Application, name ComponentName) string {
	c := app.Component(name)
	if c == nil {
		return filepath.Join(l.AppDir, string(name))
	}
	return filepath.Join(l.AppDir, filepath.Dir(c.SourceWit))
}

// SourceWitDir is the component's source WIT root.
func (l Layout) SourceWitDir(app *Application, name ComponentName) string {
	c := app.Component(name)
	if c == nil {
		return ""
	}
	return filepath.Join(l.AppDir, c.SourceWit)
}

// BaseWitDir is the profile-independent generated-base-WIT root: source WIT
// plus vendored generic deps plus the extracted exports package.
func (l Layout) BaseWitDir(name ComponentName) string {
	return filepath.Join(l.TargetDir, "generated-wit", "base", string(name))
}

// WitDir is the per-profile generated-WIT root: base WIT plus every merged
// dependency client.
func (l Layout) WitDir(name ComponentName) string {
	return filepath.Join(l.TargetDir, "generated-wit", l.Profile, string(name))
}

// ClientWitDir is where a component's generated client package lives.
func (l Layout) ClientWitDir(name ComponentName) string {
	return filepath.Join(l.TargetDir, "clients", string(name), "wit")
}

// ClientWasm is the compiled client binary for static linking.
func (l Layout) ClientWasm(name ComponentName) string {
	return filepath.Join(l.TargetDir, "clients", string(name), "client.wasm")
}

// ComponentWasm is the componentized (unlinked) build output.
func (l Layout) ComponentWasm(name ComponentName) string {
	return filepath.Join(l.TargetDir, "components", l.Profile, string(name)+".wasm")
}

// LinkedWasm is the final linked, metadata-stamped artifact.
func (l Layout) LinkedWasm(name ComponentName) string {
	return filepath.Join(l.TargetDir, "linked", l.Profile, string(name)+".wasm")
}

// MarkerDir holds task result markers.
func (l Layout) MarkerDir() string {
	return filepath.Join(l.TargetDir, "markers")
}

// DepFingerprintPath records a component's dependency-graph fingerprint from
// its last successful generation.
func (l Layout) DepFingerprintPath(name ComponentName) string {
	return filepath.Join(l.TargetDir, "fingerprints", l.Profile, string(name)+".sha256")
}
