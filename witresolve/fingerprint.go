package witresolve

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"strings"

	appbuild "github.com/wippyai/wasm-appbuild"
	"github.com/wippyai/wasm-appbuild/errors"
	"github.com/wippyai/wasm-appbuild/wit"
)

// DepGraphFingerprint hashes a component's resolved dependency surface: the
// sorted set of dependency edges (target plus type) and, for each wasm
// dependency target, the encoded text of its main package. Any change to the
// dependency set or to a dependency's own interface changes the fingerprint.
func (ra *ResolvedApplication) DepGraphFingerprint(name appbuild.ComponentName) string {
	c := ra.app.Component(name)
	if c == nil {
		return ""
	}

	edges := make([]string, 0, len(c.Dependencies))
	for _, d := range c.Dependencies {
		edges = append(edges, string(d.Target)+"\x00"+string(d.Type))
	}
	sort.Strings(edges)

	h := sha256.New()
	for _, e := range edges {
		h.Write([]byte(e))
		h.Write([]byte{'\n'})
	}
	for _, d := range dedupTargets(c.Dependencies) {
		if rc := ra.components[d]; rc != nil {
			h.Write([]byte(rc.Main.Name.String()))
			h.Write([]byte{0})
			h.Write(wit.Encode(rc.Main))
			h.Write([]byte{0})
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// IsDepGraphUpToDate compares the component's current fingerprint against
// the one recorded at fingerprintPath by the last successful generation.
// Anything changed (dependency added or removed, or a dependency's own
// interface changed) reports false, forcing regeneration.
func (ra *ResolvedApplication) IsDepGraphUpToDate(name appbuild.ComponentName, fingerprintPath string) bool {
	recorded, err := os.ReadFile(fingerprintPath)
	if err != nil {
		return false
	}
	current := ra.DepGraphFingerprint(name)
	return current != "" && strings.TrimSpace(string(recorded)) == current
}

// RecordDepGraphFingerprint persists the component's current fingerprint,
// called after a successful generation.
func (ra *ResolvedApplication) RecordDepGraphFingerprint(name appbuild.ComponentName, fingerprintPath string) error {
	fp := ra.DepGraphFingerprint(name)
	if fp == "" {
		return errors.New(errors.PhaseResolve, errors.KindNotFound).
			Package(string(name)).
			Detail("cannot fingerprint unknown component").
			Build()
	}
	if err := os.MkdirAll(filepath.Dir(fingerprintPath), 0o755); err != nil {
		return errors.IO("create fingerprint dir", filepath.Dir(fingerprintPath), err)
	}
	if err := os.WriteFile(fingerprintPath, []byte(fp+"\n"), 0o644); err != nil {
		return errors.IO("write fingerprint", fingerprintPath, err)
	}
	return nil
}

func dedupTargets(deps []appbuild.Dependency) []appbuild.ComponentName {
	seen := map[appbuild.ComponentName]bool{}
	var out []appbuild.ComponentName
	for _, d := range deps {
		if !seen[d.Target] {
			seen[d.Target] = true
			out = append(out, d.Target)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
