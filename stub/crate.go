package stub

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wippyai/wasm-appbuild/errors"
)

// EmitCrateSkeleton writes a minimal cargo-style implementation crate for a
// generated client under dir: a Cargo.toml referencing the client WIT root
// and a src/lib.rs stub that performs the remote invocation through the
// wasm-rpc host resource. Existing files are left untouched so user edits
// survive regeneration; only missing files are created.
func EmitCrateSkeleton(dir, witRoot string, client *ClientPackage) error {
	if err := os.MkdirAll(filepath.Join(dir, "src"), 0o755); err != nil {
		return errors.IO("create crate dir", dir, err)
	}

	crateName := strings.ReplaceAll(client.Name.Namespace+"-"+client.Name.Name, "_", "-")
	version := "0.0.1"
	if client.Name.Version != nil {
		version = client.Name.Version.String()
	}

	cargoPath := filepath.Join(dir, "Cargo.toml")
	if _, err := os.Stat(cargoPath); os.IsNotExist(err) {
		rel, err := filepath.Rel(dir, witRoot)
		if err != nil {
			rel = witRoot
		}
		cargo := fmt.Sprintf(`[package]
name = %q
version = %q
edition = "2021"

[lib]
crate-type = ["cdylib"]

[package.metadata.component]
package = %q

[package.metadata.component.target]
path = %q
`, crateName, version, client.Name.Unversioned(), filepath.ToSlash(rel))
		if err := os.WriteFile(cargoPath, []byte(cargo), 0o644); err != nil {
			return errors.IO("write Cargo.toml", cargoPath, err)
		}
	}

	libPath := filepath.Join(dir, "src", "lib.rs")
	if _, err := os.Stat(libPath); os.IsNotExist(err) {
		lib := fmt.Sprintf(`// Client implementation for %s.
// Generated once; edit freely, regeneration will not overwrite this file.

mod bindings;

struct Component;

// Each stub-api resource method forwards its call through wasm:rpc,
// blocking variants via invoke-and-await, async variants by returning the
// future-result resource backed by the pending invocation.

bindings::export!(Component with_types_in bindings);
`, client.Name)
		if err := os.WriteFile(libPath, []byte(lib), 0o644); err != nil {
			return errors.IO("write lib.rs", libPath, err)
		}
	}

	return nil
}
