package wat

import (
	"github.com/wippyai/wasm-appbuild/wat/internal/token"
)

// Compile compiles WAT source into a core module binary.
func Compile(source string) ([]byte, error) {
	tree, err := parseTree(token.Tokenize(source))
	if err != nil {
		return nil, err
	}
	mod, err := parseModule(tree)
	if err != nil {
		return nil, err
	}
	return encode(mod), nil
}
