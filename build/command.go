package build

import (
	"bytes"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	appbuild "github.com/wippyai/wasm-appbuild"
	"github.com/wippyai/wasm-appbuild/errors"
)

// RunCommand executes one external build command for a component. The
// command string is split shell-style and $VAR/${VAR} references are
// expanded from env first, the process environment second. Both output
// streams are captured; a non-zero exit is a hard failure carrying the
// captured stderr.
func RunCommand(ctx *Context, component appbuild.ComponentName, dir, command string, env map[string]string) error {
	expanded := os.Expand(command, func(key string) string {
		if v, ok := env[key]; ok {
			return v
		}
		return os.Getenv(key)
	})

	argv, err := splitCommand(expanded)
	if err != nil {
		return err
	}
	if len(argv) == 0 {
		return errors.New(errors.PhaseBuild, errors.KindInvalidInput).
			Package(string(component)).
			Detail("empty build command").
			Build()
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = os.Environ()
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	ctx.Debug("running build command",
		zap.String("component", string(component)),
		zap.String("command", expanded),
		zap.String("dir", dir))

	if err := cmd.Run(); err != nil {
		code := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		}
		return errors.CommandFailed(string(component), expanded, code, stderr.String())
	}
	if out := strings.TrimSpace(stdout.String()); out != "" {
		ctx.Debug("build command output",
			zap.String("component", string(component)),
			zap.String("stdout", out))
	}
	return nil
}

// splitCommand splits a shell-style command string into argv, honoring
// single quotes, double quotes, and backslash escapes. No subshell is
// involved; quoting exists only so arguments can contain spaces.
func splitCommand(command string) ([]string, error) {
	var argv []string
	var cur strings.Builder
	inWord := false
	quote := rune(0)
	escaped := false

	for _, r := range command {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
			inWord = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inWord = true
		case r == ' ' || r == '\t' || r == '\n':
			if inWord {
				argv = append(argv, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(r)
			inWord = true
		}
	}
	if quote != 0 || escaped {
		return nil, errors.New(errors.PhaseBuild, errors.KindInvalidInput).
			Detail("unterminated quote in command %q", command).
			Build()
	}
	if inWord {
		argv = append(argv, cur.String())
	}
	return argv, nil
}
