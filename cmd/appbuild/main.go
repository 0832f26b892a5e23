package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	appbuild "github.com/wippyai/wasm-appbuild"
	"github.com/wippyai/wasm-appbuild/build"
	"github.com/wippyai/wasm-appbuild/errors"
	"github.com/wippyai/wasm-appbuild/invoke"
	"github.com/wippyai/wasm-appbuild/stub"
	"github.com/wippyai/wasm-appbuild/wasm"
	"github.com/wippyai/wasm-appbuild/witmerge"
	"github.com/wippyai/wasm-appbuild/witresolve"
)

var (
	errorTagStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B"))

	warningTagStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFD700"))
)

func main() {
	var (
		appFile     = flag.String("app", "application.yaml", "Path to the application manifest")
		profile     = flag.String("profile", "default", "Build profile")
		steps       = flag.String("step", "", "Steps to run (comma-separated, default all)")
		components  = flag.String("component", "", "Components to build (comma-separated, default all)")
		force       = flag.Bool("force", false, "Bypass up-to-date checks")
		invokeSpec  = flag.String("invoke", "", "Call a function on a linked component: <component>:<function>")
		invokeArgs  = flag.String("arg", "", "Arguments for -invoke (comma-separated integers)")
		interactive = flag.Bool("i", false, "Interactive build monitor")
		verbose     = flag.Bool("v", false, "Verbose logging")
	)
	flag.Parse()

	if flag.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "Usage: appbuild [-app application.yaml] [-profile name] [-step s1,s2] [-component c1,c2] [-force]")
		fmt.Fprintln(os.Stderr, "       appbuild -invoke <component>:<function> [-arg 1,2]")
		fmt.Fprintln(os.Stderr, "       appbuild -i  (interactive build monitor)")
		os.Exit(1)
	}

	if err := run(*appFile, *profile, *steps, *components, *invokeSpec, *invokeArgs, *force, *interactive, *verbose); err != nil {
		printDiagnostics(err)
		os.Exit(1)
	}
}

func run(appFile, profile, stepsStr, componentsStr, invokeSpec, invokeArgs string, force, interactive, verbose bool) error {
	if err := godotenv.Load(); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	log, err := newLogger(verbose)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	app, err := appbuild.LoadApplication(appFile)
	if err != nil {
		return err
	}
	layout := appbuild.NewLayout(app, profile)

	if invokeSpec != "" {
		wireLoggers(log)
		return invokeFunction(layout, invokeSpec, invokeArgs)
	}

	opts := build.Options{
		Profile: profile,
		Force:   force,
	}
	if stepsStr != "" {
		for _, name := range strings.Split(stepsStr, ",") {
			step, err := build.ParseStep(strings.TrimSpace(name))
			if err != nil {
				return err
			}
			opts.Steps = append(opts.Steps, step)
		}
	}
	if componentsStr != "" {
		for _, name := range strings.Split(componentsStr, ",") {
			opts.Components = append(opts.Components, appbuild.ComponentName(strings.TrimSpace(name)))
		}
	}

	if interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "warning: stdout is not a terminal, running plain build")
		} else {
			return runInteractive(app, layout, opts)
		}
	}

	wireLoggers(log)
	builder, err := build.New(app, layout, opts)
	if err != nil {
		return err
	}
	return builder.Run(build.NewContext(context.Background(), log.Named("build")))
}

// newLogger builds a console logger writing to stderr so build command
// output on stdout stays clean.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	} else {
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return cfg.Build()
}

func wireLoggers(log *zap.Logger) {
	witresolve.SetLogger(log.Named("witresolve"))
	witmerge.SetLogger(log.Named("witmerge"))
	stub.SetLogger(log.Named("stub"))
	wasm.SetLogger(log.Named("wasm"))
	invoke.SetLogger(log.Named("invoke"))
}

func invokeFunction(layout appbuild.Layout, spec, argsStr string) error {
	component, fn, ok := strings.Cut(spec, ":")
	if !ok || component == "" || fn == "" {
		return fmt.Errorf("invalid -invoke %q, expected <component>:<function>", spec)
	}

	var args []uint64
	if argsStr != "" {
		for _, raw := range strings.Split(argsStr, ",") {
			v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid -arg %q: %w", raw, err)
			}
			args = append(args, v)
		}
	}

	ctx := context.Background()
	artifact, err := os.ReadFile(layout.LinkedWasm(appbuild.ComponentName(component)))
	if err != nil {
		return fmt.Errorf("read linked artifact: %w", err)
	}

	runner := invoke.NewRunner(ctx)
	defer runner.Close(ctx)

	instance, err := runner.Load(ctx, artifact)
	if err != nil {
		return err
	}
	results, err := instance.Call(ctx, fn, args...)
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Println(r)
	}
	return nil
}

// printDiagnostics renders an aggregated validation report as tagged lines,
// everything else as a single error line.
func printDiagnostics(err error) {
	var verr *errors.ValidationErrors
	if stderrors.As(err, &verr) {
		for _, d := range verr.Diagnostics() {
			tag := errorTagStyle.Render("error:")
			if d.Severity == errors.SeverityWarning {
				tag = warningTagStyle.Render("warning:")
			}
			fmt.Fprintf(os.Stderr, "%s %v\n", tag, d.Err)
		}
		return
	}
	fmt.Fprintf(os.Stderr, "%s %v\n", errorTagStyle.Render("error:"), err)
}
