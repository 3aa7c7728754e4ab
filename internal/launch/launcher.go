// SPDX-License-Identifier: MPL-2.0

package launch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"podbox/internal/compile"
	"podbox/internal/config"
	"podbox/internal/container"
	"podbox/internal/image"
	"podbox/internal/issue"
	"podbox/pkg/envfile"
)

type (
	// Launcher runs environments through a container engine.
	Launcher struct {
		set     *envfile.Set
		engine  container.Engine
		images  *image.Manager
		host    compile.Host
		logger  *log.Logger
		runBase string

		stdin  io.Reader
		stdout io.Writer
		stderr io.Writer
	}

	// Option configures a Launcher.
	Option func(*Launcher)
)

// WithHost overrides the host view, for tests.
func WithHost(host compile.Host) Option {
	return func(l *Launcher) { l.host = host }
}

// WithLogger overrides the logger.
func WithLogger(logger *log.Logger) Option {
	return func(l *Launcher) { l.logger = logger }
}

// WithRunBase overrides the base directory for per-run scratch
// directories.
func WithRunBase(dir string) Option {
	return func(l *Launcher) { l.runBase = dir }
}

// WithStdio wires the streams attached to the container.
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(l *Launcher) {
		l.stdin = stdin
		l.stdout = stdout
		l.stderr = stderr
	}
}

// New returns a Launcher over the given environment set and engine.
func New(set *envfile.Set, engine container.Engine, opts ...Option) *Launcher {
	l := &Launcher{
		set:     set,
		engine:  engine,
		images:  image.NewManager(engine),
		host:    compile.NewOSHost(),
		logger:  log.NewWithOptions(os.Stderr, log.Options{Prefix: "podbox"}),
		runBase: config.RunBaseDir(),
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Resolve compiles the named environment into a container invocation.
// The returned environment carries the resolution-side state (managed
// image flag, run directory) the launcher needs afterwards. Validator
// warnings are logged.
func (l *Launcher) Resolve(name string, cliArgs []string) (*envfile.Environment, *compile.Invocation, error) {
	env, err := l.set.Resolve(name)
	if err != nil {
		return nil, nil, issue.WrapWithContext(err, "resolve environment", name)
	}

	if err := l.checkRequires(env); err != nil {
		return nil, nil, err
	}

	if err := l.prepareRunDir(env); err != nil {
		return nil, nil, err
	}

	inv, err := compile.Resolve(env, cliArgs, l.host)
	if err != nil {
		return nil, nil, issue.WrapWithContext(err, "resolve environment", name)
	}

	for _, warning := range inv.Warnings {
		l.logger.Warn(warning)
	}

	return env, inv, nil
}

// checkRequires verifies that every required environment exists and
// resolves, inheritance included. Starting the required peers is the
// caller's business; a dangling reference is an error here.
func (l *Launcher) checkRequires(env *envfile.Environment) error {
	for _, required := range env.Requires {
		if _, err := l.set.Resolve(required); err != nil {
			return issue.NewErrorContext().
				WithOperation("resolve required environment").
				WithResource(required).
				WithSuggestion("Run 'podbox list' to see the available environments").
				Wrap(err).
				BuildError()
		}
	}
	return nil
}

// Run resolves and starts the named environment, blocking until the
// container exits. The container command's exit code is reported in
// the result, not as an error.
func (l *Launcher) Run(ctx context.Context, name string, cliArgs []string) (*container.RunResult, error) {
	env, inv, err := l.Resolve(name, cliArgs)
	if err != nil {
		return nil, err
	}

	if err := l.images.Ensure(ctx, env); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("build image").
			WithResource(image.Tag(env.Name)).
			WithSuggestion("Re-run with --verbose to see the full build output").
			Wrap(err).
			BuildError()
	}

	ref, err := image.Reference(env)
	if err != nil {
		return nil, err
	}

	l.logger.Debug("starting container", "environment", env.Name, "image", ref, "engine", l.engine.Name())

	return l.engine.Run(ctx, container.RunOptions{
		Name:        "podbox-" + env.Name,
		Image:       ref,
		RuntimeArgs: inv.RuntimeArgs,
		Command:     inv.CommandArgs,
		Remove:      true,
		Interactive: env.HasCapability(envfile.CapTerminal),
		Stdin:       l.stdin,
		Stdout:      l.stdout,
		Stderr:      l.stderr,
	})
}

// InstallDesktopEntry renders the environment's desktop entry and
// writes it to the user's application directory. Environments without
// a desktop block are a no-op; the returned path is empty then.
func (l *Launcher) InstallDesktopEntry(name string) (string, error) {
	env, err := l.set.Resolve(name)
	if err != nil {
		return "", issue.WrapWithContext(err, "resolve environment", name)
	}

	entry := compile.NewDesktopEntry(env, l.host)
	if entry == nil {
		return "", nil
	}

	dir := filepath.Join(l.host.HomeDir(), ".local", "share", "applications")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create application directory: %w", err)
	}

	path := filepath.Join(dir, entry.FileName())
	if err := os.WriteFile(path, []byte(entry.Render()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write desktop entry: %w", err)
	}

	l.logger.Info("installed desktop entry", "path", path)
	return path, nil
}
