// SPDX-License-Identifier: MPL-2.0

package compile

import (
	"path/filepath"
	"regexp"
	"strings"

	"podbox/pkg/envfile"
)

// Invocation is the result of resolving an environment: everything the
// launcher needs to start the container.
type Invocation struct {
	// Name is the environment name.
	Name string
	// RuntimeArgs are the flags placed between "run" and the image.
	RuntimeArgs []string
	// CommandArgs are the container command and its arguments.
	CommandArgs []string
	// Warnings are the validator's auto-repair notices.
	Warnings []string
}

// interactiveShells are commands that read from the terminal. When the
// resolved command ends in one, CLI arguments are not appended to it.
var interactiveShells = map[string]bool{
	"/bin/bash": true,
	"/bin/sh":   true,
	"/bin/zsh":  true,
}

var portPlaceholder = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Resolve compiles a fully inheritance-resolved environment and the CLI
// arguments into a container invocation. The environment is mutated:
// the validator may flip capabilities and resolution flags on it.
func Resolve(env *envfile.Environment, cliArgs []string, host Host) (*Invocation, error) {
	ctx := NewExecutionContext()
	scope := NewScope(ctx, env, host)

	for _, cap := range Catalogue() {
		if err := cap.Func(env.HasCapability(cap.Name), scope); err != nil {
			return nil, err
		}
	}

	if err := applyEnvironment(scope); err != nil {
		return nil, err
	}

	commandArgs, err := assembleCommand(scope, cliArgs)
	if err != nil {
		return nil, err
	}

	if err := validate(scope); err != nil {
		return nil, err
	}

	// The runtime refuses to join another container's netns without
	// also joining its userns when a uid mapping is in effect.
	if ctx.UIDMap {
		if ns := ctx.Namespace("network"); strings.HasPrefix(ns, "container:") {
			ctx.AppendArgs("--userns", ns)
		}
	}

	return &Invocation{
		Name:        env.Name,
		RuntimeArgs: ctx.Args(),
		CommandArgs: commandArgs,
		Warnings:    scope.Warnings(),
	}, nil
}

// applyEnvironment merges the residual environment fields, the ones not
// owned by a capability handler, into the context.
func applyEnvironment(s *Scope) error {
	env, ctx := s.Env, s.Ctx

	ctx.Hostname = env.Name
	ctx.DNS = env.DNS
	ctx.ShmSize = env.ShmSize

	if env.Home != "" {
		ctx.Mount(ctx.Home, BindMount(expandUser(env.Home, s.Host.HomeDir())))
	}

	ctx.AddSyscap(env.Syscaps...)
	for name, value := range env.Environ {
		ctx.SetEnv(name, value)
	}

	for containerPath, hostPath := range env.Mounts {
		ctx.Mount(
			joinUnder(ctx.Home, containerPath),
			BindMount(expandUser(hostPath, s.Host.HomeDir())),
		)
	}

	for _, port := range env.Ports {
		published, err := interpolatePort(port, ctx.Environ)
		if err != nil {
			return err
		}
		ctx.AppendArgs("--publish=" + published)
	}

	return nil
}

// interpolatePort substitutes "{NAME}" placeholders from the resolved
// environ map.
func interpolatePort(port string, environ map[string]string) (string, error) {
	var missing string
	out := portPlaceholder.ReplaceAllStringFunc(port, func(match string) string {
		name := match[1 : len(match)-1]
		value, ok := environ[name]
		if !ok {
			if missing == "" {
				missing = name
			}
			return match
		}
		return value
	})
	if missing != "" {
		return "", &PortInterpolationError{Port: port, Variable: missing}
	}
	return out, nil
}

// assembleCommand renders the command template against the CLI
// arguments. "$1" takes a single file argument, mounted at /tmp under
// its base name. "$@" takes every remaining argument. Arguments not
// consumed by a token are appended after the static args, unless the
// command ends in an interactive shell.
func assembleCommand(s *Scope, cliArgs []string) ([]string, error) {
	env := s.Env

	var fileArg string
	if containsToken(env.Command, "$1") && len(cliArgs) > 0 {
		if len(cliArgs) > 1 {
			return nil, &MultipleFileArgsError{Args: cliArgs}
		}
		path := expandUser(cliArgs[0], s.Host.HomeDir())
		if !strings.HasPrefix(path, "/") {
			path = s.Host.WorkDir() + "/" + path
		}
		if !s.Host.IsFile(path) {
			return nil, &FileArgError{Path: path, Err: ErrFileArg}
		}
		fileArg = path
		s.Ctx.Mount("/tmp/"+filepath.Base(path), BindMount(path))
		cliArgs = nil
	}

	var commandArgs []string
	for _, token := range env.Command {
		switch {
		case token == "$@" && len(cliArgs) > 0:
			commandArgs = append(commandArgs, cliArgs...)
			cliArgs = nil
		case token == "$1" && fileArg != "":
			commandArgs = append(commandArgs, "/tmp/"+filepath.Base(fileArg))
		default:
			commandArgs = append(commandArgs, token)
		}
	}

	if len(commandArgs) == 0 || !interactiveShells[commandArgs[len(commandArgs)-1]] {
		commandArgs = append(commandArgs, env.Args...)
		commandArgs = append(commandArgs, cliArgs...)
	}

	return commandArgs, nil
}

func containsToken(command []string, token string) bool {
	for _, t := range command {
		if t == token {
			return true
		}
	}
	return false
}
