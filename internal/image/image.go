// SPDX-License-Identifier: MPL-2.0

package image

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"podbox/internal/container"
	"podbox/pkg/envfile"
)

// ErrNoImage is returned when an environment declares neither an image
// nor a rootfs.
var ErrNoImage = errors.New("environment has no image or rootfs")

// NoImageError carries the environment name for context.
type NoImageError struct {
	Environment string
}

// Error implements the error interface.
func (e *NoImageError) Error() string {
	return fmt.Sprintf("%s: environment has no image or rootfs", e.Environment)
}

// Unwrap returns ErrNoImage for errors.Is detection.
func (e *NoImageError) Unwrap() error { return ErrNoImage }

// Manager derives and builds environment images.
type Manager struct {
	engine container.Engine

	// Output receives build progress. Defaults to os.Stderr.
	Output *os.File
}

// NewManager returns a manager building through the given engine.
func NewManager(engine container.Engine) *Manager {
	return &Manager{engine: engine, Output: os.Stderr}
}

// Tag returns the local tag for a managed environment image.
func Tag(envName string) string {
	return "localhost/podbox/" + envName
}

// Reference returns the image reference to run. An unmanaged
// environment runs its declared image (or rootfs) directly; a managed
// one runs the locally built tag.
func Reference(env *envfile.Environment) (string, error) {
	if env.ManageImage {
		return Tag(env.Name), nil
	}
	if env.Image != "" {
		return env.Image, nil
	}
	if env.Rootfs != "" {
		return env.Rootfs, nil
	}
	return "", &NoImageError{Environment: env.Name}
}

// Containerfile derives the build recipe for a managed environment:
// the declared base image, one package install layer, then one RUN
// layer per customization command.
func Containerfile(env *envfile.Environment) (string, error) {
	if env.Image == "" {
		return "", &NoImageError{Environment: env.Name}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "FROM %s\n", env.Image)

	if len(env.Packages) > 0 {
		quoted := make([]string, 0, len(env.Packages))
		for _, pkg := range dedupSorted(env.Packages) {
			q, err := syntax.Quote(pkg, syntax.LangBash)
			if err != nil {
				return "", fmt.Errorf("package name %q: %w", pkg, err)
			}
			quoted = append(quoted, q)
		}
		fmt.Fprintf(&b, "RUN %s %s\n", installCommand(env.Image), strings.Join(quoted, " "))
	}

	for _, command := range env.ImageCustomizations {
		fmt.Fprintf(&b, "RUN %s\n", command)
	}

	return b.String(), nil
}

// installCommand picks the package install invocation from the base
// image name. Unrecognized images get dnf, the tool of the default
// fedora base.
func installCommand(image string) string {
	switch {
	case strings.Contains(image, "debian"), strings.Contains(image, "ubuntu"):
		return "apt-get update && apt-get install -y"
	case strings.Contains(image, "alpine"):
		return "apk add --no-cache"
	default:
		return "dnf install -y"
	}
}

// Ensure makes the environment's image runnable: a no-op for unmanaged
// environments, otherwise a build of the derived Containerfile. The
// build is skipped when the tag already exists, unless the environment
// auto-updates. Auto-updating builds bypass the layer cache so package
// layers are refreshed.
func (m *Manager) Ensure(ctx context.Context, env *envfile.Environment) error {
	if !env.ManageImage {
		return nil
	}

	tag := Tag(env.Name)
	if !env.AutoUpdate {
		exists, err := m.engine.ImageExists(ctx, tag)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
	}

	content, err := Containerfile(env)
	if err != nil {
		return err
	}

	contextDir, err := os.MkdirTemp("", "podbox-build-")
	if err != nil {
		return fmt.Errorf("failed to create build context: %w", err)
	}
	defer func() { _ = os.RemoveAll(contextDir) }()

	if err := os.WriteFile(filepath.Join(contextDir, "Containerfile"), []byte(content), 0o600); err != nil {
		return fmt.Errorf("failed to write Containerfile: %w", err)
	}

	return m.engine.Build(ctx, container.BuildOptions{
		ContextDir:    contextDir,
		Containerfile: "Containerfile",
		Tag:           tag,
		NoCache:       env.AutoUpdate,
		Stdout:        m.Output,
		Stderr:        m.Output,
	})
}

func dedupSorted(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
