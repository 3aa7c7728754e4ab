// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Engine is the interface for container runtime operations.
type Engine interface {
	// Name returns the engine name (podman or docker).
	Name() string
	// Available reports whether the engine can be used on this system.
	Available() bool
	// Version returns the engine version.
	Version(ctx context.Context) (string, error)

	// Build builds an image from a Containerfile.
	Build(ctx context.Context, opts BuildOptions) error
	// Run starts a container with a compiled runtime argument vector.
	Run(ctx context.Context, opts RunOptions) (*RunResult, error)
	// Remove removes a container.
	Remove(ctx context.Context, containerName string, force bool) error
	// ImageExists reports whether an image is present locally.
	ImageExists(ctx context.Context, image string) (bool, error)
	// RemoveImage removes an image.
	RemoveImage(ctx context.Context, image string, force bool) error
}

type (
	// BuildOptions describes an image build.
	BuildOptions struct {
		// ContextDir is the build context directory.
		ContextDir string
		// Containerfile is the path to the Containerfile, relative to
		// ContextDir unless absolute.
		Containerfile string
		// Tag is the image tag.
		Tag string
		// NoCache disables the build cache. Set for auto-updating
		// environments so package layers are refreshed.
		NoCache bool
		// Stdout receives the build output.
		Stdout io.Writer
		// Stderr receives build errors.
		Stderr io.Writer
	}

	// RunOptions describes a container run. RuntimeArgs is the compiled
	// argument vector and is placed verbatim between "run" and the
	// image reference.
	RunOptions struct {
		// Name is the container name.
		Name string
		// Image is the image reference or rootfs to run.
		Image string
		// RuntimeArgs are the compiled runtime flags.
		RuntimeArgs []string
		// Command is the container command and its arguments.
		Command []string
		// Remove deletes the container after exit.
		Remove bool
		// Interactive attaches the run to a pseudo-terminal.
		Interactive bool

		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
	}

	// RunResult is the outcome of a container run. A non-zero exit code
	// from the container command is reported here, not as an error.
	RunResult struct {
		ExitCode int
		Error    error
	}

	// EngineType selects a container engine.
	EngineType string

	// EngineNotAvailableError is returned when no usable engine exists.
	EngineNotAvailableError struct {
		Engine EngineType
		Reason string
	}
)

const (
	EngineTypePodman EngineType = "podman"
	EngineTypeDocker EngineType = "docker"
	// EngineTypeAuto picks the first available engine, podman first.
	EngineTypeAuto EngineType = "auto"
)

var (
	// ErrEngineNotAvailable is the sentinel wrapped by EngineNotAvailableError.
	ErrEngineNotAvailable = errors.New("container engine not available")

	// ErrUnknownEngineType is returned for an unrecognized engine name.
	ErrUnknownEngineType = errors.New("unknown container engine type")
)

// Validate returns an error if the EngineType is not a recognized engine.
func (t EngineType) Validate() error {
	switch t {
	case EngineTypePodman, EngineTypeDocker, EngineTypeAuto, "":
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEngineType, string(t))
	}
}

// String returns the string representation of the EngineType.
func (t EngineType) String() string { return string(t) }

// Error implements the error interface.
func (e *EngineNotAvailableError) Error() string {
	return fmt.Sprintf("container engine %q is not available: %s", e.Engine, e.Reason)
}

// Unwrap returns ErrEngineNotAvailable for errors.Is detection.
func (e *EngineNotAvailableError) Unwrap() error { return ErrEngineNotAvailable }

// NewEngine returns the preferred engine, falling back to the other CLI
// engine when the preferred one is not available.
func NewEngine(preferred EngineType) (Engine, error) {
	if err := preferred.Validate(); err != nil {
		return nil, err
	}

	switch preferred {
	case EngineTypePodman:
		if engine := NewPodmanEngine(); engine.Available() {
			return engine, nil
		}
		if engine := NewDockerEngine(); engine.Available() {
			return engine, nil
		}
		return nil, &EngineNotAvailableError{
			Engine: EngineTypePodman,
			Reason: "podman is not installed or not accessible, and the docker fallback is not available either",
		}

	case EngineTypeDocker:
		if engine := NewDockerEngine(); engine.Available() {
			return engine, nil
		}
		if engine := NewPodmanEngine(); engine.Available() {
			return engine, nil
		}
		return nil, &EngineNotAvailableError{
			Engine: EngineTypeDocker,
			Reason: "docker is not installed or not accessible, and the podman fallback is not available either",
		}

	default:
		return AutoDetectEngine()
	}
}

// AutoDetectEngine returns the first available engine. Podman is tried
// first since it is the engine the compiled argument vector targets in
// rootless setups.
func AutoDetectEngine() (Engine, error) {
	if podman := NewPodmanEngine(); podman.Available() {
		return podman, nil
	}
	if docker := NewDockerEngine(); docker.Available() {
		return docker, nil
	}
	return nil, &EngineNotAvailableError{
		Engine: EngineTypeAuto,
		Reason: "no container engine (podman or docker) is available on this system",
	}
}
