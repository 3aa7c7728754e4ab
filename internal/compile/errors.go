// SPDX-License-Identifier: MPL-2.0

package compile

import (
	"errors"
	"fmt"
	"strings"

	"podbox/pkg/envfile"
)

var (
	// ErrMissingHostEnv is the sentinel wrapped by MissingHostEnvError.
	ErrMissingHostEnv = errors.New("missing host environment variable")

	// ErrMissingRunDir is the sentinel wrapped by MissingRunDirError.
	ErrMissingRunDir = errors.New("run directory not set")

	// ErrMultipleFileArgs is the sentinel wrapped by MultipleFileArgsError.
	ErrMultipleFileArgs = errors.New("multiple file arguments")

	// ErrFileArg is the sentinel wrapped by FileArgError.
	ErrFileArg = errors.New("invalid file argument")

	// ErrPortInterpolation is the sentinel wrapped by PortInterpolationError.
	ErrPortInterpolation = errors.New("unknown port placeholder")
)

type (
	// MissingHostEnvError is returned when an active capability needs a
	// host environment variable that is not set.
	MissingHostEnvError struct {
		Capability envfile.CapabilityName
		Variable   string
	}

	// MissingRunDirError is returned when the mount-run capability is
	// active but no per-run directory was supplied.
	MissingRunDirError struct {
		Environment string
	}

	// MultipleFileArgsError is returned when a command with a "$1" slot
	// receives more than one CLI argument.
	MultipleFileArgsError struct {
		Args []string
	}

	// FileArgError is returned when the "$1" file argument does not
	// resolve to an existing file.
	FileArgError struct {
		Path string
		Err  error
	}

	// PortInterpolationError is returned when a port spec references a
	// "{NAME}" placeholder absent from the resolved environ.
	PortInterpolationError struct {
		Port     string
		Variable string
	}
)

// Error implements the error interface.
func (e *MissingHostEnvError) Error() string {
	return fmt.Sprintf("capability %q requires the host environment variable %s", e.Capability, e.Variable)
}

// Unwrap returns ErrMissingHostEnv for errors.Is detection.
func (e *MissingHostEnvError) Unwrap() error { return ErrMissingHostEnv }

// Error implements the error interface.
func (e *MissingRunDirError) Error() string {
	return fmt.Sprintf("%s: run directory not set", e.Environment)
}

// Unwrap returns ErrMissingRunDir for errors.Is detection.
func (e *MissingRunDirError) Unwrap() error { return ErrMissingRunDir }

// Error implements the error interface.
func (e *MultipleFileArgsError) Error() string {
	return fmt.Sprintf("command expects a single file argument, got: %s", strings.Join(e.Args, " "))
}

// Unwrap returns ErrMultipleFileArgs for errors.Is detection.
func (e *MultipleFileArgsError) Unwrap() error { return ErrMultipleFileArgs }

// Error implements the error interface.
func (e *FileArgError) Error() string {
	return fmt.Sprintf("file argument %s: %v", e.Path, e.Err)
}

// Unwrap returns ErrFileArg for errors.Is detection.
func (e *FileArgError) Unwrap() error { return ErrFileArg }

// Error implements the error interface.
func (e *PortInterpolationError) Error() string {
	return fmt.Sprintf("port %q references unknown variable %q", e.Port, e.Variable)
}

// Unwrap returns ErrPortInterpolation for errors.Is detection.
func (e *PortInterpolationError) Unwrap() error { return ErrPortInterpolation }
