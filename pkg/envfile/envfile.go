// SPDX-License-Identifier: MPL-2.0

package envfile

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

type (
	// CapabilityName identifies one of the closed set of named,
	// independently toggleable behaviors an environment can request.
	CapabilityName string

	// DesktopConfig describes an optional desktop launcher entry for an
	// environment.
	DesktopConfig struct {
		// Name is the launcher display name. Defaults to "podbox - <env>".
		Name string `json:"name,omitempty"`
		// Icon is an icon name or path, resolved relative to the envfile
		// location when it is not absolute.
		Icon string `json:"icon,omitempty"`
	}

	// Environment is the user-provided container description.
	Environment struct {
		// Name is the environment name.
		Name string `json:"name"`
		// Description is a short human-readable description.
		Description string `json:"description,omitempty"`
		// Parent names an environment to inherit attributes from.
		Parent string `json:"parent,omitempty"`
		// Image is the container image reference.
		Image string `json:"image,omitempty"`
		// Rootfs is the path of a rootfs to use instead of an image.
		Rootfs string `json:"rootfs,omitempty"`
		// DNS is a custom DNS server, applied only with direct networking.
		DNS string `json:"dns,omitempty"`
		// ImageCustomizations are shell commands committed into the image.
		ImageCustomizations []string `json:"image_customizations,omitempty"`
		// Packages are installed in the image when image management is on.
		Packages []string `json:"packages,omitempty"`
		// Command is the container starting command. It may contain the
		// literal tokens "$1" (a single file argument) and "$@" (all
		// remaining CLI arguments). Never inherited from a parent.
		Command []string `json:"command,omitempty"`
		// Args are static arguments appended after the command.
		Args []string `json:"args,omitempty"`
		// Environ is the user environ(7) for the container.
		Environ map[string]string `json:"environ,omitempty"`
		// Syscaps are extra Linux capabilities(7) names.
		Syscaps []string `json:"syscaps,omitempty"`
		// Mounts maps container paths to host paths. The container side
		// may start with "~/" to target the container home directory; the
		// host side may start with "~/" to target the host home directory.
		Mounts map[string]string `json:"mounts,omitempty"`
		// Capabilities toggles named behaviors. Absent means inactive.
		Capabilities map[string]bool `json:"capabilities,omitempty"`
		// Network names a network shared by multiple environments.
		Network string `json:"network,omitempty"`
		// Requires lists environments that must run alongside this one.
		Requires []string `json:"requires,omitempty"`
		// Overlays are directories copied into the per-run home.
		Overlays []string `json:"overlays,omitempty"`
		// Home is a host path mounted as the container home.
		Home string `json:"home,omitempty"`
		// ShmSize is the shm-size value string.
		ShmSize string `json:"shm_size,omitempty"`
		// Ports are publish specs; "{NAME}" placeholders are interpolated
		// against the resolved environ map.
		Ports []string `json:"ports,omitempty"`
		// Desktop is an optional desktop launcher definition.
		Desktop *DesktopConfig `json:"desktop,omitempty"`

		// FilePath is where this environment was loaded from. Not in CUE.
		FilePath string `json:"-"`

		// ManageImage, AutoUpdate and MountCache are resolution-scope
		// flags flipped by the corresponding capabilities. Not in CUE.
		ManageImage bool `json:"-"`
		AutoUpdate  bool `json:"-"`
		MountCache  bool `json:"-"`

		// RunDir is the per-run scratch directory supplied by the
		// launcher before resolution. Not in CUE.
		RunDir string `json:"-"`
	}
)

// Capability names, in no particular order. The catalogue in
// internal/compile defines the application order; this list defines the
// closed world of valid names.
const (
	CapRoot        CapabilityName = "root"
	CapManageImage CapabilityName = "manage-image"
	CapPrivileged  CapabilityName = "privileged"
	CapTerminal    CapabilityName = "terminal"
	CapIPC         CapabilityName = "ipc"
	CapX11         CapabilityName = "x11"
	CapPulseaudio  CapabilityName = "pulseaudio"
	CapGit         CapabilityName = "git"
	CapEditor      CapabilityName = "editor"
	CapSSH         CapabilityName = "ssh"
	CapGPG         CapabilityName = "gpg"
	CapWebcam      CapabilityName = "webcam"
	CapDRI         CapabilityName = "dri"
	CapKVM         CapabilityName = "kvm"
	CapTun         CapabilityName = "tun"
	CapSeccomp     CapabilityName = "seccomp"
	CapSELinux     CapabilityName = "selinux"
	CapSetuid      CapabilityName = "setuid"
	CapPtrace      CapabilityName = "ptrace"
	CapNetwork     CapabilityName = "network"
	CapMountCwd    CapabilityName = "mount-cwd"
	CapMountRun    CapabilityName = "mount-run"
	CapMountCache  CapabilityName = "mount-cache"
	CapAutoUpdate  CapabilityName = "auto-update"
	CapUIDMap      CapabilityName = "uid-map"
)

// CapabilityNames returns every valid capability name.
func CapabilityNames() []CapabilityName {
	return []CapabilityName{
		CapRoot, CapManageImage, CapPrivileged, CapTerminal, CapIPC,
		CapX11, CapPulseaudio, CapGit, CapEditor, CapSSH, CapGPG,
		CapWebcam, CapDRI, CapKVM, CapTun, CapSeccomp, CapSELinux,
		CapSetuid, CapPtrace, CapNetwork, CapMountCwd, CapMountRun,
		CapMountCache, CapAutoUpdate, CapUIDMap,
	}
}

// IsValidCapabilityName reports whether name is in the closed set.
func IsValidCapabilityName(name CapabilityName) bool {
	for _, valid := range CapabilityNames() {
		if name == valid {
			return true
		}
	}
	return false
}

var (
	// ErrUnknownCapability is the sentinel wrapped by UnknownCapabilityError.
	ErrUnknownCapability = errors.New("unknown capability")

	// ErrUnknownEnvironment is the sentinel wrapped by UnknownEnvironmentError.
	ErrUnknownEnvironment = errors.New("unknown environment")

	// ErrInheritanceCycle is the sentinel wrapped by InheritanceCycleError.
	ErrInheritanceCycle = errors.New("environment inheritance cycle")

	// ErrDuplicateEnvironment is the sentinel wrapped by DuplicateEnvironmentError.
	ErrDuplicateEnvironment = errors.New("duplicate environment")
)

type (
	// UnknownCapabilityError is returned when an environment requests a
	// capability name outside the closed set.
	UnknownCapabilityError struct {
		Environment string
		Capability  string
	}

	// UnknownEnvironmentError is returned when a named environment (a
	// parent, a requirement, or a CLI argument) does not exist.
	UnknownEnvironmentError struct {
		Name string
	}

	// InheritanceCycleError is returned when an environment is its own
	// ancestor. Chain records the walk that closed the cycle.
	InheritanceCycleError struct {
		Chain []string
	}

	// DuplicateEnvironmentError is returned when two envfiles declare the
	// same environment name.
	DuplicateEnvironmentError struct {
		Name     string
		FilePath string
	}
)

// Error implements the error interface.
func (e *UnknownCapabilityError) Error() string {
	return fmt.Sprintf("%s: unknown capability %q", e.Environment, e.Capability)
}

// Unwrap returns ErrUnknownCapability for errors.Is detection.
func (e *UnknownCapabilityError) Unwrap() error { return ErrUnknownCapability }

// Error implements the error interface.
func (e *UnknownEnvironmentError) Error() string {
	return fmt.Sprintf("unknown environment %q", e.Name)
}

// Unwrap returns ErrUnknownEnvironment for errors.Is detection.
func (e *UnknownEnvironmentError) Unwrap() error { return ErrUnknownEnvironment }

// Error implements the error interface.
func (e *InheritanceCycleError) Error() string {
	return fmt.Sprintf("environment inheritance cycle: %s", strings.Join(e.Chain, " -> "))
}

// Unwrap returns ErrInheritanceCycle for errors.Is detection.
func (e *InheritanceCycleError) Unwrap() error { return ErrInheritanceCycle }

// Error implements the error interface.
func (e *DuplicateEnvironmentError) Error() string {
	return fmt.Sprintf("duplicate environment %q (already declared, redeclared in %s)", e.Name, e.FilePath)
}

// Unwrap returns ErrDuplicateEnvironment for errors.Is detection.
func (e *DuplicateEnvironmentError) Unwrap() error { return ErrDuplicateEnvironment }

var camelBoundary = regexp.MustCompile(`([A-Z]+)`)

// NormalizeCapabilityName converts a legacy camelCase capability name
// to its hyphenated form: "mountCwd" becomes "mount-cwd". The historic
// alias "uidmap" maps to "uid-map". Already-hyphenated names pass
// through unchanged.
func NormalizeCapabilityName(name string) CapabilityName {
	if name == "uidmap" {
		return CapUIDMap
	}
	return CapabilityName(strings.ToLower(camelBoundary.ReplaceAllString(name, `-$1`)))
}

// Normalize rewrites legacy capability keys to their canonical names
// and validates every key against the closed capability set. It must be
// called once after construction and before resolution.
func (env *Environment) Normalize() error {
	if len(env.Capabilities) == 0 {
		return nil
	}

	normalized := make(map[string]bool, len(env.Capabilities))
	for name, value := range env.Capabilities {
		canonical := NormalizeCapabilityName(name)
		if !IsValidCapabilityName(canonical) {
			return &UnknownCapabilityError{Environment: env.Name, Capability: name}
		}
		normalized[string(canonical)] = value
	}
	env.Capabilities = normalized
	return nil
}

// HasCapability reports whether the named capability is requested.
// Absent means inactive.
func (env *Environment) HasCapability(name CapabilityName) bool {
	return env.Capabilities[string(name)]
}

// SetCapability toggles the named capability, allocating the map when
// the environment declared none.
func (env *Environment) SetCapability(name CapabilityName, active bool) {
	if env.Capabilities == nil {
		env.Capabilities = make(map[string]bool)
	}
	env.Capabilities[string(name)] = active
}

// Clone returns a deep copy of the environment.
func (env *Environment) Clone() *Environment {
	clone := *env

	clone.ImageCustomizations = cloneSlice(env.ImageCustomizations)
	clone.Packages = cloneSlice(env.Packages)
	clone.Command = cloneSlice(env.Command)
	clone.Args = cloneSlice(env.Args)
	clone.Syscaps = cloneSlice(env.Syscaps)
	clone.Requires = cloneSlice(env.Requires)
	clone.Overlays = cloneSlice(env.Overlays)
	clone.Ports = cloneSlice(env.Ports)

	clone.Environ = cloneMap(env.Environ)
	clone.Mounts = cloneMap(env.Mounts)
	clone.Capabilities = cloneMap(env.Capabilities)

	if env.Desktop != nil {
		desktop := *env.Desktop
		clone.Desktop = &desktop
	}

	return &clone
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return nil
	}
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
