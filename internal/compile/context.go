// SPDX-License-Identifier: MPL-2.0

package compile

import (
	"fmt"
	"sort"
)

type (
	// User is the container-side identity of a resolved environment.
	User struct {
		Name string
		Home string
		UID  int
	}

	// Volume is a named container-internal mount source. Unlike a plain
	// host path it serializes by name, not by filesystem path.
	Volume struct {
		Name     string
		ReadOnly bool
	}

	// MountSource is the host side of a mount: exactly one of HostPath
	// and Volume is set.
	MountSource struct {
		HostPath string
		Volume   *Volume
		ReadOnly bool
	}

	// ExecutionContext accumulates runtime-facing intent (mounts, env
	// vars, namespaces, flags) during resolution. It has no behavior
	// beyond storage and deterministic serialization to an argument
	// vector.
	ExecutionContext struct {
		Environ    map[string]string
		Mounts     map[string]MountSource
		Syscaps    []string
		Sysctls    []string
		Devices    []string
		AddHosts   map[string]string
		Namespaces map[string]string

		// ExtraArgs are literal runtime flags appended verbatim, after
		// every structured flag. Escape hatch.
		ExtraArgs []string

		// Home and XDGRuntimeDir are always set by the identity
		// capability before any other handler runs.
		Home          string
		XDGRuntimeDir string

		Cwd            string
		Hostname       string
		DNS            string
		SELinuxLabel   string
		SeccompProfile string
		ShmSize        string
		DetachKeys     string

		User        *User
		Username    string
		Interactive bool
		Privileged  bool
		UIDMap      bool
	}
)

// BindMount returns a read-write host path mount source.
func BindMount(hostPath string) MountSource {
	return MountSource{HostPath: hostPath}
}

// ReadOnlyBind returns a read-only host path mount source.
func ReadOnlyBind(hostPath string) MountSource {
	return MountSource{HostPath: hostPath, ReadOnly: true}
}

// VolumeMount returns a named volume mount source.
func VolumeMount(vol Volume) MountSource {
	return MountSource{Volume: &vol}
}

// sourceArg returns the host side of the -v flag value.
func (m MountSource) sourceArg() string {
	if m.Volume != nil {
		return m.Volume.Name
	}
	return m.HostPath
}

// readOnly reports whether the mount serializes with the ro option.
func (m MountSource) readOnly() bool {
	if m.Volume != nil {
		return m.Volume.ReadOnly
	}
	return m.ReadOnly
}

// NewExecutionContext returns an empty context with allocated
// collections.
func NewExecutionContext() *ExecutionContext {
	return &ExecutionContext{
		Environ:    make(map[string]string),
		Mounts:     make(map[string]MountSource),
		AddHosts:   make(map[string]string),
		Namespaces: make(map[string]string),
	}
}

// SetEnv records an environment variable. Last writer wins.
func (c *ExecutionContext) SetEnv(name, value string) {
	c.Environ[name] = value
}

// Mount records a mount at the given container path. Last writer wins,
// so capability order determines precedence.
func (c *ExecutionContext) Mount(containerPath string, src MountSource) {
	c.Mounts[containerPath] = src
}

// MountedAt reports whether a mount exists at the container path.
func (c *ExecutionContext) MountedAt(containerPath string) bool {
	_, ok := c.Mounts[containerPath]
	return ok
}

// AddSyscap appends Linux capability names. Duplicates collapse at
// serialization.
func (c *ExecutionContext) AddSyscap(names ...string) {
	c.Syscaps = append(c.Syscaps, names...)
}

// HasSyscap reports whether the named Linux capability was added.
func (c *ExecutionContext) HasSyscap(name string) bool {
	for _, s := range c.Syscaps {
		if s == name {
			return true
		}
	}
	return false
}

// AddSysctl appends a sysctl entry.
func (c *ExecutionContext) AddSysctl(entries ...string) {
	c.Sysctls = append(c.Sysctls, entries...)
}

// AddDevice appends a device path. Duplicates collapse at serialization.
func (c *ExecutionContext) AddDevice(paths ...string) {
	c.Devices = append(c.Devices, paths...)
}

// AddHost records a hostname-to-ip alias.
func (c *ExecutionContext) AddHost(hostname, ip string) {
	c.AddHosts[hostname] = ip
}

// SetNamespace records the sharing mode for a namespace kind, e.g.
// "network" to "host", "none" or "container:NAME".
func (c *ExecutionContext) SetNamespace(kind, value string) {
	c.Namespaces[kind] = value
}

// Namespace returns the recorded sharing mode for a namespace kind.
func (c *ExecutionContext) Namespace(kind string) string {
	return c.Namespaces[kind]
}

// AppendArgs appends literal runtime flags to the escape hatch.
func (c *ExecutionContext) AppendArgs(args ...string) {
	c.ExtraArgs = append(c.ExtraArgs, args...)
}

// HasNetwork reports whether the container has any network access.
func (c *ExecutionContext) HasNetwork() bool {
	ns := c.Namespaces["network"]
	return ns == "" || ns != "none"
}

// HasDirectNetwork reports whether the container reaches the network
// directly (default or host networking, not a shared or disabled
// namespace).
func (c *ExecutionContext) HasDirectNetwork() bool {
	ns := c.Namespaces["network"]
	return ns == "" || ns == "host"
}

// uidMapArgs returns the uid-mapping triples that remap host uid 1000
// to container root while keeping the rest of the uid space stable.
func (c *ExecutionContext) uidMapArgs() []string {
	return []string{
		"--uidmap", "1000:0:1",
		"--uidmap", "0:1:1000",
		"--uidmap", fmt.Sprintf("1001:1001:%d", 1<<16-1001),
	}
}

// Args serializes the context into the runtime argument vector. The
// assembly order is fixed and every collection is rendered in sorted,
// deduplicated order, so identical contexts always produce identical
// vectors.
func (c *ExecutionContext) Args() []string {
	var args []string

	if c.Hostname != "" {
		args = append(args, "--hostname", c.Hostname)
	}

	if c.SELinuxLabel != "" {
		args = append(args, "--security-opt", "label="+c.SELinuxLabel)
	}
	if c.SeccompProfile != "" {
		args = append(args, "--security-opt", "seccomp="+c.SeccompProfile)
	}

	for _, kind := range sortedKeys(c.Namespaces) {
		args = append(args, "--"+kind, c.Namespaces[kind])
	}

	if c.HasDirectNetwork() {
		for _, hostname := range sortedKeys(c.AddHosts) {
			args = append(args, "--add-host", hostname+":"+c.AddHosts[hostname])
		}
	}

	if c.Cwd != "" {
		args = append(args, "--workdir", c.Cwd)
	}

	if c.DNS != "" && c.HasDirectNetwork() {
		args = append(args, "--dns="+c.DNS)
	}

	for _, containerPath := range sortedKeys(c.Mounts) {
		src := c.Mounts[containerPath]
		spec := src.sourceArg() + ":" + containerPath
		if src.readOnly() {
			spec += ":ro"
		}
		args = append(args, "-v", spec)
	}

	for _, device := range sortedUnique(c.Devices) {
		args = append(args, "--device", device)
	}

	for _, cap := range sortedUnique(c.Syscaps) {
		args = append(args, "--cap-add", cap)
	}

	for _, ctl := range sortedUnique(c.Sysctls) {
		args = append(args, "--sysctl", ctl)
	}

	for _, name := range sortedKeys(c.Environ) {
		args = append(args, "-e", name+"="+c.Environ[name])
	}

	if c.Username != "" {
		args = append(args, "--user", c.Username)
	}

	if c.UIDMap {
		args = append(args, c.uidMapArgs()...)
	}

	if c.Privileged {
		args = append(args, "--privileged")
	}

	if c.DetachKeys != "" {
		args = append(args, "--detach-keys", c.DetachKeys)
	}

	if c.Interactive {
		args = append(args, "-it")
	}

	if c.ShmSize != "" {
		args = append(args, "--shm-size="+c.ShmSize)
	}

	args = append(args, c.ExtraArgs...)

	return args
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedUnique(values []string) []string {
	if len(values) == 0 {
		return nil
	}
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
