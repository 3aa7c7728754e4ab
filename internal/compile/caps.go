// SPDX-License-Identifier: MPL-2.0

package compile

import (
	"fmt"
	"sort"
	"strings"

	"podbox/pkg/envfile"
)

type (
	// Scope bundles everything a capability handler may touch: the
	// execution context it mutates, the environment being resolved (a
	// handful of handlers flip resolution flags on it) and the host view
	// for environment variable and file probes.
	Scope struct {
		Ctx  *ExecutionContext
		Env  *envfile.Environment
		Host Host

		warnings []string
		warned   map[string]bool
	}

	// CapabilityFunc mutates the scope for one capability. It is called
	// exactly once per resolution, active or not, so handlers that need
	// an inactive branch (root, selinux, seccomp, network) own it.
	CapabilityFunc func(active bool, s *Scope) error

	// Capability is one catalogue entry.
	Capability struct {
		Name envfile.CapabilityName
		Doc  string
		Func CapabilityFunc
	}
)

// NewScope returns a scope over the given context, environment and host.
func NewScope(ctx *ExecutionContext, env *envfile.Environment, host Host) *Scope {
	return &Scope{Ctx: ctx, Env: env, Host: host, warned: make(map[string]bool)}
}

// Warnf records a warning. Identical messages are recorded once, which
// keeps repeated validation passes from stacking duplicates.
func (s *Scope) Warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if s.warned[msg] {
		return
	}
	s.warned[msg] = true
	s.warnings = append(s.warnings, msg)
}

// Warnings returns the recorded warnings in emission order.
func (s *Scope) Warnings() []string {
	return s.warnings
}

// hostEnv returns a host environment variable a capability cannot work
// without.
func (s *Scope) hostEnv(cap envfile.CapabilityName, key string) (string, error) {
	value, ok := s.Host.Getenv(key)
	if !ok {
		return "", &MissingHostEnvError{Capability: cap, Variable: key}
	}
	return value, nil
}

// Catalogue returns the capability catalogue in application order. The
// order is part of the engine contract: identity first so every later
// handler sees the container home and runtime dir, device and
// confinement toggles in the middle, mount setup last so it can observe
// what earlier handlers mounted.
func Catalogue() []Capability {
	return []Capability{
		{envfile.CapRoot, "run as root", rootCap},
		{envfile.CapManageImage, "manage the image lifecycle", manageImageCap},
		{envfile.CapPrivileged, "run a privileged container", privilegedCap},
		{envfile.CapTerminal, "interactive terminal", terminalCap},
		{envfile.CapIPC, "share the host ipc namespace", ipcCap},
		{envfile.CapX11, "share the x11 socket", x11Cap},
		{envfile.CapPulseaudio, "share the pulseaudio socket", pulseaudioCap},
		{envfile.CapGit, "share the git configuration", gitCap},
		{envfile.CapEditor, "setup the editor environment", editorCap},
		{envfile.CapSSH, "share the ssh agent and keys", sshCap},
		{envfile.CapGPG, "share the gpg agent", gpgCap},
		{envfile.CapWebcam, "share webcam devices", webcamCap},
		{envfile.CapDRI, "share the graphic device", driCap},
		{envfile.CapKVM, "share the kvm device", kvmCap},
		{envfile.CapTun, "share the tun device", tunCap},
		{envfile.CapSeccomp, "enable seccomp confinement", seccompCap},
		{envfile.CapSELinux, "enable selinux confinement", selinuxCap},
		{envfile.CapSetuid, "allow uid and gid changes", setuidCap},
		{envfile.CapPtrace, "allow process tracing", ptraceCap},
		{envfile.CapNetwork, "enable network access", networkCap},
		{envfile.CapMountCwd, "mount the working directory to /data", mountCwdCap},
		{envfile.CapMountRun, "mount home and tmp on the per-run tmpfs", mountRunCap},
		{envfile.CapMountCache, "mount the image build cache", mountCacheCap},
		{envfile.CapAutoUpdate, "keep the environment image updated", autoUpdateCap},
		{envfile.CapUIDMap, "map the host uid to container root", uidmapCap},
	}
}

// rootCap decides the container identity. It always runs so the context
// home and runtime dir are set before any handler that needs them.
func rootCap(active bool, s *Scope) error {
	if active {
		s.Ctx.Home = "/root"
		s.Ctx.XDGRuntimeDir = "/run/user/0"
		s.Ctx.User = &User{Name: "root", Home: "/root", UID: 0}
	} else {
		s.Ctx.Home = "/home/user"
		s.Ctx.XDGRuntimeDir = "/run/user/1000"
		s.Ctx.User = &User{Name: "user", Home: "/home/user", UID: 1000}
		s.Ctx.Username = "1000"
	}
	s.Ctx.SetEnv("HOME", s.Ctx.Home)
	s.Ctx.SetEnv("XDG_RUNTIME_DIR", s.Ctx.XDGRuntimeDir)
	return nil
}

func manageImageCap(active bool, s *Scope) error {
	s.Env.ManageImage = active
	return nil
}

func privilegedCap(active bool, s *Scope) error {
	if active {
		s.Ctx.Privileged = true
	}
	return nil
}

func terminalCap(active bool, s *Scope) error {
	if active {
		s.Ctx.Interactive = true
		s.Ctx.DetachKeys = "ctrl-e,e"
	}
	return nil
}

func ipcCap(active bool, s *Scope) error {
	if active {
		s.Ctx.SetNamespace("ipc", "host")
	}
	return nil
}

func x11Cap(active bool, s *Scope) error {
	if !active {
		return nil
	}
	display, err := s.hostEnv(envfile.CapX11, "DISPLAY")
	if err != nil {
		return err
	}
	s.Ctx.Mount("/tmp/.X11-unix", BindMount("/tmp/.X11-unix"))
	s.Ctx.SetEnv("DISPLAY", display)
	return nil
}

func pulseaudioCap(active bool, s *Scope) error {
	if !active {
		return nil
	}
	hostXDG, err := s.hostEnv(envfile.CapPulseaudio, "XDG_RUNTIME_DIR")
	if err != nil {
		return err
	}
	s.Ctx.Mount("/etc/machine-id", ReadOnlyBind("/etc/machine-id"))
	s.Ctx.Mount(s.Ctx.XDGRuntimeDir+"/pulse", BindMount(hostXDG+"/pulse"))
	// Force PULSE_SERVER so clients running under a remapped uid find
	// the right socket.
	s.Ctx.SetEnv("PULSE_SERVER", s.Ctx.XDGRuntimeDir+"/pulse/native")
	return nil
}

// gitCap shares the host git configuration, plus the excludesfile and
// credential store it references, when those exist.
func gitCap(active bool, s *Scope) error {
	if !active {
		return nil
	}
	gitconfig := s.Host.HomeDir() + "/.gitconfig"
	if !s.Host.IsFile(gitconfig) {
		return nil
	}
	s.Ctx.Mount(s.Ctx.Home+"/.gitconfig", BindMount(gitconfig))

	data, err := s.Host.ReadFile(gitconfig)
	if err != nil {
		s.Warnf("%s: %v", gitconfig, err)
		return nil
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "excludesfile"):
			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}
			name := strings.TrimSpace(parts[1])
			s.mountGitFile(name)
		case strings.Contains(line, "store --file"):
			fields := strings.Fields(line)
			s.mountGitFile(fields[len(fields)-1])
		}
	}
	return nil
}

// mountGitFile mounts a "~/"-relative file referenced by the gitconfig
// under the container home, keeping its relative location.
func (s *Scope) mountGitFile(name string) {
	hostPath := expandUser(name, s.Host.HomeDir())
	if !s.Host.IsFile(hostPath) {
		return
	}
	s.Ctx.Mount(joinUnder(s.Ctx.Home, name), BindMount(hostPath))
}

func editorCap(active bool, s *Scope) error {
	if !active {
		return nil
	}
	editor, ok := s.Host.Getenv("EDITOR")
	if !ok {
		editor = "vi"
	}
	s.Ctx.SetEnv("EDITOR", editor)
	s.Env.Packages = append(s.Env.Packages, "vi")
	return nil
}

func sshCap(active bool, s *Scope) error {
	if !active {
		return nil
	}
	sock, err := s.hostEnv(envfile.CapSSH, "SSH_AUTH_SOCK")
	if err != nil {
		return err
	}
	s.Ctx.SetEnv("SSH_AUTH_SOCK", sock)
	s.Ctx.Mount(sock, BindMount(sock))
	s.Ctx.Mount(s.Ctx.Home+"/.ssh", BindMount(s.Host.HomeDir()+"/.ssh"))
	return nil
}

func gpgCap(active bool, s *Scope) error {
	if !active {
		return nil
	}
	hostXDG, err := s.hostEnv(envfile.CapGPG, "XDG_RUNTIME_DIR")
	if err != nil {
		return err
	}
	s.Ctx.Mount(s.Ctx.XDGRuntimeDir+"/gnupg", BindMount(hostXDG+"/gnupg"))
	s.Ctx.Mount(s.Ctx.Home+"/.gnupg", BindMount(s.Host.HomeDir()+"/.gnupg"))
	return nil
}

func webcamCap(active bool, s *Scope) error {
	if !active {
		return nil
	}
	entries, err := s.Host.ListDir("/dev")
	if err != nil {
		s.Warnf("webcam: cannot list /dev: %v", err)
		return nil
	}
	sort.Strings(entries)
	for _, entry := range entries {
		if strings.HasPrefix(entry, "video") {
			s.Ctx.AddDevice("/dev/" + entry)
		}
	}
	return nil
}

func driCap(active bool, s *Scope) error {
	if active {
		s.Ctx.AddDevice("/dev/dri")
	}
	return nil
}

func kvmCap(active bool, s *Scope) error {
	if active {
		s.Ctx.AddDevice("/dev/kvm")
	}
	return nil
}

func tunCap(active bool, s *Scope) error {
	if active {
		s.Ctx.AddDevice("/dev/net/tun")
	}
	return nil
}

// seccompCap and selinuxCap act on the inactive branch: confinement is
// the default, turning the capability off relaxes it.
func seccompCap(active bool, s *Scope) error {
	if !active {
		s.Ctx.SeccompProfile = "unconfined"
	}
	return nil
}

func selinuxCap(active bool, s *Scope) error {
	if !active {
		s.Ctx.SELinuxLabel = "disable"
	}
	return nil
}

func setuidCap(active bool, s *Scope) error {
	if active {
		s.Ctx.AddSyscap("SETUID", "SETGID")
	}
	return nil
}

func ptraceCap(active bool, s *Scope) error {
	if active {
		s.Ctx.AddSyscap("SYS_PTRACE")
	}
	return nil
}

// networkCap sets the network namespace. A named network always wins
// and joins the shared pod network container. Without one, inactive
// means no network at all.
func networkCap(active bool, s *Scope) error {
	if s.Env.Network != "" {
		s.Ctx.SetNamespace("network", "container:net-"+s.Env.Network)
	}
	if !active && s.Env.Network == "" {
		s.Ctx.SetNamespace("network", "none")
	}
	return nil
}

func mountCwdCap(active bool, s *Scope) error {
	if active {
		s.Ctx.Cwd = "/data"
		s.Ctx.Mount("/data", BindMount(s.Host.WorkDir()))
	}
	return nil
}

// mountRunCap backs the container home and /tmp with the per-run
// scratch directory, unless something already claimed those paths.
func mountRunCap(active bool, s *Scope) error {
	if !active {
		return nil
	}
	return applyMountRun(s)
}

// applyMountRun is shared with the validator, which force-enables the
// capability when overlays need a writable home.
func applyMountRun(s *Scope) error {
	if s.Env.RunDir == "" {
		return &MissingRunDirError{Environment: s.Env.Name}
	}
	if !s.Ctx.MountedAt(s.Ctx.Home) && s.Env.Home == "" {
		s.Ctx.Mount(s.Ctx.Home, BindMount(s.Env.RunDir+"/home"))
	}
	if !s.Ctx.MountedAt("/tmp") {
		s.Ctx.Mount("/tmp", BindMount(s.Env.RunDir+"/tmp"))
	}
	return nil
}

func mountCacheCap(active bool, s *Scope) error {
	if active {
		s.Env.MountCache = true
	}
	return nil
}

func autoUpdateCap(active bool, s *Scope) error {
	if active {
		s.Env.AutoUpdate = true
	}
	return nil
}

func uidmapCap(active bool, s *Scope) error {
	if active {
		s.Ctx.UIDMap = true
	}
	return nil
}
