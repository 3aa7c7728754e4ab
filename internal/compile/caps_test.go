// SPDX-License-Identifier: MPL-2.0

package compile

import (
	"errors"
	"slices"
	"testing"

	"podbox/pkg/envfile"
)

// applyCap runs the named catalogue entry against a fresh scope.
func applyCap(t *testing.T, name envfile.CapabilityName, active bool, env *envfile.Environment, host Host) (*Scope, error) {
	t.Helper()
	scope := NewScope(NewExecutionContext(), env, host)
	for _, cap := range Catalogue() {
		if cap.Name == name {
			return scope, cap.Func(active, scope)
		}
	}
	t.Fatalf("capability %q not in catalogue", name)
	return nil, nil
}

func TestCatalogueCoversEveryCapability(t *testing.T) {
	t.Parallel()

	catalogue := Catalogue()
	names := make([]envfile.CapabilityName, 0, len(catalogue))
	for _, cap := range catalogue {
		names = append(names, cap.Name)
		if cap.Func == nil {
			t.Errorf("capability %q has no handler", cap.Name)
		}
		if cap.Doc == "" {
			t.Errorf("capability %q has no doc", cap.Name)
		}
	}

	valid := envfile.CapabilityNames()
	if len(names) != len(valid) {
		t.Fatalf("catalogue has %d entries, capability set has %d", len(names), len(valid))
	}
	for _, name := range valid {
		if !slices.Contains(names, name) {
			t.Errorf("capability %q missing from catalogue", name)
		}
	}
	seen := map[envfile.CapabilityName]bool{}
	for _, name := range names {
		if seen[name] {
			t.Errorf("capability %q appears twice in catalogue", name)
		}
		seen[name] = true
	}
}

func TestRootCap(t *testing.T) {
	t.Parallel()

	t.Run("active", func(t *testing.T) {
		t.Parallel()
		scope, err := applyCap(t, envfile.CapRoot, true, &envfile.Environment{Name: "e"}, newFakeHost())
		if err != nil {
			t.Fatalf("rootCap: %v", err)
		}
		if scope.Ctx.Home != "/root" || scope.Ctx.XDGRuntimeDir != "/run/user/0" {
			t.Errorf("got home=%q xdg=%q", scope.Ctx.Home, scope.Ctx.XDGRuntimeDir)
		}
		if scope.Ctx.Username != "" {
			t.Errorf("active root must not set --user, got %q", scope.Ctx.Username)
		}
		if scope.Ctx.User == nil || scope.Ctx.User.UID != 0 {
			t.Errorf("got user %+v, want uid 0", scope.Ctx.User)
		}
	})

	t.Run("inactive", func(t *testing.T) {
		t.Parallel()
		scope, err := applyCap(t, envfile.CapRoot, false, &envfile.Environment{Name: "e"}, newFakeHost())
		if err != nil {
			t.Fatalf("rootCap: %v", err)
		}
		if scope.Ctx.Home != "/home/user" || scope.Ctx.XDGRuntimeDir != "/run/user/1000" {
			t.Errorf("got home=%q xdg=%q", scope.Ctx.Home, scope.Ctx.XDGRuntimeDir)
		}
		if scope.Ctx.Username != "1000" {
			t.Errorf("got username %q, want 1000", scope.Ctx.Username)
		}
	})

	// Both branches publish the container identity to the environ.
	for _, active := range []bool{true, false} {
		scope, err := applyCap(t, envfile.CapRoot, active, &envfile.Environment{Name: "e"}, newFakeHost())
		if err != nil {
			t.Fatalf("rootCap: %v", err)
		}
		if scope.Ctx.Environ["HOME"] != scope.Ctx.Home {
			t.Errorf("active=%v: HOME=%q, want %q", active, scope.Ctx.Environ["HOME"], scope.Ctx.Home)
		}
		if scope.Ctx.Environ["XDG_RUNTIME_DIR"] != scope.Ctx.XDGRuntimeDir {
			t.Errorf("active=%v: XDG_RUNTIME_DIR=%q, want %q", active, scope.Ctx.Environ["XDG_RUNTIME_DIR"], scope.Ctx.XDGRuntimeDir)
		}
	}
}

func TestNetworkCap(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		active  bool
		network string
		want    string
	}{
		{name: "inactive no network", active: false, want: "none"},
		{name: "active default network", active: true, want: ""},
		{name: "named network", active: true, network: "vpn", want: "container:net-vpn"},
		{name: "named network wins when inactive", active: false, network: "vpn", want: "container:net-vpn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := &envfile.Environment{Name: "e", Network: tt.network}
			scope, err := applyCap(t, envfile.CapNetwork, tt.active, env, newFakeHost())
			if err != nil {
				t.Fatalf("networkCap: %v", err)
			}
			if got := scope.Ctx.Namespace("network"); got != tt.want {
				t.Errorf("network namespace = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSocketCapsRequireHostEnv(t *testing.T) {
	t.Parallel()

	tests := []struct {
		cap      envfile.CapabilityName
		variable string
	}{
		{cap: envfile.CapX11, variable: "DISPLAY"},
		{cap: envfile.CapPulseaudio, variable: "XDG_RUNTIME_DIR"},
		{cap: envfile.CapSSH, variable: "SSH_AUTH_SOCK"},
		{cap: envfile.CapGPG, variable: "XDG_RUNTIME_DIR"},
	}

	for _, tt := range tests {
		t.Run(string(tt.cap), func(t *testing.T) {
			t.Parallel()
			_, err := applyCap(t, tt.cap, true, &envfile.Environment{Name: "e"}, newFakeHost())
			if !errors.Is(err, ErrMissingHostEnv) {
				t.Fatalf("got %v, want ErrMissingHostEnv", err)
			}
			var missing *MissingHostEnvError
			if !errors.As(err, &missing) {
				t.Fatalf("got %T, want *MissingHostEnvError", err)
			}
			if missing.Variable != tt.variable {
				t.Errorf("got variable %q, want %q", missing.Variable, tt.variable)
			}
		})
	}
}

func TestX11Cap(t *testing.T) {
	t.Parallel()

	host := newFakeHost()
	host.env["DISPLAY"] = ":0"
	scope, err := applyCap(t, envfile.CapX11, true, &envfile.Environment{Name: "e"}, host)
	if err != nil {
		t.Fatalf("x11Cap: %v", err)
	}
	if !scope.Ctx.MountedAt("/tmp/.X11-unix") {
		t.Error("x11 socket not mounted")
	}
	if scope.Ctx.Environ["DISPLAY"] != ":0" {
		t.Errorf("DISPLAY = %q, want :0", scope.Ctx.Environ["DISPLAY"])
	}
}

func TestPulseaudioCap(t *testing.T) {
	t.Parallel()

	host := newFakeHost()
	host.env["XDG_RUNTIME_DIR"] = "/run/user/4242"
	env := &envfile.Environment{Name: "e"}
	scope := NewScope(NewExecutionContext(), env, host)
	if err := rootCap(false, scope); err != nil {
		t.Fatalf("rootCap: %v", err)
	}
	if err := pulseaudioCap(true, scope); err != nil {
		t.Fatalf("pulseaudioCap: %v", err)
	}

	machineID := scope.Ctx.Mounts["/etc/machine-id"]
	if machineID.HostPath != "/etc/machine-id" || !machineID.readOnly() {
		t.Errorf("machine-id mount = %+v, want read-only bind", machineID)
	}
	pulse := scope.Ctx.Mounts["/run/user/1000/pulse"]
	if pulse.HostPath != "/run/user/4242/pulse" {
		t.Errorf("pulse mount = %+v", pulse)
	}
	if got := scope.Ctx.Environ["PULSE_SERVER"]; got != "/run/user/1000/pulse/native" {
		t.Errorf("PULSE_SERVER = %q", got)
	}
}

func TestGitCap(t *testing.T) {
	t.Parallel()

	t.Run("no gitconfig is a no-op", func(t *testing.T) {
		t.Parallel()
		scope, err := applyCap(t, envfile.CapGit, true, &envfile.Environment{Name: "e"}, newFakeHost())
		if err != nil {
			t.Fatalf("gitCap: %v", err)
		}
		if len(scope.Ctx.Mounts) != 0 {
			t.Errorf("unexpected mounts: %v", scope.Ctx.Mounts)
		}
	})

	t.Run("mounts config and referenced files", func(t *testing.T) {
		t.Parallel()
		host := newFakeHost()
		host.files["/home/alice/.gitconfig"] = "[core]\n" +
			"\texcludesfile = ~/.gitignore\n" +
			"[credential]\n" +
			"\thelper = store --file ~/.git-credentials\n"
		host.files["/home/alice/.gitignore"] = "*.swp\n"
		host.files["/home/alice/.git-credentials"] = "https://token@example.com\n"

		env := &envfile.Environment{Name: "e"}
		scope := NewScope(NewExecutionContext(), env, host)
		if err := rootCap(false, scope); err != nil {
			t.Fatalf("rootCap: %v", err)
		}
		if err := gitCap(true, scope); err != nil {
			t.Fatalf("gitCap: %v", err)
		}

		wantMounts := map[string]string{
			"/home/user/.gitconfig":       "/home/alice/.gitconfig",
			"/home/user/.gitignore":       "/home/alice/.gitignore",
			"/home/user/.git-credentials": "/home/alice/.git-credentials",
		}
		for containerPath, hostPath := range wantMounts {
			src, ok := scope.Ctx.Mounts[containerPath]
			if !ok {
				t.Errorf("missing mount at %s", containerPath)
				continue
			}
			if src.HostPath != hostPath {
				t.Errorf("mount %s = %q, want %q", containerPath, src.HostPath, hostPath)
			}
		}
	})

	t.Run("missing referenced files are skipped", func(t *testing.T) {
		t.Parallel()
		host := newFakeHost()
		host.files["/home/alice/.gitconfig"] = "excludesfile = ~/.gitignore\n"

		env := &envfile.Environment{Name: "e"}
		scope := NewScope(NewExecutionContext(), env, host)
		if err := rootCap(false, scope); err != nil {
			t.Fatalf("rootCap: %v", err)
		}
		if err := gitCap(true, scope); err != nil {
			t.Fatalf("gitCap: %v", err)
		}
		if scope.Ctx.MountedAt("/home/user/.gitignore") {
			t.Error("nonexistent excludesfile was mounted")
		}
		if !scope.Ctx.MountedAt("/home/user/.gitconfig") {
			t.Error("gitconfig itself not mounted")
		}
	})
}

func TestEditorCap(t *testing.T) {
	t.Parallel()

	t.Run("host editor", func(t *testing.T) {
		t.Parallel()
		host := newFakeHost()
		host.env["EDITOR"] = "emacs"
		env := &envfile.Environment{Name: "e"}
		scope, err := applyCap(t, envfile.CapEditor, true, env, host)
		if err != nil {
			t.Fatalf("editorCap: %v", err)
		}
		if scope.Ctx.Environ["EDITOR"] != "emacs" {
			t.Errorf("EDITOR = %q", scope.Ctx.Environ["EDITOR"])
		}
	})

	t.Run("default editor and package", func(t *testing.T) {
		t.Parallel()
		env := &envfile.Environment{Name: "e"}
		scope, err := applyCap(t, envfile.CapEditor, true, env, newFakeHost())
		if err != nil {
			t.Fatalf("editorCap: %v", err)
		}
		if scope.Ctx.Environ["EDITOR"] != "vi" {
			t.Errorf("EDITOR = %q, want vi", scope.Ctx.Environ["EDITOR"])
		}
		if !slices.Contains(env.Packages, "vi") {
			t.Errorf("packages = %v, want vi appended", env.Packages)
		}
	})
}

func TestWebcamCap(t *testing.T) {
	t.Parallel()

	t.Run("filters video devices", func(t *testing.T) {
		t.Parallel()
		host := newFakeHost()
		host.dirs["/dev"] = []string{"video1", "null", "video0", "tty0"}
		scope, err := applyCap(t, envfile.CapWebcam, true, &envfile.Environment{Name: "e"}, host)
		if err != nil {
			t.Fatalf("webcamCap: %v", err)
		}
		want := []string{"/dev/video0", "/dev/video1"}
		if !slices.Equal(scope.Ctx.Devices, want) {
			t.Errorf("devices = %v, want %v", scope.Ctx.Devices, want)
		}
	})

	t.Run("listing failure warns and continues", func(t *testing.T) {
		t.Parallel()
		scope, err := applyCap(t, envfile.CapWebcam, true, &envfile.Environment{Name: "e"}, newFakeHost())
		if err != nil {
			t.Fatalf("webcamCap: %v", err)
		}
		if len(scope.Warnings()) != 1 {
			t.Errorf("warnings = %v, want one", scope.Warnings())
		}
	})
}

func TestDeviceAndConfinementCaps(t *testing.T) {
	t.Parallel()

	env := func() *envfile.Environment { return &envfile.Environment{Name: "e"} }

	scope, _ := applyCap(t, envfile.CapDRI, true, env(), newFakeHost())
	if !slices.Contains(scope.Ctx.Devices, "/dev/dri") {
		t.Errorf("dri devices = %v", scope.Ctx.Devices)
	}

	scope, _ = applyCap(t, envfile.CapKVM, true, env(), newFakeHost())
	if !slices.Contains(scope.Ctx.Devices, "/dev/kvm") {
		t.Errorf("kvm devices = %v", scope.Ctx.Devices)
	}

	scope, _ = applyCap(t, envfile.CapTun, true, env(), newFakeHost())
	if !slices.Contains(scope.Ctx.Devices, "/dev/net/tun") {
		t.Errorf("tun devices = %v", scope.Ctx.Devices)
	}

	scope, _ = applyCap(t, envfile.CapSeccomp, false, env(), newFakeHost())
	if scope.Ctx.SeccompProfile != "unconfined" {
		t.Errorf("seccomp = %q, want unconfined", scope.Ctx.SeccompProfile)
	}
	scope, _ = applyCap(t, envfile.CapSeccomp, true, env(), newFakeHost())
	if scope.Ctx.SeccompProfile != "" {
		t.Errorf("seccomp = %q, want empty", scope.Ctx.SeccompProfile)
	}

	scope, _ = applyCap(t, envfile.CapSELinux, false, env(), newFakeHost())
	if scope.Ctx.SELinuxLabel != "disable" {
		t.Errorf("selinux label = %q, want disable", scope.Ctx.SELinuxLabel)
	}
	scope, _ = applyCap(t, envfile.CapSELinux, true, env(), newFakeHost())
	if scope.Ctx.SELinuxLabel != "" {
		t.Errorf("selinux label = %q, want empty", scope.Ctx.SELinuxLabel)
	}

	scope, _ = applyCap(t, envfile.CapSetuid, true, env(), newFakeHost())
	if !scope.Ctx.HasSyscap("SETUID") || !scope.Ctx.HasSyscap("SETGID") {
		t.Errorf("setuid syscaps = %v", scope.Ctx.Syscaps)
	}

	scope, _ = applyCap(t, envfile.CapPtrace, true, env(), newFakeHost())
	if !scope.Ctx.HasSyscap("SYS_PTRACE") {
		t.Errorf("ptrace syscaps = %v", scope.Ctx.Syscaps)
	}
}

func TestFlagCaps(t *testing.T) {
	t.Parallel()

	env := &envfile.Environment{Name: "e"}
	scope, _ := applyCap(t, envfile.CapPrivileged, true, env, newFakeHost())
	if !scope.Ctx.Privileged {
		t.Error("privileged not set")
	}

	scope, _ = applyCap(t, envfile.CapTerminal, true, env, newFakeHost())
	if !scope.Ctx.Interactive || scope.Ctx.DetachKeys != "ctrl-e,e" {
		t.Errorf("terminal: interactive=%v detachKeys=%q", scope.Ctx.Interactive, scope.Ctx.DetachKeys)
	}

	scope, _ = applyCap(t, envfile.CapIPC, true, env, newFakeHost())
	if scope.Ctx.Namespace("ipc") != "host" {
		t.Errorf("ipc namespace = %q", scope.Ctx.Namespace("ipc"))
	}

	env = &envfile.Environment{Name: "e"}
	if _, err := applyCap(t, envfile.CapManageImage, true, env, newFakeHost()); err != nil {
		t.Fatal(err)
	}
	if !env.ManageImage {
		t.Error("manage-image flag not set")
	}

	env = &envfile.Environment{Name: "e"}
	if _, err := applyCap(t, envfile.CapAutoUpdate, true, env, newFakeHost()); err != nil {
		t.Fatal(err)
	}
	if !env.AutoUpdate {
		t.Error("auto-update flag not set")
	}

	env = &envfile.Environment{Name: "e"}
	if _, err := applyCap(t, envfile.CapMountCache, true, env, newFakeHost()); err != nil {
		t.Fatal(err)
	}
	if !env.MountCache {
		t.Error("mount-cache flag not set")
	}

	scope, _ = applyCap(t, envfile.CapUIDMap, true, &envfile.Environment{Name: "e"}, newFakeHost())
	if !scope.Ctx.UIDMap {
		t.Error("uid-map not set")
	}
}

func TestMountCwdCap(t *testing.T) {
	t.Parallel()

	scope, err := applyCap(t, envfile.CapMountCwd, true, &envfile.Environment{Name: "e"}, newFakeHost())
	if err != nil {
		t.Fatalf("mountCwdCap: %v", err)
	}
	if scope.Ctx.Cwd != "/data" {
		t.Errorf("cwd = %q, want /data", scope.Ctx.Cwd)
	}
	if src := scope.Ctx.Mounts["/data"]; src.HostPath != "/src/project" {
		t.Errorf("mount = %+v, want workdir bind", src)
	}
}

func TestMountRunCap(t *testing.T) {
	t.Parallel()

	t.Run("requires run directory", func(t *testing.T) {
		t.Parallel()
		_, err := applyCap(t, envfile.CapMountRun, true, &envfile.Environment{Name: "e"}, newFakeHost())
		if !errors.Is(err, ErrMissingRunDir) {
			t.Fatalf("got %v, want ErrMissingRunDir", err)
		}
	})

	t.Run("mounts home and tmp", func(t *testing.T) {
		t.Parallel()
		env := &envfile.Environment{Name: "e", RunDir: "/run/user/1000/podbox/e"}
		scope := NewScope(NewExecutionContext(), env, newFakeHost())
		if err := rootCap(false, scope); err != nil {
			t.Fatalf("rootCap: %v", err)
		}
		if err := mountRunCap(true, scope); err != nil {
			t.Fatalf("mountRunCap: %v", err)
		}
		if src := scope.Ctx.Mounts["/home/user"]; src.HostPath != "/run/user/1000/podbox/e/home" {
			t.Errorf("home mount = %+v", src)
		}
		if src := scope.Ctx.Mounts["/tmp"]; src.HostPath != "/run/user/1000/podbox/e/tmp" {
			t.Errorf("tmp mount = %+v", src)
		}
	})

	t.Run("declared home wins over run home", func(t *testing.T) {
		t.Parallel()
		env := &envfile.Environment{Name: "e", Home: "~/boxes/e", RunDir: "/run/p/e"}
		scope := NewScope(NewExecutionContext(), env, newFakeHost())
		if err := rootCap(false, scope); err != nil {
			t.Fatalf("rootCap: %v", err)
		}
		if err := mountRunCap(true, scope); err != nil {
			t.Fatalf("mountRunCap: %v", err)
		}
		if scope.Ctx.MountedAt("/home/user") {
			t.Error("run home mounted despite declared home")
		}
		if !scope.Ctx.MountedAt("/tmp") {
			t.Error("tmp not mounted")
		}
	})
}
