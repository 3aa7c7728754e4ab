// SPDX-License-Identifier: MPL-2.0

package compile

import (
	"podbox/pkg/envfile"
)

var (
	// SELinuxConflictCaps need type enforcement rules the container
	// label cannot express, so selinux is disabled when any is active.
	SELinuxConflictCaps = []envfile.CapabilityName{
		envfile.CapX11, envfile.CapTun, envfile.CapPulseaudio,
	}

	// DACAccessCaps touch host files owned by the real uid and need the
	// uid mapping unless the container already runs as root.
	DACAccessCaps = []envfile.CapabilityName{
		envfile.CapX11, envfile.CapPulseaudio, envfile.CapSSH, envfile.CapGPG,
	}
)

// expectedMountLabel is the type a mounted host path must carry for the
// container to access it under selinux confinement.
const expectedMountLabel = "container_file_t"

// validate sanity-checks the resolved context and auto-repairs unsafe
// capability combinations. Every correction emits exactly one warning.
// The rules are idempotent: running validate twice on the same scope
// adds no warnings and changes nothing on the second pass.
func validate(s *Scope) error {
	// Socket-sharing capabilities conflict with selinux confinement.
	if s.Env.HasCapability(envfile.CapSELinux) {
		for _, cap := range SELinuxConflictCaps {
			if s.Env.HasCapability(cap) {
				s.Warnf("selinux is disabled because capability %q needs "+
					"extra type enforcement that is not currently supported", cap)
				s.Ctx.SELinuxLabel = "disable"
				s.Env.SetCapability(envfile.CapSELinux, false)
			}
		}
	}

	// Host file access needs the uid mapping when not running as root.
	if !s.Env.HasCapability(envfile.CapRoot) && !s.Env.HasCapability(envfile.CapUIDMap) {
		for _, cap := range DACAccessCaps {
			if s.Env.HasCapability(cap) {
				s.Warnf("uid-map is required because %q needs access to host files", cap)
				s.Ctx.UIDMap = true
				s.Env.SetCapability(envfile.CapUIDMap, true)
				break
			}
		}
	}

	// The tun device is useless without NET_ADMIN.
	if s.Env.HasCapability(envfile.CapTun) && !s.Ctx.HasSyscap("NET_ADMIN") {
		s.Warnf("NET_ADMIN capability is needed by the tun device")
		s.Ctx.AddSyscap("NET_ADMIN")
	}

	// Check mount point labels while confinement is still on.
	if s.Env.HasCapability(envfile.CapSELinux) && s.Host.LabelAware() {
		for _, containerPath := range sortedKeys(s.Ctx.Mounts) {
			src := s.Ctx.Mounts[containerPath]
			if src.Volume != nil || !s.Host.Exists(src.HostPath) {
				continue
			}
			label, ok := s.Host.FileLabel(src.HostPath)
			if ok && label != expectedMountLabel {
				s.Warnf("selinux is disabled because %s doesn't have the %s "+
					"label. To set the label run: chcon -Rt %s %s",
					src.HostPath, expectedMountLabel, expectedMountLabel, src.HostPath)
				s.Ctx.SELinuxLabel = "disable"
				s.Env.SetCapability(envfile.CapSELinux, false)
			}
		}
	}

	// Unreadable mount sources are reported but left in place.
	for _, containerPath := range sortedKeys(s.Ctx.Mounts) {
		src := s.Ctx.Mounts[containerPath]
		if src.Volume != nil || !s.Host.Exists(src.HostPath) {
			continue
		}
		if !s.Host.Readable(src.HostPath) {
			s.Warnf("%s is not readable by the current user", src.HostPath)
		}
	}

	// Overlays are copied into the home mount, so one must exist.
	if len(s.Env.Overlays) > 0 && !s.Ctx.MountedAt(s.Ctx.Home) {
		s.Warnf("overlays need a home mount point, enabling the mount-run capability")
		s.Env.SetCapability(envfile.CapMountRun, true)
		if err := applyMountRun(s); err != nil {
			return err
		}
	}

	// Packages and customizations only take effect on a managed image.
	if !s.Env.ManageImage {
		if len(s.Env.Packages) > 0 {
			s.Warnf("the manage-image capability is required to install packages")
			s.Env.ManageImage = true
			s.Env.SetCapability(envfile.CapManageImage, true)
		}
		if len(s.Env.ImageCustomizations) > 0 {
			s.Warnf("the manage-image capability is required for image customizations")
			s.Env.ManageImage = true
			s.Env.SetCapability(envfile.CapManageImage, true)
		}
	}

	return nil
}
