// SPDX-License-Identifier: MPL-2.0

package compile

import (
	"fmt"
	"strings"

	"podbox/pkg/envfile"
)

// DesktopEntry is a rendered XDG desktop launcher for an environment.
type DesktopEntry struct {
	EnvName  string
	Name     string
	Icon     string
	Terminal bool
}

// NewDesktopEntry builds the launcher entry for an environment with a
// desktop definition. The icon, when not absolute, is resolved against
// the directory of the envfile that declared the environment, falling
// back to the literal value so theme icon names keep working.
func NewDesktopEntry(env *envfile.Environment, host Host) *DesktopEntry {
	if env.Desktop == nil {
		return nil
	}

	entry := &DesktopEntry{
		EnvName:  env.Name,
		Name:     env.Desktop.Name,
		Icon:     env.Desktop.Icon,
		Terminal: env.HasCapability(envfile.CapTerminal),
	}
	if entry.Name == "" {
		entry.Name = "podbox - " + env.Name
	}
	if entry.Icon != "" && !strings.HasPrefix(entry.Icon, "/") && env.FilePath != "" {
		relative := parentDir(env.FilePath) + "/" + entry.Icon
		if host.Exists(relative) {
			entry.Icon = relative
		}
	}
	return entry
}

// Render returns the desktop file content.
func (e *DesktopEntry) Render() string {
	var b strings.Builder
	b.WriteString("# Generated by podbox\n")
	b.WriteString("[Desktop Entry]\n")
	b.WriteString("Type=Application\n")
	fmt.Fprintf(&b, "Name=%s\n", e.Name)
	fmt.Fprintf(&b, "Comment=Podbox launcher for %s\n", e.EnvName)
	fmt.Fprintf(&b, "Exec=podbox run %s\n", e.EnvName)
	fmt.Fprintf(&b, "Terminal=%t\n", e.Terminal)
	if e.Icon != "" {
		fmt.Fprintf(&b, "Icon=%s\n", e.Icon)
	}
	return b.String()
}

// FileName returns the desktop file base name for the environment.
func (e *DesktopEntry) FileName() string {
	return "podbox-" + e.EnvName + ".desktop"
}

func parentDir(path string) string {
	if i := strings.LastIndex(path, "/"); i > 0 {
		return path[:i]
	}
	return "."
}
