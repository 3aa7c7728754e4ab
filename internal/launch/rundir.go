// SPDX-License-Identifier: MPL-2.0

package launch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"podbox/pkg/envfile"
)

// prepareRunDir creates the per-run scratch directory with its home/
// and tmp/ subdirectories and records it on the environment. Declared
// overlays are copied into the run home before the container starts.
func (l *Launcher) prepareRunDir(env *envfile.Environment) error {
	runDir := filepath.Join(l.runBase, env.Name)
	for _, sub := range []string{"home", "tmp"} {
		if err := os.MkdirAll(filepath.Join(runDir, sub), 0o700); err != nil {
			return fmt.Errorf("failed to create run directory: %w", err)
		}
	}
	env.RunDir = runDir

	return l.copyOverlays(env, filepath.Join(runDir, "home"))
}

// copyOverlays copies each declared overlay tree into the run home.
// Relative overlay paths resolve against the directory of the envfile
// that declared the environment. A missing overlay is a discovery
// problem, logged and skipped.
func (l *Launcher) copyOverlays(env *envfile.Environment, runHome string) error {
	for _, overlay := range env.Overlays {
		src := l.resolveOverlay(env, overlay)
		info, err := os.Stat(src)
		if err != nil || !info.IsDir() {
			l.logger.Warn("overlay not found, skipping", "overlay", overlay, "path", src)
			continue
		}
		if err := os.CopyFS(runHome, os.DirFS(src)); err != nil {
			return fmt.Errorf("failed to copy overlay %q: %w", overlay, err)
		}
	}
	return nil
}

// resolveOverlay turns an overlay reference into a host path: "~/" maps
// to the host home, absolute paths pass through, anything else resolves
// under the declaring envfile's directory.
func (l *Launcher) resolveOverlay(env *envfile.Environment, overlay string) string {
	switch {
	case overlay == "~" || strings.HasPrefix(overlay, "~/"):
		return filepath.Join(l.host.HomeDir(), strings.TrimPrefix(overlay[1:], "/"))
	case filepath.IsAbs(overlay):
		return overlay
	default:
		return filepath.Join(filepath.Dir(env.FilePath), overlay)
	}
}
