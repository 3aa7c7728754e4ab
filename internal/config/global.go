// SPDX-License-Identifier: MPL-2.0

package config

// configDirOverride redirects ConfigDir, for tests.
var configDirOverride string

// SetConfigDirOverride overrides the configuration directory. Pass an
// empty string to restore the platform default.
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}
