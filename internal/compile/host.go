// SPDX-License-Identifier: MPL-2.0

package compile

import (
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// Host is the read-only view of the machine podbox runs on. Capability
// handlers and the validator consult it instead of the process
// environment or the filesystem directly, which keeps resolution
// deterministic under test.
type Host interface {
	// Getenv returns the named host environment variable.
	Getenv(key string) (string, bool)
	// HomeDir returns the host user's home directory.
	HomeDir() string
	// WorkDir returns the current working directory.
	WorkDir() string
	// Exists reports whether the path exists.
	Exists(path string) bool
	// IsFile reports whether the path exists and is a regular file.
	IsFile(path string) bool
	// Readable reports whether the current user can read the path.
	Readable(path string) bool
	// ReadFile returns the contents of the file at path.
	ReadFile(path string) ([]byte, error)
	// ListDir returns the entry names of the directory at path.
	ListDir(path string) ([]string, error)
	// LabelAware reports whether confinement-label inspection is
	// available on this host. When false, FileLabel never succeeds and
	// label-based validation is skipped entirely.
	LabelAware() bool
	// FileLabel returns the confinement type of the file at path (the
	// third field of its SELinux context). ok is false when the label
	// cannot be read.
	FileLabel(path string) (label string, ok bool)
}

// OSHost is the production Host backed by the real process environment
// and filesystem.
type OSHost struct{}

// NewOSHost returns a Host backed by the operating system.
func NewOSHost() *OSHost {
	return &OSHost{}
}

// Getenv returns the named process environment variable.
func (h *OSHost) Getenv(key string) (string, bool) {
	return os.LookupEnv(key)
}

// HomeDir returns the current user's home directory, or "/" when it
// cannot be determined.
func (h *OSHost) HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "/"
	}
	return home
}

// WorkDir returns the current working directory, or "/" when it cannot
// be determined.
func (h *OSHost) WorkDir() string {
	wd, err := os.Getwd()
	if err != nil {
		return "/"
	}
	return wd
}

// Exists reports whether the path exists.
func (h *OSHost) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsFile reports whether the path is a regular file.
func (h *OSHost) IsFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Readable reports whether the real uid can read the path.
func (h *OSHost) Readable(path string) bool {
	return unix.Access(path, unix.R_OK) == nil
}

// ReadFile returns the contents of the file at path.
func (h *OSHost) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// ListDir returns the entry names of the directory at path.
func (h *OSHost) ListDir(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names, nil
}

// LabelAware reports whether an SELinux filesystem is mounted.
func (h *OSHost) LabelAware() bool {
	info, err := os.Stat("/sys/fs/selinux")
	return err == nil && info.IsDir()
}

// FileLabel returns the SELinux type of the file at path, read from the
// security.selinux xattr (e.g. "container_file_t" out of
// "system_u:object_r:container_file_t:s0").
func (h *OSHost) FileLabel(path string) (string, bool) {
	buf := make([]byte, 256)
	n, err := unix.Getxattr(path, "security.selinux", buf)
	if err != nil || n <= 0 {
		return "", false
	}
	context := strings.TrimRight(string(buf[:n]), "\x00")
	fields := strings.Split(context, ":")
	if len(fields) < 3 {
		return "", false
	}
	return fields[2], true
}

// expandUser rewrites a leading "~" or "~/" to the given home directory.
func expandUser(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return home + path[1:]
	}
	return path
}

// joinUnder resolves a possibly "~/"-relative or relative path beneath
// base. Absolute paths pass through unchanged.
func joinUnder(base, path string) string {
	switch {
	case strings.HasPrefix(path, "~/"):
		return base + path[1:]
	case strings.HasPrefix(path, "/"):
		return path
	default:
		return base + "/" + path
	}
}
