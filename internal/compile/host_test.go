// SPDX-License-Identifier: MPL-2.0

package compile

import (
	"fmt"
	"sort"
	"testing"
)

// fakeHost is an in-memory Host for deterministic resolution tests.
type fakeHost struct {
	env        map[string]string
	home       string
	workdir    string
	files      map[string]string
	dirs       map[string][]string
	unreadable map[string]bool
	labels     map[string]string
	labelAware bool
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		env:        map[string]string{},
		home:       "/home/alice",
		workdir:    "/src/project",
		files:      map[string]string{},
		dirs:       map[string][]string{},
		unreadable: map[string]bool{},
		labels:     map[string]string{},
	}
}

func (h *fakeHost) Getenv(key string) (string, bool) {
	value, ok := h.env[key]
	return value, ok
}

func (h *fakeHost) HomeDir() string { return h.home }
func (h *fakeHost) WorkDir() string { return h.workdir }

func (h *fakeHost) Exists(path string) bool {
	if _, ok := h.files[path]; ok {
		return true
	}
	_, ok := h.dirs[path]
	return ok
}

func (h *fakeHost) IsFile(path string) bool {
	_, ok := h.files[path]
	return ok
}

func (h *fakeHost) Readable(path string) bool {
	return !h.unreadable[path]
}

func (h *fakeHost) ReadFile(path string) ([]byte, error) {
	content, ok := h.files[path]
	if !ok {
		return nil, fmt.Errorf("no such file: %s", path)
	}
	return []byte(content), nil
}

func (h *fakeHost) ListDir(path string) ([]string, error) {
	entries, ok := h.dirs[path]
	if !ok {
		return nil, fmt.Errorf("no such directory: %s", path)
	}
	out := append([]string(nil), entries...)
	sort.Strings(out)
	return out, nil
}

func (h *fakeHost) LabelAware() bool { return h.labelAware }

func (h *fakeHost) FileLabel(path string) (string, bool) {
	label, ok := h.labels[path]
	return label, ok
}

func TestExpandUser(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
		home string
		want string
	}{
		{name: "tilde slash", path: "~/notes", home: "/home/alice", want: "/home/alice/notes"},
		{name: "bare tilde", path: "~", home: "/home/alice", want: "/home/alice"},
		{name: "absolute untouched", path: "/etc/hosts", home: "/home/alice", want: "/etc/hosts"},
		{name: "relative untouched", path: "notes", home: "/home/alice", want: "notes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := expandUser(tt.path, tt.home); got != tt.want {
				t.Errorf("expandUser(%q, %q) = %q, want %q", tt.path, tt.home, got, tt.want)
			}
		})
	}
}

func TestJoinUnder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		base string
		path string
		want string
	}{
		{name: "tilde slash", base: "/home/user", path: "~/notes", want: "/home/user/notes"},
		{name: "absolute passes through", base: "/home/user", path: "/data", want: "/data"},
		{name: "relative joins", base: "/home/user", path: ".config", want: "/home/user/.config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := joinUnder(tt.base, tt.path); got != tt.want {
				t.Errorf("joinUnder(%q, %q) = %q, want %q", tt.base, tt.path, got, tt.want)
			}
		})
	}
}
