// SPDX-License-Identifier: MPL-2.0

package image

import (
	"errors"
	"strings"
	"testing"

	"podbox/pkg/envfile"
)

func TestReference(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		env     *envfile.Environment
		want    string
		wantErr bool
	}{
		{
			name: "managed image uses the local tag",
			env:  &envfile.Environment{Name: "dev", Image: "fedora:42", ManageImage: true},
			want: "localhost/podbox/dev",
		},
		{
			name: "unmanaged image runs directly",
			env:  &envfile.Environment{Name: "dev", Image: "fedora:42"},
			want: "fedora:42",
		},
		{
			name: "rootfs fallback",
			env:  &envfile.Environment{Name: "dev", Rootfs: "/srv/rootfs"},
			want: "/srv/rootfs",
		},
		{
			name:    "nothing to run",
			env:     &envfile.Environment{Name: "dev"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Reference(tt.env)
			if tt.wantErr {
				if !errors.Is(err, ErrNoImage) {
					t.Fatalf("got %v, want ErrNoImage", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Reference: %v", err)
			}
			if got != tt.want {
				t.Errorf("Reference = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContainerfile(t *testing.T) {
	t.Parallel()

	t.Run("fedora packages", func(t *testing.T) {
		t.Parallel()
		env := &envfile.Environment{
			Name:     "dev",
			Image:    "registry.fedoraproject.org/fedora:42",
			Packages: []string{"vim", "git", "vim"},
		}
		content, err := Containerfile(env)
		if err != nil {
			t.Fatalf("Containerfile: %v", err)
		}
		want := "FROM registry.fedoraproject.org/fedora:42\n" +
			"RUN dnf install -y git vim\n"
		if content != want {
			t.Errorf("content mismatch\ngot:\n%s\nwant:\n%s", content, want)
		}
	})

	t.Run("debian packages", func(t *testing.T) {
		t.Parallel()
		env := &envfile.Environment{Name: "dev", Image: "debian:13", Packages: []string{"git"}}
		content, err := Containerfile(env)
		if err != nil {
			t.Fatalf("Containerfile: %v", err)
		}
		if !strings.Contains(content, "RUN apt-get update && apt-get install -y git\n") {
			t.Errorf("content = %q", content)
		}
	})

	t.Run("customizations become RUN layers", func(t *testing.T) {
		t.Parallel()
		env := &envfile.Environment{
			Name:  "dev",
			Image: "fedora:42",
			ImageCustomizations: []string{
				"useradd -u 1000 user",
				"dnf clean all",
			},
		}
		content, err := Containerfile(env)
		if err != nil {
			t.Fatalf("Containerfile: %v", err)
		}
		want := "FROM fedora:42\n" +
			"RUN useradd -u 1000 user\n" +
			"RUN dnf clean all\n"
		if content != want {
			t.Errorf("content mismatch\ngot:\n%s\nwant:\n%s", content, want)
		}
	})

	t.Run("package names are shell quoted", func(t *testing.T) {
		t.Parallel()
		env := &envfile.Environment{Name: "dev", Image: "fedora:42", Packages: []string{"pkg name"}}
		content, err := Containerfile(env)
		if err != nil {
			t.Fatalf("Containerfile: %v", err)
		}
		if !strings.Contains(content, "'pkg name'") && !strings.Contains(content, `"pkg name"`) {
			t.Errorf("package name not quoted: %q", content)
		}
	})

	t.Run("no base image", func(t *testing.T) {
		t.Parallel()
		if _, err := Containerfile(&envfile.Environment{Name: "dev"}); !errors.Is(err, ErrNoImage) {
			t.Fatalf("got %v, want ErrNoImage", err)
		}
	})
}
