// SPDX-License-Identifier: MPL-2.0

package envfile

import (
	"errors"
	"slices"
	"testing"
)

func TestMerge(t *testing.T) {
	t.Parallel()

	t.Run("scalars inherit when unset", func(t *testing.T) {
		t.Parallel()
		child := &Environment{Name: "child", Parent: "base"}
		parent := &Environment{
			Name:    "base",
			Image:   "fedora:42",
			DNS:     "1.1.1.1",
			Network: "vpn",
			Home:    "~/boxes/base",
			ShmSize: "2g",
			Desktop: &DesktopConfig{Name: "Base"},
		}
		out := Merge(child, parent)
		if out.Image != "fedora:42" || out.DNS != "1.1.1.1" || out.Network != "vpn" {
			t.Errorf("scalars not inherited: %+v", out)
		}
		if out.Home != "~/boxes/base" || out.ShmSize != "2g" {
			t.Errorf("scalars not inherited: %+v", out)
		}
		if out.Desktop == nil || out.Desktop.Name != "Base" {
			t.Errorf("desktop not inherited: %+v", out.Desktop)
		}
	})

	t.Run("child scalars win", func(t *testing.T) {
		t.Parallel()
		child := &Environment{Name: "child", Image: "alpine", DNS: "9.9.9.9"}
		parent := &Environment{Name: "base", Image: "fedora:42", DNS: "1.1.1.1"}
		out := Merge(child, parent)
		if out.Image != "alpine" || out.DNS != "9.9.9.9" {
			t.Errorf("child scalars overridden: %+v", out)
		}
	})

	t.Run("lists concatenate child first", func(t *testing.T) {
		t.Parallel()
		child := &Environment{Name: "child", Packages: []string{"vim"}, Syscaps: []string{"NET_RAW"}}
		parent := &Environment{Name: "base", Packages: []string{"git", "make"}, Syscaps: []string{"SYS_PTRACE"}}
		out := Merge(child, parent)
		if want := []string{"vim", "git", "make"}; !slices.Equal(out.Packages, want) {
			t.Errorf("packages = %v, want %v", out.Packages, want)
		}
		if want := []string{"NET_RAW", "SYS_PTRACE"}; !slices.Equal(out.Syscaps, want) {
			t.Errorf("syscaps = %v, want %v", out.Syscaps, want)
		}
	})

	t.Run("command is never inherited", func(t *testing.T) {
		t.Parallel()
		child := &Environment{Name: "child"}
		parent := &Environment{Name: "base", Command: []string{"/bin/bash"}}
		out := Merge(child, parent)
		if len(out.Command) != 0 {
			t.Errorf("command inherited: %v", out.Command)
		}

		child = &Environment{Name: "child", Command: []string{"tool"}}
		out = Merge(child, parent)
		if want := []string{"tool"}; !slices.Equal(out.Command, want) {
			t.Errorf("command = %v, want %v", out.Command, want)
		}
	})

	t.Run("maps merge with child winning", func(t *testing.T) {
		t.Parallel()
		child := &Environment{
			Name:    "child",
			Environ: map[string]string{"LANG": "C.UTF-8"},
		}
		child.SetCapability(CapTerminal, false)
		parent := &Environment{
			Name:    "base",
			Environ: map[string]string{"LANG": "C", "TERM": "xterm"},
		}
		parent.SetCapability(CapTerminal, true)
		parent.SetCapability(CapNetwork, true)

		out := Merge(child, parent)
		if out.Environ["LANG"] != "C.UTF-8" {
			t.Errorf("child environ overridden: %v", out.Environ)
		}
		if out.Environ["TERM"] != "xterm" {
			t.Errorf("parent environ lost: %v", out.Environ)
		}
		if out.HasCapability(CapTerminal) {
			t.Error("child capability override lost")
		}
		if !out.HasCapability(CapNetwork) {
			t.Error("parent capability lost")
		}
	})

	t.Run("child is not modified", func(t *testing.T) {
		t.Parallel()
		child := &Environment{Name: "child", Packages: []string{"vim"}}
		parent := &Environment{Name: "base", Packages: []string{"git"}}
		Merge(child, parent)
		if want := []string{"vim"}; !slices.Equal(child.Packages, want) {
			t.Errorf("child mutated: %v", child.Packages)
		}
	})
}

func TestSetAdd(t *testing.T) {
	t.Parallel()

	set := NewSet()
	if err := set.Add(&Environment{Name: "dev", FilePath: "a.cue"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	err := set.Add(&Environment{Name: "dev", FilePath: "b.cue"})
	if !errors.Is(err, ErrDuplicateEnvironment) {
		t.Fatalf("got %v, want ErrDuplicateEnvironment", err)
	}

	if err := set.Add(&Environment{Name: "web"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if want := []string{"dev", "web"}; !slices.Equal(set.Names(), want) {
		t.Errorf("Names() = %v, want %v", set.Names(), want)
	}
	if set.Len() != 2 {
		t.Errorf("Len() = %d, want 2", set.Len())
	}
}

func TestSetResolve(t *testing.T) {
	t.Parallel()

	t.Run("transitive inheritance", func(t *testing.T) {
		t.Parallel()
		set := NewSet()
		for _, env := range []*Environment{
			{Name: "base", Image: "fedora:42", Packages: []string{"git"}},
			{Name: "gui", Parent: "base", Packages: []string{"xeyes"}},
			{Name: "dev", Parent: "gui", Packages: []string{"gcc"}},
		} {
			if err := set.Add(env); err != nil {
				t.Fatalf("Add: %v", err)
			}
		}

		resolved, err := set.Resolve("dev")
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if resolved.Image != "fedora:42" {
			t.Errorf("image = %q", resolved.Image)
		}
		if want := []string{"gcc", "xeyes", "git"}; !slices.Equal(resolved.Packages, want) {
			t.Errorf("packages = %v, want %v", resolved.Packages, want)
		}
	})

	t.Run("unknown environment", func(t *testing.T) {
		t.Parallel()
		_, err := NewSet().Resolve("ghost")
		if !errors.Is(err, ErrUnknownEnvironment) {
			t.Fatalf("got %v, want ErrUnknownEnvironment", err)
		}
	})

	t.Run("unknown parent", func(t *testing.T) {
		t.Parallel()
		set := NewSet()
		if err := set.Add(&Environment{Name: "dev", Parent: "ghost"}); err != nil {
			t.Fatalf("Add: %v", err)
		}
		_, err := set.Resolve("dev")
		if !errors.Is(err, ErrUnknownEnvironment) {
			t.Fatalf("got %v, want ErrUnknownEnvironment", err)
		}
	})

	t.Run("cycle detection", func(t *testing.T) {
		t.Parallel()
		set := NewSet()
		for _, env := range []*Environment{
			{Name: "a", Parent: "b"},
			{Name: "b", Parent: "c"},
			{Name: "c", Parent: "a"},
		} {
			if err := set.Add(env); err != nil {
				t.Fatalf("Add: %v", err)
			}
		}

		_, err := set.Resolve("a")
		if !errors.Is(err, ErrInheritanceCycle) {
			t.Fatalf("got %v, want ErrInheritanceCycle", err)
		}
		var cycle *InheritanceCycleError
		if !errors.As(err, &cycle) {
			t.Fatalf("got %T, want *InheritanceCycleError", err)
		}
		if want := []string{"a", "b", "c", "a"}; !slices.Equal(cycle.Chain, want) {
			t.Errorf("chain = %v, want %v", cycle.Chain, want)
		}
	})

	t.Run("self cycle", func(t *testing.T) {
		t.Parallel()
		set := NewSet()
		if err := set.Add(&Environment{Name: "a", Parent: "a"}); err != nil {
			t.Fatalf("Add: %v", err)
		}
		_, err := set.Resolve("a")
		if !errors.Is(err, ErrInheritanceCycle) {
			t.Fatalf("got %v, want ErrInheritanceCycle", err)
		}
	})

	t.Run("resolution returns a copy", func(t *testing.T) {
		t.Parallel()
		set := NewSet()
		if err := set.Add(&Environment{Name: "dev", Packages: []string{"git"}}); err != nil {
			t.Fatalf("Add: %v", err)
		}
		resolved, err := set.Resolve("dev")
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		resolved.Packages[0] = "vim"
		raw, _ := set.Get("dev")
		if raw.Packages[0] != "git" {
			t.Error("resolution mutated the stored environment")
		}
	})
}
