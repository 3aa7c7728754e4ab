// SPDX-License-Identifier: MPL-2.0

package envfile

import "sort"

// Merge applies the parent's attributes to the child and returns the
// merged environment. The child is not modified. Rules, per field:
//
//   - scalars: an unset child value inherits the parent's value.
//   - lists: the child's entries followed by the parent's entries,
//     except Command, which is never inherited.
//   - maps: the parent's entries, overridden by the child's.
//
// Name and Parent are the child's own identity and are never merged.
// The merge table below is explicit per field so that adding a field to
// Environment without deciding its merge rule is a compile error
// waiting in the tests, not silent reflection behavior.
func Merge(child, parent *Environment) *Environment {
	out := child.Clone()

	// Scalars.
	if out.Description == "" {
		out.Description = parent.Description
	}
	if out.Image == "" {
		out.Image = parent.Image
	}
	if out.Rootfs == "" {
		out.Rootfs = parent.Rootfs
	}
	if out.DNS == "" {
		out.DNS = parent.DNS
	}
	if out.Network == "" {
		out.Network = parent.Network
	}
	if out.Home == "" {
		out.Home = parent.Home
	}
	if out.ShmSize == "" {
		out.ShmSize = parent.ShmSize
	}
	if out.Desktop == nil && parent.Desktop != nil {
		desktop := *parent.Desktop
		out.Desktop = &desktop
	}

	// Lists: child's own entries first, then the parent's. Command is
	// deliberately absent: a child either states its own command or has
	// none.
	out.ImageCustomizations = mergeList(out.ImageCustomizations, parent.ImageCustomizations)
	out.Packages = mergeList(out.Packages, parent.Packages)
	out.Args = mergeList(out.Args, parent.Args)
	out.Syscaps = mergeList(out.Syscaps, parent.Syscaps)
	out.Requires = mergeList(out.Requires, parent.Requires)
	out.Overlays = mergeList(out.Overlays, parent.Overlays)
	out.Ports = mergeList(out.Ports, parent.Ports)

	// Maps: parent first, child wins on collision.
	out.Environ = mergeMap(out.Environ, parent.Environ)
	out.Mounts = mergeMap(out.Mounts, parent.Mounts)
	out.Capabilities = mergeMap(out.Capabilities, parent.Capabilities)

	return out
}

func mergeList[T any](child, parent []T) []T {
	if len(parent) == 0 {
		return child
	}
	out := make([]T, 0, len(child)+len(parent))
	out = append(out, child...)
	out = append(out, parent...)
	return out
}

func mergeMap[V any](child, parent map[string]V) map[string]V {
	if len(parent) == 0 {
		return child
	}
	out := make(map[string]V, len(child)+len(parent))
	for k, v := range parent {
		out[k] = v
	}
	for k, v := range child {
		out[k] = v
	}
	return out
}

// Set is a collection of environments loaded from one or more envfiles,
// indexed by name.
type Set struct {
	envs map[string]*Environment
}

// NewSet returns an empty environment set.
func NewSet() *Set {
	return &Set{envs: make(map[string]*Environment)}
}

// Add registers an environment. Redeclaring a name is an error.
func (s *Set) Add(env *Environment) error {
	if _, ok := s.envs[env.Name]; ok {
		return &DuplicateEnvironmentError{Name: env.Name, FilePath: env.FilePath}
	}
	s.envs[env.Name] = env
	return nil
}

// Get returns the raw (unresolved) environment with the given name.
func (s *Set) Get(name string) (*Environment, bool) {
	env, ok := s.envs[name]
	return env, ok
}

// Names returns every environment name in sorted order.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.envs))
	for name := range s.envs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered environments.
func (s *Set) Len() int {
	return len(s.envs)
}

// Resolve returns a deep copy of the named environment with its full
// inheritance chain applied, walking parents transitively. An
// environment that is its own ancestor yields InheritanceCycleError.
func (s *Set) Resolve(name string) (*Environment, error) {
	env, ok := s.envs[name]
	if !ok {
		return nil, &UnknownEnvironmentError{Name: name}
	}

	resolved := env.Clone()
	chain := []string{name}
	seen := map[string]bool{name: true}

	for parentName := resolved.Parent; parentName != ""; {
		chain = append(chain, parentName)
		if seen[parentName] {
			return nil, &InheritanceCycleError{Chain: chain}
		}
		seen[parentName] = true

		parent, ok := s.envs[parentName]
		if !ok {
			return nil, &UnknownEnvironmentError{Name: parentName}
		}

		resolved = Merge(resolved, parent)
		parentName = parent.Parent
	}

	return resolved, nil
}
