// SPDX-License-Identifier: MPL-2.0

// Package envfile defines the declarative environment record and its
// inheritance semantics.
//
// Environments are declared in envfile.cue documents validated against
// an embedded CUE schema. Each environment names a container image, a
// command, and a set of named capabilities (networking, x11, ssh agent
// sharing, ...) that the resolution engine in internal/compile turns
// into a concrete container invocation.
//
// An environment may name a parent environment to inherit from. The
// merge rules are per-field: unset scalars inherit the parent value,
// lists are the child's entries followed by the parent's (except the
// command, which is never inherited), and maps are the parent's entries
// overridden by the child's.
package envfile
