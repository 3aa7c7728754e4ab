// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides shared CUE parsing helpers for podbox.
//
// Both the environment definitions (envfile.cue) and the application
// configuration (config.cue) are CUE documents validated against an
// embedded schema. This package implements the common flow: compile the
// schema, compile the user document, unify, validate, and decode into a
// Go struct, with error messages that point at the offending CUE path.
package cueutil
