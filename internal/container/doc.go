// SPDX-License-Identifier: MPL-2.0

// Package container abstracts the OCI CLI runtimes (podman, docker)
// behind a small Engine interface. The compiled runtime argument vector
// is passed through verbatim; this package only owns the surrounding
// command plumbing (binary discovery, build and run invocation, image
// queries, terminal attachment).
package container
