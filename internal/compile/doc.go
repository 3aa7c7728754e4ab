// SPDX-License-Identifier: MPL-2.0

// Package compile implements the capability resolution engine.
//
// Resolution turns a fully inheritance-resolved envfile.Environment
// into the exact argument vector an OCI runtime (podman, docker) needs
// to launch the environment. The pipeline is a single ordered pass:
//
//  1. Every capability handler in the catalogue is applied, in
//     catalogue order, to a fresh ExecutionContext, whether or not the
//     environment requested it (absent means inactive).
//  2. Residual environment fields (hostname, dns, shm-size, ports,
//     extra mounts, environ, syscaps) are merged into the context.
//  3. The command template is rendered, substituting the "$1" and "$@"
//     tokens from the CLI arguments.
//  4. The validator inspects the resolved state and auto-repairs unsafe
//     capability combinations, emitting one warning per correction.
//  5. The context is serialized into the final argument vector.
//
// Host lookups (environment variables, file probes, the SELinux label
// query) go through the injected Host collaborator so the whole
// pipeline is deterministic under test.
package compile
