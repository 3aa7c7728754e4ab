// SPDX-License-Identifier: MPL-2.0

// Package launch orchestrates an environment run: it resolves the
// environment, prepares its per-run scratch directory, ensures the
// image exists and hands the compiled argument vector to the container
// engine.
package launch
