// SPDX-License-Identifier: MPL-2.0

// Package image manages environment images: deriving a Containerfile
// from the environment's base image, packages and customizations, and
// building it when the manage-image capability is on.
package image
