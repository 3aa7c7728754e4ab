// SPDX-License-Identifier: MPL-2.0

// Package config loads the podbox configuration: a CUE file validated
// against an embedded schema, merged over defaults through viper so
// environment variables can override individual values.
package config
