// SPDX-License-Identifier: MPL-2.0

package config

import (
	"podbox/internal/container"
)

type (
	// Config is the podbox configuration.
	Config struct {
		// Engine selects the container engine: podman, docker or auto.
		Engine string `mapstructure:"engine"`
		// EnvironmentsDir is the directory holding envfile documents.
		// Empty means <config dir>/environments.
		EnvironmentsDir string `mapstructure:"environments_dir"`
		// UI holds presentation settings.
		UI UIConfig `mapstructure:"ui"`
	}

	// UIConfig holds presentation settings.
	UIConfig struct {
		// Verbose enables debug logging.
		Verbose bool `mapstructure:"verbose"`
		// Color controls styled output: auto, always or never.
		Color string `mapstructure:"color"`
	}
)

// DefaultConfig returns the configuration used when no config file
// exists.
func DefaultConfig() *Config {
	return &Config{
		Engine: string(container.EngineTypeAuto),
		UI: UIConfig{
			Color: "auto",
		},
	}
}

// Validate checks field values the schema cannot express on the viper
// side.
func (c *Config) Validate() error {
	return container.EngineType(c.Engine).Validate()
}

// EngineType returns the configured engine selection.
func (c *Config) EngineType() container.EngineType {
	return container.EngineType(c.Engine)
}
