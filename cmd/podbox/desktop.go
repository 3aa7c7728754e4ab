// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"podbox/internal/launch"
)

var desktopCmd = &cobra.Command{
	Use:   "desktop <environment>",
	Short: "Install a desktop launcher for an environment",
	Long: `Install a freedesktop launcher entry for an environment.

The environment must declare a desktop block in its envfile. The entry
is written to ~/.local/share/applications.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return installDesktopEntry(args[0])
	},
}

func installDesktopEntry(name string) error {
	cfg := loadConfig()
	set, err := loadEnvironments(cfg)
	if err != nil {
		return err
	}

	launcher := launch.New(set, nil, launch.WithLogger(newLogger()))
	path, err := launcher.InstallDesktopEntry(name)
	if err != nil {
		return err
	}
	if path == "" {
		fmt.Println(WarningStyle.Render("Environment has no desktop block, nothing installed."))
		return nil
	}

	fmt.Println(SuccessStyle.Render("Installed ") + CmdStyle.Render(path))
	return nil
}
