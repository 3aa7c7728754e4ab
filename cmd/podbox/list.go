// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available environments",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listEnvironments()
	},
}

func listEnvironments() error {
	cfg := loadConfig()
	set, err := loadEnvironments(cfg)
	if err != nil {
		return err
	}

	fmt.Println(TitleStyle.Render("Available Environments"))
	fmt.Println()

	width := 0
	for _, name := range set.Names() {
		if len(name) > width {
			width = len(name)
		}
	}

	for _, name := range set.Names() {
		env, _ := set.Get(name)
		// Pad before styling; ANSI escape codes would break %-*s widths.
		padding := strings.Repeat(" ", width-len(name))
		fmt.Printf("  %s%s  %s\n", CmdStyle.Render(name), padding, SubtitleStyle.Render(env.Description))
	}

	return nil
}
