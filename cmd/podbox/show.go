// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"podbox/internal/image"
	"podbox/pkg/envfile"
)

var showCmd = &cobra.Command{
	Use:   "show <environment>",
	Short: "Show a resolved environment",
	Long: `Show an environment with its full inheritance chain applied:
the effective image, command, capabilities and mounts.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showEnvironment(args[0])
	},
}

func showEnvironment(name string) error {
	cfg := loadConfig()
	set, err := loadEnvironments(cfg)
	if err != nil {
		return err
	}

	env, err := set.Resolve(name)
	if err != nil {
		return err
	}

	fmt.Println(TitleStyle.Render(env.Name))
	if env.Description != "" {
		fmt.Println(SubtitleStyle.Render(env.Description))
	}
	fmt.Println()

	printField("parent", env.Parent)
	if ref, err := image.Reference(env); err == nil {
		printField("image", ref)
	}
	printField("command", strings.Join(env.Command, " "))
	printField("network", env.Network)
	printField("home", env.Home)
	printField("capabilities", strings.Join(activeCapabilities(env), ", "))
	printField("packages", strings.Join(env.Packages, ", "))
	printField("requires", strings.Join(env.Requires, ", "))

	if len(env.Mounts) > 0 {
		fmt.Printf("%s:\n", CmdStyle.Render("mounts"))
		for _, containerPath := range sortedKeys(env.Mounts) {
			fmt.Printf("  %s -> %s\n", containerPath, VerboseStyle.Render(env.Mounts[containerPath]))
		}
	}

	return nil
}

// printField prints one "key: value" line, skipping empty values.
func printField(key, value string) {
	if value == "" {
		return
	}
	fmt.Printf("%s: %s\n", CmdStyle.Render(key), value)
}

// activeCapabilities returns the requested capability names in catalogue
// order.
func activeCapabilities(env *envfile.Environment) []string {
	var active []string
	for _, name := range envfile.CapabilityNames() {
		if env.HasCapability(name) {
			active = append(active, string(name))
		}
	}
	return active
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
