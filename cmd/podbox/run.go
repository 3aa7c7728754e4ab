// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"podbox/internal/image"
	"podbox/internal/launch"
)

var (
	// dryRun prints the compiled argument vector instead of running
	dryRun bool

	runCmd = &cobra.Command{
		Use:   "run <environment> [args...]",
		Short: "Run an environment",
		Long: `Run an environment in a container.

The environment's inheritance chain is resolved, its capabilities are
compiled into a container argument vector, and the container is started
through the configured engine. Extra arguments are passed to the
environment's command ($1 takes a single file argument, $@ takes the
rest).`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnvironment(cmd, args[0], args[1:])
		},
	}
)

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the compiled argument vector instead of running")
}

func runEnvironment(cmd *cobra.Command, name string, cliArgs []string) error {
	cfg := loadConfig()
	set, err := loadEnvironments(cfg)
	if err != nil {
		return err
	}

	if dryRun {
		launcher := launch.New(set, nil, launch.WithLogger(newLogger()))
		env, inv, err := launcher.Resolve(name, cliArgs)
		if err != nil {
			return err
		}

		ref, err := image.Reference(env)
		if err != nil {
			return err
		}

		argv := append([]string{"run"}, inv.RuntimeArgs...)
		argv = append(argv, ref)
		argv = append(argv, inv.CommandArgs...)
		fmt.Println(CmdStyle.Render(strings.Join(argv, " ")))
		return nil
	}

	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}

	launcher := launch.New(set, engine,
		launch.WithLogger(newLogger()),
		launch.WithStdio(os.Stdin, os.Stdout, os.Stderr),
	)

	result, err := launcher.Run(cmd.Context(), name, cliArgs)
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return &ExitError{Code: result.ExitCode}
	}
	return nil
}
