// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for podbox.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"podbox/internal/config"
	"podbox/internal/container"
	"podbox/internal/issue"
	"podbox/pkg/envfile"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables verbose output
	verbose bool
	// engineFlag overrides the configured container engine
	engineFlag string

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "podbox",
		Short: "Run applications in rootless containers",
		Long: TitleStyle.Render("podbox") + SubtitleStyle.Render(" - Run applications in rootless containers") + `

podbox compiles declarative environment descriptions into container
invocations. Environments are defined in envfile documents using CUE
format, can inherit from each other, and request host integrations
through a closed set of capabilities (x11, pulseaudio, ssh, ...).

` + SubtitleStyle.Render("Quick Start:") + `
  1. Create an envfile in ~/.config/podbox/environments/
  2. Define environments using CUE syntax
  3. Run them with: podbox run <environment>

` + SubtitleStyle.Render("Examples:") + `
  podbox list               List all available environments
  podbox run shell          Run the 'shell' environment
  podbox run --dry-run web  Print the compiled argument vector
  podbox show shell         Show the resolved environment
  podbox config show        Show current configuration`,
	}
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&engineFlag, "engine", "", "container engine (podman, docker or auto)")

	// Add subcommands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(desktopCmd)
	rootCmd.AddCommand(configCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// loadConfig reads the configuration, falling back to defaults when the
// config file is broken. Loading errors are always surfaced.
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, verbose))
		cfg = config.DefaultConfig()
	}

	// Apply verbose from config if not set via flag
	if !verbose {
		verbose = cfg.UI.Verbose
	}

	return cfg
}

// loadEnvironments parses every envfile under the configured
// environments directory. An empty or missing directory renders the
// known-issue guidance.
func loadEnvironments(cfg *config.Config) (*envfile.Set, error) {
	dir, err := cfg.ResolveEnvironmentsDir()
	if err != nil {
		return nil, err
	}

	set, err := envfile.LoadDir(dir)
	if errors.Is(err, os.ErrNotExist) || (err == nil && set.Len() == 0) {
		renderIssue(issue.EnvfileNotFoundId)
		if err == nil {
			err = fmt.Errorf("no environments found in %s", dir)
		}
	}
	if err != nil {
		return nil, issue.WrapWithContext(err, "load environments", dir)
	}
	return set, nil
}

// engineType returns the engine selection, with the --engine flag
// taking precedence over the config file.
func engineType(cfg *config.Config) container.EngineType {
	if engineFlag != "" {
		return container.EngineType(engineFlag)
	}
	return cfg.EngineType()
}

// newEngine instantiates the selected container engine, rendering the
// known-issue guidance when none is available.
func newEngine(cfg *config.Config) (container.Engine, error) {
	engine, err := container.NewEngine(engineType(cfg))
	if err != nil {
		if errors.Is(err, container.ErrEngineNotAvailable) {
			renderIssue(issue.ContainerEngineNotFoundId)
		}
		return nil, err
	}
	return engine, nil
}

// newLogger builds the CLI logger, honoring the verbose flag.
func newLogger() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "podbox"})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// renderIssue prints a known issue's markdown guidance to stderr.
func renderIssue(id issue.Id) {
	known := issue.Get(id)
	if known == nil {
		return
	}
	rendered, err := known.Render("dark")
	if err != nil {
		rendered = string(known.MarkdownMsg())
	}
	fmt.Fprint(os.Stderr, rendered)
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// GetVerbose returns the verbose flag value
func GetVerbose() bool {
	return verbose
}
