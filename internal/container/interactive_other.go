// SPDX-License-Identifier: MPL-2.0

//go:build windows

package container

import (
	"context"
	"errors"
	"os/exec"
)

// runInteractive falls back to plain stdio wiring where no pty support
// is available.
func (e *BaseCLIEngine) runInteractive(ctx context.Context, opts RunOptions) (*RunResult, error) {
	args := e.RunArgs(opts)

	cmd := e.CreateCommand(ctx, args...)
	cmd.Stdin = opts.Stdin
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr

	err := cmd.Run()

	result := &RunResult{}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = 1
			result.Error = err
		}
	}
	return result, nil
}
