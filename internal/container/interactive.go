// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package container

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/creack/pty"
)

// runInteractive starts the container attached to a pseudo-terminal and
// proxies the calling terminal to it, tracking window size changes.
func (e *BaseCLIEngine) runInteractive(ctx context.Context, opts RunOptions) (*RunResult, error) {
	args := e.RunArgs(opts)
	cmd := e.CreateCommand(ctx, args...)

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, err
	}
	defer func() { _ = ptmx.Close() }()

	winch := make(chan os.Signal, 1)
	signal.Notify(winch, syscall.SIGWINCH)
	defer signal.Stop(winch)
	go func() {
		for range winch {
			_ = pty.InheritSize(os.Stdin, ptmx)
		}
	}()
	winch <- syscall.SIGWINCH

	stdin := opts.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	go func() { _, _ = io.Copy(ptmx, stdin) }()
	_, _ = io.Copy(stdout, ptmx)

	result := &RunResult{}
	if err := cmd.Wait(); err != nil {
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
