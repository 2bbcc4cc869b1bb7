// Package shell provides the shell executor adapter.
package shell

import (
	"context"
	"errors"
	"io"
	"os/exec"

	"go.trai.ch/weft/internal/core/ports"
	"go.trai.ch/zerr"
)

// shellPath is the interpreter every step command runs under. Commands are
// assembled as single shell strings, so quoting and redirection behave the
// way they would at an interactive prompt.
const shellPath = "/bin/sh"

// Executor implements ports.Executor by handing the assembled command string
// to the system shell.
type Executor struct {
	logger ports.Logger
}

// NewExecutor creates an Executor.
func NewExecutor(logger ports.Logger) *Executor {
	return &Executor{logger: logger}
}

// Execute runs the command via "sh -c", streaming output to the given
// writers. A non-zero exit reports the exit code in the error metadata;
// signal termination reports -1.
func (e *Executor) Execute(ctx context.Context, command string, stdout, stderr io.Writer) error {
	if command == "" {
		return nil
	}

	e.logger.Info(command)

	cmd := exec.CommandContext(ctx, shellPath, "-c", command) //nolint:gosec // user provided command
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return zerr.With(zerr.With(zerr.Wrap(err, "command failed"),
			"exit_code", exitCode),
			"command", command)
	}

	return nil
}
