package utils

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
)

/**
 * Completed external command result
 * @property {string} Command - Executable name
 * @property {[]string} Args - Command arguments
 * @property {int} ExitCode - Process exit code, -1 when the command never ran
 * @property {string} Stdout - Captured standard output
 * @property {string} Stderr - Captured standard error
 * @description
 * - A CommandResult is always returned, never an error: callers inspect
 *   the exit code and streams to decide what a nonzero exit means
 */
type CommandResult struct {
	Command  string
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
}

func (r CommandResult) Success() bool {
	return r.ExitCode == 0
}

// String returns the command line for log messages.
func (r CommandResult) String() string {
	return strings.Join(append([]string{r.Command}, r.Args...), " ")
}

/**
 * Runner of external commands
 * @description
 * - Run executes the named command with arguments in the given working
 *   directory ("" keeps the caller's directory) and captures the result
 * - Implementations must not return errors for nonzero exits; failure
 *   to start at all is reported as ExitCode -1 with the cause in Stderr
 */
type CommandRunner interface {
	Run(ctx context.Context, dir string, name string, args ...string) CommandResult
}

// ExecRunner runs commands via os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir string, name string, args ...string) CommandResult {
	result := CommandResult{
		Command: name,
		Args:    args,
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			// The command never ran (not found, bad dir, cancelled ctx).
			result.ExitCode = -1
			if result.Stderr == "" {
				result.Stderr = err.Error()
			}
		}
		return result
	}

	result.ExitCode = 0
	return result
}
