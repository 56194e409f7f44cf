// Package runner executes the external tools charmsmith drives.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// Runner abstracts external process invocation so tests can record
// invocations and assert on argv instead of shelling out.
type Runner interface {
	// Run executes argv[0] with the remaining arguments in dir,
	// wiring the child's stdio to the parent's. An empty dir runs in
	// the current directory. The child is killed when ctx is done.
	Run(ctx context.Context, dir string, argv ...string) error

	// Output executes argv[0] with the remaining arguments in dir and
	// returns the child's stdout and stderr separately. Both are
	// returned even when the command fails.
	Output(ctx context.Context, dir string, argv ...string) (stdout, stderr []byte, err error)
}

// ExecRunner is the Runner backed by os/exec.
type ExecRunner struct{}

// New returns the real process runner.
func New() ExecRunner {
	return ExecRunner{}
}

// Run executes the command with inherited stdio. The external tool's
// own output is the failure detail shown to the operator.
func (ExecRunner) Run(ctx context.Context, dir string, argv ...string) error {
	if len(argv) == 0 {
		return errors.New("empty argv")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	return cmd.Run()
}

// Output executes the command and captures stdout and stderr.
func (ExecRunner) Output(ctx context.Context, dir string, argv ...string) ([]byte, []byte, error) {
	if len(argv) == 0 {
		return nil, nil, errors.New("empty argv")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Find resolves a tool binary. An explicit override path wins; otherwise
// the binary is looked up on PATH.
func Find(name, override string) (string, error) {
	if override != "" {
		if _, err := os.Stat(override); err != nil {
			return "", fmt.Errorf("%s not found at %s: %w", name, override, err)
		}
		return override, nil
	}
	return exec.LookPath(name)
}

// ExitCode extracts the child process exit code from a Run/Output
// error. It returns 0 for nil and -1 when the error carries no exit
// status (tool missing, context canceled before start).
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
