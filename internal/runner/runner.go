// Package runner invokes external binaries synchronously.
//
// Every invocation is a single attempt: signing requests must never be
// retried automatically because openssl would allocate a new serial.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/sirupsen/logrus"
)

// Command is one child process invocation.
type Command struct {
	// Args holds the binary name followed by its arguments.
	Args []string

	// Env is appended to the inherited environment of this child only.
	Env []string
}

// String renders the argument list the way it is logged.
func (c Command) String() string {
	return fmt.Sprintf("%q", c.Args)
}

// Runner runs external commands. All packages go through this interface
// instead of calling os/exec directly.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// CommandError reports a child process that could not run or exited
// with a non-zero status.
type CommandError struct {
	Args     []string
	ExitCode int
	Err      error
}

func (e *CommandError) Error() string {
	if e.ExitCode != 0 {
		return fmt.Sprintf("calling %q resulted in error ret=%d", e.Args, e.ExitCode)
	}
	return fmt.Sprintf("calling %q failed: %v", e.Args, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Exec runs commands with os/exec. Standard streams are connected to the
// operator's terminal because openssl prompts for passphrases.
type Exec struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewExec returns an Exec wired to the process's standard streams.
func NewExec() *Exec {
	return &Exec{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run starts cmd and waits for it. There is no timeout; ctx only stops
// commands that have not started yet or are killed by the caller.
func (r *Exec) Run(ctx context.Context, cmd Command) error {
	if len(cmd.Args) == 0 {
		return errors.New("empty command")
	}

	logrus.Infof("Running command: %s", cmd)

	c := exec.CommandContext(ctx, cmd.Args[0], cmd.Args[1:]...)
	c.Env = append(os.Environ(), cmd.Env...)
	c.Stdin = r.Stdin
	c.Stdout = r.Stdout
	c.Stderr = r.Stderr

	if err := c.Run(); err != nil {
		cmdErr := &CommandError{Args: cmd.Args, Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			cmdErr.ExitCode = exitErr.ExitCode()
		}
		return cmdErr
	}

	logrus.Debugf("Command finished: %s", cmd)
	return nil
}
