// Package run executes the external tools ccpm drives (git, cmake) and
// preserves their exit status so the process can exit with the same code.
package run

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Cmd describes a single external tool invocation.
type Cmd struct {
	Name  string
	Args  []string
	Dir   string   // working directory, empty for the current one
	Env   []string // extra KEY=VALUE pairs on top of os.Environ()
	Quiet bool     // discard stdout
}

func (c Cmd) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Runner runs external commands.
type Runner interface {
	Run(ctx context.Context, c Cmd) error
}

// ExitError reports a tool that ran and exited with a non-zero status.
type ExitError struct {
	Name string
	Args []string
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d", Cmd{Name: e.Name, Args: e.Args}, e.Code)
}

// ExitCode returns the tool exit code carried by err, if any.
func ExitCode(err error) (int, bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}

// Exec is a Runner that starts real subprocesses.
type Exec struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Default runs commands with the process stdout and stderr.
var Default Runner = &Exec{}

func (e *Exec) Run(ctx context.Context, c Cmd) error {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	cmd.Stdout = e.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if c.Quiet {
		cmd.Stdout = io.Discard
	}
	cmd.Stderr = e.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		return &ExitError{Name: c.Name, Args: c.Args, Code: exitErr.ExitCode()}
	}
	if err != nil {
		return fmt.Errorf("%s: %w", c, err)
	}
	return nil
}
