// Package engine invokes the external raster engine. Every invocation is a
// structured Command: a program and its arguments, passed to the operating
// system directly without a shell, so tile ids and paths are never
// interpreted as shell text.
package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/specialistvlad/reliefgrid/internal/ctxlog"
)

// Command is one invocation of an external program.
type Command struct {
	Op      string // logical operation, e.g. "mosaic"
	Program string
	Args    []string
}

// String renders the command for logs, quoting arguments that need it.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Program)
	for _, a := range c.Args {
		if a == "" || strings.ContainsAny(a, " \t\n\"'") {
			a = strconv.Quote(a)
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// Runner executes commands. It returns the command's standard output.
type Runner interface {
	Run(ctx context.Context, cmd Command) ([]byte, error)
}

// Error reports a failed engine invocation.
type Error struct {
	Op       string
	Command  string
	ExitCode int // -1 when the program could not be started
	Stderr   string
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("engine %s failed (exit %d): %v", e.Op, e.ExitCode, e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// stderrLimit bounds how much of a failing command's stderr is kept.
const stderrLimit = 2048

// ExecRunner runs commands as child processes.
type ExecRunner struct{}

// Run starts the program, waits for it and checks its exit status.
func (ExecRunner) Run(ctx context.Context, cmd Command) ([]byte, error) {
	logger := ctxlog.FromContext(ctx).With("op", cmd.Op)
	logger.Debug("Running engine command.", "command", cmd.String())

	var stdout, stderr bytes.Buffer
	c := exec.CommandContext(ctx, cmd.Program, cmd.Args...)
	c.Stdout = &stdout
	c.Stderr = &stderr

	start := time.Now()
	err := c.Run()
	if err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return nil, &Error{
			Op:       cmd.Op,
			Command:  cmd.String(),
			ExitCode: code,
			Stderr:   tail(stderr.String(), stderrLimit),
			Err:      err,
		}
	}

	logger.Debug("Engine command finished.", "duration", time.Since(start))
	return stdout.Bytes(), nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
