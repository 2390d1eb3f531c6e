package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

// ErrTimeout is returned when a command outlives its timeout.
var ErrTimeout = errors.New("command timed out")

// waitDelay bounds how long Run waits for output pipes after the process is killed.
const waitDelay = 5 * time.Second

// Command is one external process invocation. Arguments are passed as a
// vector and never go through a shell.
type Command struct {
	Name string
	Args []string
	// Env is appended to the current process environment.
	Env []string
	// Stdout receives standard output when set; otherwise it is captured
	// and returned by Run.
	Stdout  io.Writer
	Timeout time.Duration
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

type Runner struct{}

func New() *Runner {
	return &Runner{}
}

// Run executes the command and returns its captured standard output.
func (r *Runner) Run(ctx context.Context, c Command) ([]byte, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.WaitDelay = waitDelay
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	if c.Stdout != nil {
		cmd.Stdout = c.Stdout
	}
	cmd.Stderr = &stderr

	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%s: %w after %s", c.Name, ErrTimeout, c.Timeout)
	}
	if err != nil {
		return stdout.Bytes(), fmt.Errorf("%s failed: %w, output: %s", c.Name, err, strings.TrimSpace(stderr.String()))
	}

	return stdout.Bytes(), nil
}
