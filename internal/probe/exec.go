package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// maxStreamBytes bounds how much of each output stream a trial keeps.
const maxStreamBytes = 1 << 20

// exitCodeNotStarted is reported when the process could not be started at all,
// matching what a shell reports for a missing command.
const exitCodeNotStarted = 127

// waitDelay bounds how long Wait keeps reading output after the command exits.
// A descendant that left the process group can otherwise hold the pipes open.
var waitDelay = 5 * time.Second

// Command is one process invocation. Env entries are appended to the host environment.
type Command struct {
	Name string
	Args []string
	Env  []string
}

func (c Command) String() string {
	parts := append([]string{c.Name}, c.Args...)
	return strings.Join(parts, " ")
}

// CommandResult is what a finished (or killed) process left behind.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
	Duration time.Duration
}

// Combined returns stdout followed by stderr, for marker matching.
func (r CommandResult) Combined() string {
	if r.Stderr == "" {
		return r.Stdout
	}
	if r.Stdout == "" {
		return r.Stderr
	}
	return r.Stdout + "\n" + r.Stderr
}

// CommandRunner runs a command in dir, bounded by timeout. Exceeding the timeout
// is reported through TimedOut. The returned error is non-nil only when ctx ends
// before the command does.
type CommandRunner interface {
	Run(ctx context.Context, cmd Command, dir string, timeout time.Duration) (CommandResult, error)
}

// ExecRunner runs commands with os/exec. Each command gets its own process group
// so a timeout kills everything the command spawned (npm, node-gyp, go build ...).
type ExecRunner struct{}

// NewExecRunner returns a CommandRunner backed by real processes.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run implements CommandRunner.
func (ExecRunner) Run(ctx context.Context, cmd Command, dir string, timeout time.Duration) (CommandResult, error) {
	if err := ctx.Err(); err != nil {
		return CommandResult{}, err
	}

	c := exec.Command(cmd.Name, cmd.Args...)
	c.Dir = dir
	c.Env = append(os.Environ(), cmd.Env...)
	c.WaitDelay = waitDelay
	setProcessGroup(c)

	var stdout, stderr bytes.Buffer
	c.Stdout = &limitedWriter{w: &stdout, max: maxStreamBytes}
	c.Stderr = &limitedWriter{w: &stderr, max: maxStreamBytes}

	started := time.Now()
	if err := c.Start(); err != nil {
		return CommandResult{
			ExitCode: exitCodeNotStarted,
			Stderr:   fmt.Sprintf("failed to start %s: %v", cmd.Name, err),
			Duration: time.Since(started),
		}, nil
	}

	done := make(chan error, 1)
	go func() {
		done <- c.Wait()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var (
		waitErr  error
		timedOut bool
	)
	select {
	case waitErr = <-done:
	case <-timer.C:
		killProcessGroup(c)
		waitErr = <-done
		timedOut = true
	case <-ctx.Done():
		killProcessGroup(c)
		<-done
		return CommandResult{}, fmt.Errorf("command %q cancelled: %w", cmd.Name, ctx.Err())
	}

	result := CommandResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		TimedOut: timedOut,
		Duration: time.Since(started),
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.Is(waitErr, exec.ErrWaitDelay):
			// the command itself finished; only its leftover output was cut off
			result.ExitCode = c.ProcessState.ExitCode()
		case errors.As(waitErr, &exitErr):
			result.ExitCode = exitErr.ExitCode()
		default:
			result.ExitCode = -1
		}
	}
	// A killed process reports -1; keep that visible but never zero.
	if timedOut && result.ExitCode == 0 {
		result.ExitCode = -1
	}
	return result, nil
}

// limitedWriter keeps the first max bytes and silently discards the rest, so a
// chatty install cannot exhaust memory. It never reports a short write, which
// would make os/exec abort the copy.
type limitedWriter struct {
	w       *bytes.Buffer
	max     int
	written int
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	if remaining := l.max - l.written; remaining > 0 {
		chunk := p
		if len(chunk) > remaining {
			chunk = chunk[:remaining]
		}
		n, _ := l.w.Write(chunk)
		l.written += n
	}
	return len(p), nil
}
