package watch

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"time"
)

// Trigger runs a build. The Watcher waits for Build to return before it
// polls again.
type Trigger interface {
	Build(ctx context.Context) error
}

// TriggerFunc adapts a plain function to the Trigger interface.
type TriggerFunc func(ctx context.Context) error

// Build calls f(ctx).
func (f TriggerFunc) Build(ctx context.Context) error { return f(ctx) }

// waitDelay bounds how long Build waits for the output pipes to close once
// the build has been killed.
const waitDelay = 2 * time.Second

// CommandTrigger runs a command line through the platform shell with stdout
// and stderr passed through. On Unix the shell gets its own process group
// so that cancelling a build also kills everything the shell started.
type CommandTrigger struct {
	// Command is the command line handed to the shell.
	Command string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Timeout kills a build that runs longer. Zero disables the limit.
	Timeout time.Duration

	// Env is appended to the inherited environment.
	Env []string

	// Stdin is not connected by default: a build in its own process group
	// that reads from the terminal would be stopped with SIGTTIN.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewCommandTrigger returns a CommandTrigger wired to the process's own
// stdout and stderr.
func NewCommandTrigger(command string) *CommandTrigger {
	return &CommandTrigger{
		Command: command,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

// Build runs the command and waits for it. A non-zero exit status is
// returned as an error; the build and its descendants are killed when ctx
// is done.
func (t *CommandTrigger) Build(ctx context.Context) error {
	if t.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	name, args := shellCommand(t.Command)

	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	cmd.Dir = t.Dir
	cmd.Stdin = t.Stdin
	cmd.Stdout = t.Stdout
	cmd.Stderr = t.Stderr
	cmd.WaitDelay = waitDelay

	if len(t.Env) > 0 {
		cmd.Env = append(os.Environ(), t.Env...)
	}

	setProcessGroup(cmd)

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("running %q: %w", t.Command, err)
	}

	return nil
}

func shellCommand(command string) (string, []string) {
	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C", command}
	}

	return "sh", []string{"-c", command}
}
