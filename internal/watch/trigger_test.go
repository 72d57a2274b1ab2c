package watch

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// safeBuffer is a bytes.Buffer that tolerates concurrent writes from a
// child process and reads from the test goroutine.
type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

func skipOnWindows(t *testing.T) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell")
	}
}

func TestTriggerFunc(t *testing.T) {
	called := false

	var trig Trigger = TriggerFunc(func(context.Context) error {
		called = true
		return nil
	})

	require.NoError(t, trig.Build(context.Background()))
	assert.True(t, called)
}

func TestShellCommand(t *testing.T) {
	name, args := shellCommand("make html")

	if runtime.GOOS == "windows" {
		assert.Equal(t, "cmd", name)
		assert.Equal(t, []string{"/C", "make html"}, args)

		return
	}

	assert.Equal(t, "sh", name)
	assert.Equal(t, []string{"-c", "make html"}, args)
}

func TestCommandTrigger_PassesOutputThrough(t *testing.T) {
	skipOnWindows(t)

	var stdout, stderr bytes.Buffer

	trig := &CommandTrigger{Command: "echo built; echo oops >&2", Stdout: &stdout, Stderr: &stderr}

	require.NoError(t, trig.Build(context.Background()))
	assert.Equal(t, "built\n", stdout.String())
	assert.Equal(t, "oops\n", stderr.String())
}

func TestCommandTrigger_WorkingDirectory(t *testing.T) {
	skipOnWindows(t)

	dir := t.TempDir()

	var stdout bytes.Buffer

	trig := &CommandTrigger{Command: "pwd", Dir: dir, Stdout: &stdout}

	require.NoError(t, trig.Build(context.Background()))

	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)

	got, err := filepath.EvalSymlinks(strings.TrimSpace(stdout.String()))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCommandTrigger_NonZeroExit(t *testing.T) {
	skipOnWindows(t)

	trig := &CommandTrigger{Command: "exit 3"}

	err := trig.Build(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `running "exit 3"`)

	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.ExitCode())
}

func TestCommandTrigger_Timeout(t *testing.T) {
	skipOnWindows(t)

	trig := &CommandTrigger{Command: "sleep 5", Timeout: 50 * time.Millisecond}

	start := time.Now()
	err := trig.Build(context.Background())

	require.Error(t, err)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestCommandTrigger_ContextCancel(t *testing.T) {
	skipOnWindows(t)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	trig := &CommandTrigger{Command: "sleep 5"}

	start := time.Now()
	require.Error(t, trig.Build(ctx))
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestNewCommandTrigger_InheritsOutput(t *testing.T) {
	trig := NewCommandTrigger("make html")

	assert.Equal(t, "make html", trig.Command)
	assert.Nil(t, trig.Stdin)
	assert.NotNil(t, trig.Stdout)
	assert.NotNil(t, trig.Stderr)
	assert.Zero(t, trig.Timeout)
}

func TestCommandTrigger_TimeoutKillsDescendants(t *testing.T) {
	skipOnWindows(t)

	dir := t.TempDir()
	trig := &CommandTrigger{
		Command: "(sleep 1; touch marker); true",
		Dir:     dir,
		Timeout: 100 * time.Millisecond,
	}

	require.Error(t, trig.Build(context.Background()))

	time.Sleep(1500 * time.Millisecond)

	_, err := os.Stat(filepath.Join(dir, "marker"))
	assert.True(t, errors.Is(err, os.ErrNotExist), "subshell outlived the cancelled build")
}

func TestCommandTrigger_TimeoutWithBufferedOutput(t *testing.T) {
	skipOnWindows(t)

	var stdout bytes.Buffer

	trig := &CommandTrigger{
		Command: "sleep 2; echo late",
		Timeout: 100 * time.Millisecond,
		Stdout:  &stdout,
	}

	start := time.Now()
	require.Error(t, trig.Build(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
	assert.NotContains(t, stdout.String(), "late")
}

func TestCommandTrigger_Env(t *testing.T) {
	skipOnWindows(t)

	var stdout bytes.Buffer

	trig := &CommandTrigger{
		Command: `echo "$POLLBUILD_TEST_VAR"`,
		Env:     []string{"POLLBUILD_TEST_VAR=from-trigger"},
		Stdout:  &stdout,
	}

	require.NoError(t, trig.Build(context.Background()))
	assert.Equal(t, "from-trigger\n", stdout.String())
}
