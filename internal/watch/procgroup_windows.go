//go:build windows

package watch

import "os/exec"

// setProcessGroup is a no-op on Windows; cancellation kills the shell only
// and cmd.WaitDelay bounds the wait for its output pipes.
func setProcessGroup(*exec.Cmd) {}
