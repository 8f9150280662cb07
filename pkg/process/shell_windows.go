//go:build windows

package process

import (
	"os/exec"
)

// shellCommand builds a shell-interpreted invocation of the command string.
func shellCommand(command string) *exec.Cmd {
	return exec.Command("cmd", "/C", command)
}

// setSysProcAttr is a no-op on Windows; process groups work differently and
// the terminator falls back to per-pid termination there.
func setSysProcAttr(cmd *exec.Cmd) {
}
