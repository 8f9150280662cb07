//go:build !windows

package process

import (
	"os/exec"
	"syscall"
)

// shellCommand builds a shell-interpreted invocation of the command string.
func shellCommand(command string) *exec.Cmd {
	return exec.Command("/bin/sh", "-c", command)
}

// setSysProcAttr places the child in its own process group so termination
// signals can reach the whole tree via the negative pid.
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
