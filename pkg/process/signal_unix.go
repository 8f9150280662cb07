//go:build !windows

package process

import (
	"syscall"
)

// Alive probes pid with a zero-effect signal. EPERM still means the process
// exists, just owned by someone else.
func Alive(pid int) bool {
	err := syscall.Kill(pid, 0)
	if err == nil {
		return true
	}
	return err == syscall.EPERM
}

// SignalTerm requests graceful termination of pid.
func SignalTerm(pid int) error {
	return syscall.Kill(pid, syscall.SIGTERM)
}

// SignalKill force-kills pid.
func SignalKill(pid int) error {
	return syscall.Kill(pid, syscall.SIGKILL)
}

// SignalGroupTerm requests graceful termination of the whole process group
// led by pid. Only meaningful for children spawned with Setpgid.
func SignalGroupTerm(pid int) error {
	return syscall.Kill(-pid, syscall.SIGTERM)
}
