//go:build windows

package process

import (
	"os"
)

// Alive probes pid for existence. On Windows FindProcess opens a real
// handle and fails for a dead pid.
func Alive(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	p.Release()
	return true
}

// SignalTerm requests termination of pid. Windows has no SIGTERM
// equivalent for arbitrary processes, so this kills directly.
func SignalTerm(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	defer p.Release()
	return p.Kill()
}

// SignalKill force-kills pid.
func SignalKill(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	defer p.Release()
	return p.Kill()
}

// SignalGroupTerm falls back to per-pid termination on Windows; the
// terminator's tree enumeration covers the descendants.
func SignalGroupTerm(pid int) error {
	return SignalTerm(pid)
}
