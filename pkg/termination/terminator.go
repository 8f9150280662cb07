package termination

import (
	"time"

	"github.com/core-tools/hsu-restarter-go/pkg/logging"
	"github.com/core-tools/hsu-restarter-go/pkg/process"
	"github.com/core-tools/hsu-restarter-go/pkg/processtree"
)

const (
	// GraceTimeout is how long terminated processes get to exit before
	// being force-killed.
	GraceTimeout = 3 * time.Second

	pollInterval = 100 * time.Millisecond
)

// Result summarizes one run of the escalation ladder.
type Result struct {
	Enumerated int // descendants found at step 1 (root not counted)
	Forced     int // processes that survived the grace period and were killed
	Survivors  int // processes still alive after the forced kill pass
}

// Terminator tears down a process and its descendants with bounded
// escalation: graceful signal, grace-period wait, forced kill, final probe.
type Terminator struct {
	logger logging.Logger
}

func NewTerminator(logger logging.Logger) *Terminator {
	return &Terminator{logger: logger}
}

// Terminate runs the full ladder against the tree rooted at pid and returns
// once it is exhausted. A missing process at any step is success for that
// process. Descendants that detached from the tree before enumeration are
// not covered.
func (t *Terminator) Terminate(pid int) Result {
	var result Result

	descendants, err := processtree.Descendants(pid)
	if err != nil {
		t.logger.Warnf("Process tree enumeration failed for PID %d, terminating root only: %v", pid, err)
		descendants = nil
	}
	result.Enumerated = len(descendants)

	// Descendants first so the root cannot observe and orphan them mid-shutdown.
	targets := append(descendants, pid)

	t.logger.Infof("Terminating PID %d and %d descendants", pid, len(descendants))

	for _, target := range targets {
		if err := process.SignalTerm(target); err != nil {
			t.logger.Debugf("Termination signal to PID %d failed (already gone?): %v", target, err)
		}
	}

	// Also signal the root's process group where supported; this reaches
	// same-group members that forked after the snapshot.
	if err := process.SignalGroupTerm(pid); err != nil {
		t.logger.Debugf("Group termination signal for PID %d failed: %v", pid, err)
	}

	remaining := t.waitForExit(targets, GraceTimeout)

	if len(remaining) > 0 {
		t.logger.Warnf("%d processes survived the %v grace period, force killing", len(remaining), GraceTimeout)
		for _, target := range remaining {
			result.Forced++
			if err := process.SignalKill(target); err != nil {
				t.logger.Debugf("Force kill of PID %d failed (already gone?): %v", target, err)
			}
		}
		remaining = t.waitForExit(remaining, GraceTimeout)
		result.Survivors = len(remaining)
	}

	// Final verification of the root with a zero-effect probe.
	if process.Alive(pid) {
		t.logger.Warnf("Root PID %d still alive after kill ladder, issuing final kill", pid)
		if err := process.SignalKill(pid); err != nil {
			t.logger.Debugf("Final kill of PID %d failed (already gone?): %v", pid, err)
		}
	}

	t.logger.Infof("Termination of PID %d complete, enumerated: %d, forced: %d, survivors: %d",
		pid, result.Enumerated, result.Forced, result.Survivors)

	return result
}

// waitForExit polls the given pids until all are gone or timeout elapses,
// returning the pids still alive.
func (t *Terminator) waitForExit(pids []int, timeout time.Duration) []int {
	deadline := time.Now().Add(timeout)
	remaining := pids
	for {
		alive := remaining[:0:0]
		for _, pid := range remaining {
			if process.Alive(pid) {
				alive = append(alive, pid)
			}
		}
		remaining = alive
		if len(remaining) == 0 || time.Now().After(deadline) {
			return remaining
		}
		time.Sleep(pollInterval)
	}
}
