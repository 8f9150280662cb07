package process

import (
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/core-tools/hsu-restarter-go/pkg/errors"
	"github.com/core-tools/hsu-restarter-go/pkg/logging"
)

// Handle represents one spawned shell command. It owns the combined
// stdout+stderr stream and tracks reaping of the child. A Handle is created
// by Spawn and must be released with Close after termination completes.
type Handle struct {
	Pid       int
	StartTime time.Time
	Output    io.ReadCloser

	cmd  *exec.Cmd
	done chan struct{}

	mutex   sync.Mutex
	exited  bool
	exitErr error
}

// Spawn starts command under the platform shell with stdout and stderr
// merged into a single pipe. The child is placed in its own process group
// where the platform supports it so its whole tree can be signaled. The
// parent environment is inherited.
func Spawn(command string, logger logging.Logger) (*Handle, error) {
	cmd := shellCommand(command)
	setSysProcAttr(cmd)

	r, w, err := os.Pipe()
	if err != nil {
		return nil, errors.NewIOError("failed to create output pipe", err)
	}

	cmd.Stdout = w
	cmd.Stderr = w

	if err := cmd.Start(); err != nil {
		r.Close()
		w.Close()
		return nil, errors.NewProcessError("failed to start command", err).WithContext("command", command)
	}

	// The parent's write end must be closed so the read end sees EOF once
	// the child and any inheritors of the descriptor exit.
	w.Close()

	h := &Handle{
		Pid:       cmd.Process.Pid,
		StartTime: time.Now(),
		Output:    r,
		cmd:       cmd,
		done:      make(chan struct{}),
	}

	go func() {
		err := cmd.Wait()
		h.mutex.Lock()
		h.exited = true
		h.exitErr = err
		h.mutex.Unlock()
		close(h.done)
		if err != nil {
			logger.Debugf("Process PID %d exited: %v", h.Pid, err)
		} else {
			logger.Debugf("Process PID %d exited cleanly", h.Pid)
		}
	}()

	logger.Debugf("Spawned command %q, PID: %d", command, h.Pid)

	return h, nil
}

// Done is closed once the child has been reaped.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Exited reports without blocking whether the child has been reaped.
func (h *Handle) Exited() bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.exited
}

// ExitErr returns the wait error, if any. Valid only after Done is closed.
func (h *Handle) ExitErr() error {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.exitErr
}

// Close releases the output stream. Safe to call more than once.
func (h *Handle) Close() error {
	return h.Output.Close()
}
