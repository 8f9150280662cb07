package supervision

import (
	"context"
	"time"

	"github.com/core-tools/hsu-restarter-go/pkg/logging"
	"github.com/core-tools/hsu-restarter-go/pkg/metrics"
	"github.com/core-tools/hsu-restarter-go/pkg/monitoring"
	"github.com/core-tools/hsu-restarter-go/pkg/process"
	"github.com/core-tools/hsu-restarter-go/pkg/termination"
)

const (
	// pollInterval bounds how long the worker goes between idle-timeout
	// checks, exit probes and shutdown checks while running.
	pollInterval = 1 * time.Second

	// reapTimeout bounds the wait for the child to be reaped after the
	// kill ladder has run.
	reapTimeout = 5 * time.Second

	// readErrorBackoff is applied before respawning after a stream error.
	readErrorBackoff = 5 * time.Second

	// quickExitThreshold classifies an exit as a crash loop candidate.
	quickExitThreshold = 1 * time.Second

	spawnBackoffBase = 500 * time.Millisecond
	spawnBackoffCap  = 10 * time.Second
)

// Worker supervises one slot: it spawns the command, monitors its output,
// enforces the idle timeout and loops through terminate-and-respawn until
// the shared context is cancelled. All fields are owned by the single
// goroutine running Run; workers share nothing with each other.
type Worker struct {
	slot       Slot
	sink       monitoring.Sink
	terminator *termination.Terminator
	logger     logging.Logger

	state    State
	handle   *process.Handle
	monitor  *monitoring.Monitor
	liveness monitoring.LivenessState

	restarts            int
	consecutiveFailures int
	restartReason       string
	backoff             time.Duration
}

func NewWorker(slot Slot, sink monitoring.Sink, logger logging.Logger) *Worker {
	return &Worker{
		slot:       slot,
		sink:       sink,
		terminator: termination.NewTerminator(logger),
		logger:     logger,
		state:      StateStarting,
	}
}

// State returns the worker's current lifecycle state. Only meaningful from
// the worker's own goroutine or after Run has returned.
func (w *Worker) State() State {
	return w.state
}

// Restarts returns how many terminate-and-respawn cycles the worker has
// been through. Only meaningful after Run has returned.
func (w *Worker) Restarts() int {
	return w.restarts
}

// Run drives the worker state machine until the context is cancelled and
// the current process, if any, has been fully torn down.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Infof("Worker %d: started, command: %q", w.slot.ID, w.slot.Command)

	for w.state != StateStopped {
		switch w.state {
		case StateStarting:
			w.runStarting(ctx)
		case StateRunning:
			w.runRunning(ctx)
		case StateRestarting:
			w.runRestarting(ctx)
		case StateStopping:
			w.runStopping()
		}
	}

	w.logger.Infof("Worker %d: stopped after %d restarts", w.slot.ID, w.restarts)
}

func (w *Worker) runStarting(ctx context.Context) {
	if ctx.Err() != nil {
		w.state = StateStopping
		return
	}

	handle, err := process.Spawn(w.slot.Command, w.logger)
	if err != nil {
		// Treated like an immediate exit: take the restart path with
		// backoff instead of aborting the slot.
		w.consecutiveFailures++
		w.logger.Errorf("Worker %d: failed to start command: %v", w.slot.ID, err)
		w.restartReason = metrics.ReasonSpawnFailure
		w.backoff = spawnBackoff(w.consecutiveFailures)
		w.state = StateRestarting
		return
	}

	w.handle = handle
	w.monitor = monitoring.NewMonitor(w.slot.ID, handle.Output, w.slot.Pattern, w.sink, w.logger)
	go w.monitor.Run()
	w.liveness = monitoring.NewLivenessState()
	w.state = StateRunning
	metrics.WorkerUp()

	w.logger.Infof("Worker %d: process started, PID: %d", w.slot.ID, handle.Pid)
}

func (w *Worker) runRunning(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	records := w.monitor.Records()

	for {
		select {
		case record, ok := <-records:
			if !ok {
				// End of stream: either the process exited or the
				// stream failed underneath it.
				if err := w.monitor.Err(); err != nil {
					w.logger.Errorf("Worker %d: output stream error: %v, restarting", w.slot.ID, err)
					w.beginRestart(metrics.ReasonReadError, readErrorBackoff)
				} else {
					w.logger.Infof("Worker %d: process output ended, restarting", w.slot.ID)
					w.beginRestart(metrics.ReasonExit, 0)
				}
				return
			}
			w.liveness.Touch(record)
			metrics.OutputLine(w.slot.ID)
			if record.HeartbeatMatch {
				metrics.HeartbeatSeen(w.slot.ID)
				w.logger.Debugf("Worker %d: heartbeat pattern matched", w.slot.ID)
			}

		case <-ticker.C:
			if w.handle.Exited() {
				w.logger.Infof("Worker %d: process exited, restarting", w.slot.ID)
				w.beginRestart(metrics.ReasonExit, 0)
				return
			}
			if w.liveness.IdleFor() > w.slot.IdleTimeout {
				w.logger.Infof("Worker %d: no output detected for %v, restarting", w.slot.ID, w.slot.IdleTimeout)
				w.beginRestart(metrics.ReasonIdleTimeout, 0)
				return
			}

		case <-ctx.Done():
			w.state = StateStopping
			return
		}
	}
}

// beginRestart records why the worker is leaving Running and classifies
// crash loops: a process that died within quickExitThreshold earns the same
// escalating backoff as a failed spawn.
func (w *Worker) beginRestart(reason string, backoff time.Duration) {
	if time.Since(w.handle.StartTime) >= quickExitThreshold {
		w.consecutiveFailures = 0
	} else if reason == metrics.ReasonExit {
		w.consecutiveFailures++
		backoff = spawnBackoff(w.consecutiveFailures)
	}
	w.restartReason = reason
	w.backoff = backoff
	w.state = StateRestarting
}

func (w *Worker) runRestarting(ctx context.Context) {
	w.discard()

	metrics.WorkerRestarted(w.slot.ID, w.restartReason)
	w.restarts++

	if ctx.Err() != nil {
		w.state = StateStopping
		return
	}

	if w.backoff > 0 {
		w.logger.Infof("Worker %d: backing off %v before respawn", w.slot.ID, w.backoff)
		if !sleepContext(ctx, w.backoff) {
			w.state = StateStopping
			return
		}
		w.backoff = 0
	}

	w.state = StateStarting
}

func (w *Worker) runStopping() {
	if w.handle != nil {
		w.logger.Infof("Worker %d: stopping", w.slot.ID)
	}
	w.discard()
	w.state = StateStopped
}

// discard tears down the current process tree and waits for the child to be
// reaped, so the old process is fully gone before any replacement spawns.
// No-op when the worker holds no process.
func (w *Worker) discard() {
	if w.handle == nil {
		return
	}

	// Keep the monitor drained so its goroutine can finish even if the
	// record channel is full.
	monitor := w.monitor
	go func() {
		for range monitor.Records() {
		}
	}()

	w.terminator.Terminate(w.handle.Pid)

	select {
	case <-w.handle.Done():
	case <-time.After(reapTimeout):
		w.logger.Warnf("Worker %d: timed out waiting for PID %d to be reaped", w.slot.ID, w.handle.Pid)
	}

	w.handle.Close()
	w.handle = nil
	w.monitor = nil
	metrics.WorkerDown()
}

// spawnBackoff returns a capped exponential delay for the n-th consecutive
// spawn failure or crash-loop exit.
func spawnBackoff(failures int) time.Duration {
	delay := spawnBackoffBase
	for i := 1; i < failures; i++ {
		delay *= 2
		if delay >= spawnBackoffCap {
			return spawnBackoffCap
		}
	}
	return delay
}

// sleepContext waits for the duration or context cancellation, reporting
// whether the full duration elapsed.
func sleepContext(ctx context.Context, duration time.Duration) bool {
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
