package supervision

import (
	"regexp"
	"time"
)

// Slot is the immutable configuration of one supervised worker: created at
// pool start, never mutated.
type Slot struct {
	// ID is a stable integer index used for logging and labeling only.
	ID int

	// Command is the shell-interpreted command string to keep alive.
	Command string

	// IdleTimeout is the maximum allowed silence before the process is
	// considered unresponsive and restarted.
	IdleTimeout time.Duration

	// Pattern is the heartbeat regular expression tested against each
	// output record; may be nil. A match is diagnostic only.
	Pattern *regexp.Regexp
}

// State is the lifecycle state of a worker slot.
type State string

const (
	// StateStarting means the worker holds no live process and is about
	// to spawn one.
	StateStarting State = "starting"

	// StateRunning means the worker is monitoring a live process.
	StateRunning State = "running"

	// StateRestarting means the worker is tearing down its process before
	// spawning a replacement.
	StateRestarting State = "restarting"

	// StateStopping means shutdown was requested and the worker is
	// tearing down its process for good.
	StateStopping State = "stopping"

	// StateStopped is terminal.
	StateStopped State = "stopped"
)
