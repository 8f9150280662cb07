package monitoring

import (
	"io"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/core-tools/hsu-restarter-go/pkg/logging"
)

const recordChannelCapacity = 64

// Record is one logical output line reconstructed from a process stream.
type Record struct {
	Text           string
	HeartbeatMatch bool
}

// Sink receives every finalized record, e.g. for console echo or log files.
type Sink interface {
	WriteLine(workerID int, line string)
}

// Monitor converts a raw combined-output stream into Records. A carriage
// return discards the in-progress buffer (terminal-style overwrite), a
// newline finalizes it. Invalid UTF-8 is replaced, never rejected. Reading
// happens on the goroutine running Run; consumers receive finalized records
// from Records, which is closed at end-of-stream after the trailing partial
// buffer (if any) has been flushed.
type Monitor struct {
	workerID int
	stream   io.Reader
	pattern  *regexp.Regexp
	sink     Sink
	logger   logging.Logger

	records chan Record

	mutex     sync.Mutex
	streamErr error
}

// NewMonitor creates a monitor for one process stream. pattern and sink may
// be nil.
func NewMonitor(workerID int, stream io.Reader, pattern *regexp.Regexp, sink Sink, logger logging.Logger) *Monitor {
	return &Monitor{
		workerID: workerID,
		stream:   stream,
		pattern:  pattern,
		sink:     sink,
		logger:   logger,
		records:  make(chan Record, recordChannelCapacity),
	}
}

// Records delivers finalized records until end-of-stream.
func (m *Monitor) Records() <-chan Record {
	return m.records
}

// Err returns the stream error that ended Run, or nil for a plain EOF.
func (m *Monitor) Err() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.streamErr
}

// Run reads the stream to completion. It is intended to run on its own
// goroutine; the owning worker keeps its poll cadence by selecting over
// Records and its timeout ticker.
func (m *Monitor) Run() {
	defer close(m.records)

	buf := make([]byte, 4096)
	var line []byte

	for {
		n, err := m.stream.Read(buf)
		if n > 0 {
			for _, b := range buf[:n] {
				switch b {
				case '\r':
					// Overwrite semantics: drop the unflushed buffer only.
					line = line[:0]
				case '\n':
					m.emit(line)
					line = line[:0]
				default:
					line = append(line, b)
				}
			}
		}
		if err != nil {
			if len(line) > 0 {
				m.emit(line)
			}
			if err != io.EOF {
				m.logger.Warnf("Worker %d: output stream error: %v", m.workerID, err)
				m.mutex.Lock()
				m.streamErr = err
				m.mutex.Unlock()
			}
			return
		}
	}
}

func (m *Monitor) emit(line []byte) {
	text := strings.ToValidUTF8(string(line), "�")

	if m.sink != nil {
		m.sink.WriteLine(m.workerID, text)
	}

	matched := m.pattern != nil && m.pattern.MatchString(text)

	m.records <- Record{Text: text, HeartbeatMatch: matched}
}

// LivenessState tracks output recency for one managed process. It is owned
// and accessed by a single worker goroutine, so it carries no lock.
type LivenessState struct {
	lastActivity  time.Time
	lastHeartbeat time.Time
}

// NewLivenessState starts the activity clock at now, matching a fresh spawn.
func NewLivenessState() LivenessState {
	return LivenessState{lastActivity: time.Now()}
}

// Touch records activity for one finalized record. Any record refreshes the
// activity timestamp; a heartbeat match is additionally remembered for
// diagnostics but does not change restart behavior.
func (ls *LivenessState) Touch(record Record) {
	now := time.Now()
	if now.After(ls.lastActivity) {
		ls.lastActivity = now
	}
	if record.HeartbeatMatch {
		ls.lastHeartbeat = now
	}
}

// IdleFor returns how long the process has produced no finalized record.
func (ls *LivenessState) IdleFor() time.Duration {
	return time.Since(ls.lastActivity)
}

// LastHeartbeat returns when the heartbeat pattern last matched; zero if never.
func (ls *LivenessState) LastHeartbeat() time.Time {
	return ls.lastHeartbeat
}
