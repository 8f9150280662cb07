package supervision

import (
	"context"
	"regexp"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockLogger is a mock implementation of Logger for testing
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) LogLevelf(level int, format string, args ...interface{}) {
	m.Called(format, args)
}

func (m *MockLogger) Debugf(format string, args ...interface{}) {
	m.Called(format, args)
}

func (m *MockLogger) Infof(format string, args ...interface{}) {
	m.Called(format, args)
}

func (m *MockLogger) Warnf(format string, args ...interface{}) {
	m.Called(format, args)
}

func (m *MockLogger) Errorf(format string, args ...interface{}) {
	m.Called(format, args)
}

func createTestLogger() *MockLogger {
	logger := &MockLogger{}
	logger.On("Debugf", mock.Anything, mock.Anything).Maybe()
	logger.On("Infof", mock.Anything, mock.Anything).Maybe()
	logger.On("Warnf", mock.Anything, mock.Anything).Maybe()
	logger.On("Errorf", mock.Anything, mock.Anything).Maybe()
	return logger
}

// recordingSink collects worker output lines
type recordingSink struct {
	mutex sync.Mutex
	lines map[int][]string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{lines: make(map[int][]string)}
}

func (s *recordingSink) WriteLine(workerID int, line string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.lines[workerID] = append(s.lines[workerID], line)
}

func (s *recordingSink) Lines(workerID int) []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]string(nil), s.lines[workerID]...)
}

func TestSpawnBackoffEscalatesAndCaps(t *testing.T) {
	assert.Equal(t, spawnBackoffBase, spawnBackoff(1))
	assert.Equal(t, 2*spawnBackoffBase, spawnBackoff(2))
	assert.Equal(t, 4*spawnBackoffBase, spawnBackoff(3))
	assert.Equal(t, spawnBackoffCap, spawnBackoff(100))
}

func TestSleepContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, sleepContext(ctx, time.Minute))

	assert.True(t, sleepContext(context.Background(), time.Millisecond))
}

func TestWorkerRestartsExitingCommand(t *testing.T) {
	slot := Slot{ID: 0, Command: "echo cycle", IdleTimeout: time.Minute}
	sink := newRecordingSink()
	worker := NewWorker(slot, sink, createTestLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
	defer cancel()

	worker.Run(ctx)

	assert.Equal(t, StateStopped, worker.State())
	assert.GreaterOrEqual(t, worker.Restarts(), 1, "an exiting command must be respawned")
	assert.NotEmpty(t, sink.Lines(0))
}

func TestWorkerIdleTimeoutRestartsSilentProcess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test command requires a POSIX shell")
	}

	// The process stays alive but never writes; the idle timeout must
	// still force a restart.
	slot := Slot{ID: 0, Command: "sleep 60", IdleTimeout: 1 * time.Second}
	worker := NewWorker(slot, nil, createTestLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 6*time.Second)
	defer cancel()

	worker.Run(ctx)

	assert.Equal(t, StateStopped, worker.State())
	assert.GreaterOrEqual(t, worker.Restarts(), 1, "a silent process must be restarted")
}

func TestWorkerHeartbeatRecordsAreForwarded(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test command requires a POSIX shell")
	}

	slot := Slot{
		ID:          2,
		Command:     "printf 'a\\nb\\n'; sleep 60",
		IdleTimeout: time.Minute,
		Pattern:     regexp.MustCompile("b"),
	}
	sink := newRecordingSink()
	worker := NewWorker(slot, sink, createTestLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	worker.Run(ctx)

	require.Equal(t, StateStopped, worker.State())
	assert.Equal(t, []string{"a", "b"}, sink.Lines(2))
}

func TestWorkerStoppedWithoutProcess(t *testing.T) {
	slot := Slot{ID: 0, Command: "echo never-run", IdleTimeout: time.Minute}
	worker := NewWorker(slot, nil, createTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	worker.Run(ctx)

	assert.Equal(t, StateStopped, worker.State())
	assert.Equal(t, 0, worker.Restarts())
}

func TestWorkerShutdownLatencyIsBounded(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test command requires a POSIX shell")
	}

	slot := Slot{ID: 0, Command: "sleep 60", IdleTimeout: time.Minute}
	worker := NewWorker(slot, nil, createTestLogger())

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(done)
	}()

	// Let the worker reach Running.
	time.Sleep(1500 * time.Millisecond)
	cancel()

	// One poll interval plus one termination ladder, with slack.
	select {
	case <-done:
	case <-time.After(pollInterval + 2*4*time.Second):
		t.Fatal("worker did not drain within the bounded shutdown latency")
	}

	assert.Equal(t, StateStopped, worker.State())
}
