package monitoring

import (
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Simple test logger that implements logging.Logger interface
type TestLogger struct{}

func (l *TestLogger) LogLevelf(level int, format string, args ...interface{}) {}
func (l *TestLogger) Debugf(format string, args ...interface{})               {}
func (l *TestLogger) Infof(format string, args ...interface{})                {}
func (l *TestLogger) Warnf(format string, args ...interface{})                {}
func (l *TestLogger) Errorf(format string, args ...interface{})               {}

// collectingSink records every line it receives
type collectingSink struct {
	mutex sync.Mutex
	lines map[int][]string
}

func newCollectingSink() *collectingSink {
	return &collectingSink{lines: make(map[int][]string)}
}

func (s *collectingSink) WriteLine(workerID int, line string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.lines[workerID] = append(s.lines[workerID], line)
}

func (s *collectingSink) Lines(workerID int) []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]string(nil), s.lines[workerID]...)
}

// runMonitor runs the monitor to completion and returns all records
func runMonitor(t *testing.T, input string, pattern *regexp.Regexp, sink Sink) []Record {
	t.Helper()

	monitor := NewMonitor(0, strings.NewReader(input), pattern, sink, &TestLogger{})
	monitor.Run()

	var records []Record
	for record := range monitor.Records() {
		records = append(records, record)
	}
	return records
}

func TestMonitorReconstructsLines(t *testing.T) {
	records := runMonitor(t, "one\ntwo\nthree\n", nil, nil)

	require.Len(t, records, 3)
	assert.Equal(t, "one", records[0].Text)
	assert.Equal(t, "two", records[1].Text)
	assert.Equal(t, "three", records[2].Text)
}

func TestMonitorCarriageReturnDiscardsBuffer(t *testing.T) {
	records := runMonitor(t, "ab\rcd\n", nil, nil)

	require.Len(t, records, 1)
	assert.Equal(t, "cd", records[0].Text)
}

func TestMonitorCarriageReturnLeavesFinalizedRecordsAlone(t *testing.T) {
	records := runMonitor(t, "done\nprogress 10%\rprogress 99%\rfinal\n", nil, nil)

	require.Len(t, records, 2)
	assert.Equal(t, "done", records[0].Text)
	assert.Equal(t, "final", records[1].Text)
}

func TestMonitorFlushesTrailingPartialRecord(t *testing.T) {
	records := runMonitor(t, "complete\npartial", nil, nil)

	require.Len(t, records, 2)
	assert.Equal(t, "complete", records[0].Text)
	assert.Equal(t, "partial", records[1].Text)
}

func TestMonitorEmptyStream(t *testing.T) {
	records := runMonitor(t, "", nil, nil)
	assert.Empty(t, records)
}

func TestMonitorHeartbeatMatching(t *testing.T) {
	pattern := regexp.MustCompile(`heartbeat`)
	records := runMonitor(t, "noise\nheartbeat ok\nmore noise\n", pattern, nil)

	require.Len(t, records, 3)
	assert.False(t, records[0].HeartbeatMatch)
	assert.True(t, records[1].HeartbeatMatch)
	assert.False(t, records[2].HeartbeatMatch)
}

func TestMonitorReplacesInvalidUTF8(t *testing.T) {
	records := runMonitor(t, "ok \xff\xfe bytes\n", nil, nil)

	require.Len(t, records, 1)
	// A run of invalid bytes collapses into a single replacement char.
	assert.Equal(t, "ok � bytes", records[0].Text)
}

func TestMonitorForwardsToSink(t *testing.T) {
	sink := newCollectingSink()
	records := runMonitor(t, "alpha\nbeta\n", nil, sink)

	require.Len(t, records, 2)
	assert.Equal(t, []string{"alpha", "beta"}, sink.Lines(0))
}

func TestMonitorNoErrorOnEOF(t *testing.T) {
	monitor := NewMonitor(0, strings.NewReader("line\n"), nil, nil, &TestLogger{})
	monitor.Run()
	assert.NoError(t, monitor.Err())
}

func TestLivenessStateAnyRecordRefreshesActivity(t *testing.T) {
	liveness := NewLivenessState()

	time.Sleep(10 * time.Millisecond)
	before := liveness.IdleFor()

	liveness.Touch(Record{Text: "anything", HeartbeatMatch: false})

	assert.Less(t, liveness.IdleFor(), before)
	assert.True(t, liveness.LastHeartbeat().IsZero(), "non-matching record must not mark a heartbeat")
}

func TestLivenessStateHeartbeatIsDiagnosticOnly(t *testing.T) {
	liveness := NewLivenessState()

	liveness.Touch(Record{Text: "beat", HeartbeatMatch: true})

	assert.False(t, liveness.LastHeartbeat().IsZero())
	assert.Less(t, liveness.IdleFor(), 100*time.Millisecond)
}
