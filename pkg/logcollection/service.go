package logcollection

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/core-tools/hsu-restarter-go/pkg/errors"
	"github.com/core-tools/hsu-restarter-go/pkg/logging"
)

// Options configures worker output collection.
type Options struct {
	// Silent suppresses console echo of worker output; lifecycle logs are
	// unaffected.
	Silent bool

	// Directory for per-worker log files; empty disables file persistence.
	Directory string
}

// Service collects reconstructed output lines from all workers: console
// echo through a structured backend plus optional per-worker log files.
// Implements monitoring.Sink.
type Service interface {
	WriteLine(workerID int, line string)
	Close() error
}

type service struct {
	options Options
	echo    *zap.Logger
	logger  logging.Logger

	mutex sync.Mutex
	files map[int]*os.File
}

// NewService creates the collection service, creating the log directory if
// configured.
func NewService(options Options, logger logging.Logger) (Service, error) {
	if options.Directory != "" {
		if err := os.MkdirAll(options.Directory, 0o755); err != nil {
			return nil, errors.NewIOError("failed to create log directory", err).WithContext("directory", options.Directory)
		}
	}

	return &service{
		options: options,
		echo:    newEchoLogger(),
		logger:  logger,
		files:   make(map[int]*os.File),
	}, nil
}

// newEchoLogger builds the zap backend used for echoing worker output:
// console encoding to stdout, timestamps, no caller noise.
func newEchoLogger() *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.Lock(os.Stdout),
		zapcore.InfoLevel,
	)
	return zap.New(core)
}

func (s *service) WriteLine(workerID int, line string) {
	if !s.options.Silent {
		s.echo.Info(line, zap.Int("worker", workerID))
	}

	if s.options.Directory == "" {
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	file, err := s.workerFile(workerID)
	if err != nil {
		s.logger.Warnf("Worker %d: log file unavailable: %v", workerID, err)
		return
	}

	stamp := time.Now().Format("2006-01-02T15:04:05.000")
	if _, err := fmt.Fprintf(file, "%s worker=%d %s\n", stamp, workerID, line); err != nil {
		s.logger.Warnf("Worker %d: log file write failed: %v", workerID, err)
	}
}

// workerFile returns the open log file for a worker, opening it on first
// use. Caller holds the mutex.
func (s *service) workerFile(workerID int) (*os.File, error) {
	if file, ok := s.files[workerID]; ok {
		return file, nil
	}

	path := filepath.Join(s.options.Directory, fmt.Sprintf("worker-%d.log", workerID))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.NewIOError("failed to open worker log file", err).WithContext("path", path)
	}

	s.files[workerID] = file
	return file, nil
}

func (s *service) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var firstErr error
	for workerID, file := range s.files {
		if err := file.Close(); err != nil && firstErr == nil {
			firstErr = errors.NewIOError("failed to close worker log file", err).WithContext("worker", workerID)
		}
		delete(s.files, workerID)
	}

	s.echo.Sync()

	return firstErr
}
