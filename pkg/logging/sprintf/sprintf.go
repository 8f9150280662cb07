package sprintf

import (
	"fmt"
	"log"
	"os"
)

// StdSprintfLogger writes printf-style log lines to standard output with a
// level tag, using the standard library log package for timestamps.
type StdSprintfLogger struct {
	logger *log.Logger
}

func NewStdSprintfLogger() *StdSprintfLogger {
	return &StdSprintfLogger{
		logger: log.New(os.Stdout, "", log.LstdFlags),
	}
}

func (l *StdSprintfLogger) LogLevelf(level int, format string, args ...interface{}) {
	l.logger.Printf(fmt.Sprintf("%d ", level)+format, args...)
}

func (l *StdSprintfLogger) Debugf(format string, args ...interface{}) {
	l.logger.Printf("DEBUG: "+format, args...)
}

func (l *StdSprintfLogger) Infof(format string, args ...interface{}) {
	l.logger.Printf("INFO: "+format, args...)
}

func (l *StdSprintfLogger) Warnf(format string, args ...interface{}) {
	l.logger.Printf("WARN: "+format, args...)
}

func (l *StdSprintfLogger) Errorf(format string, args ...interface{}) {
	l.logger.Printf("ERROR: "+format, args...)
}
