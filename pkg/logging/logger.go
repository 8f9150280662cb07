package logging

// Log levels understood by LogLevelf.
const (
	LevelDebug = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Logger is the minimal leveled logging interface shared by all packages.
type Logger interface {
	LogLevelf(level int, format string, args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// LogFuncs bundles the backend functions a Logger delegates to.
type LogFuncs struct {
	Debugf func(format string, args ...interface{})
	Infof  func(format string, args ...interface{})
	Warnf  func(format string, args ...interface{})
	Errorf func(format string, args ...interface{})
}

// NewLogger returns a Logger that prepends prefix to every message and
// delegates to the provided backend functions. Nil backend functions are
// silently skipped.
func NewLogger(prefix string, funcs LogFuncs) Logger {
	return &prefixLogger{prefix: prefix, funcs: funcs}
}

type prefixLogger struct {
	prefix string
	funcs  LogFuncs
}

func (l *prefixLogger) LogLevelf(level int, format string, args ...interface{}) {
	switch {
	case level <= LevelDebug:
		l.Debugf(format, args...)
	case level == LevelInfo:
		l.Infof(format, args...)
	case level == LevelWarn:
		l.Warnf(format, args...)
	default:
		l.Errorf(format, args...)
	}
}

func (l *prefixLogger) Debugf(format string, args ...interface{}) {
	if l.funcs.Debugf != nil {
		l.funcs.Debugf(l.prefix+format, args...)
	}
}

func (l *prefixLogger) Infof(format string, args ...interface{}) {
	if l.funcs.Infof != nil {
		l.funcs.Infof(l.prefix+format, args...)
	}
}

func (l *prefixLogger) Warnf(format string, args ...interface{}) {
	if l.funcs.Warnf != nil {
		l.funcs.Warnf(l.prefix+format, args...)
	}
}

func (l *prefixLogger) Errorf(format string, args ...interface{}) {
	if l.funcs.Errorf != nil {
		l.funcs.Errorf(l.prefix+format, args...)
	}
}
