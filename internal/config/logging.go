package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// LogLevel represents logging verbosity levels.
type LogLevel int

// Log level constants.
const (
	LogLevelOff LogLevel = iota
	LogLevelError
	LogLevelDebug
)

// ParseLogLevel parses a log level string. Unknown values mean error.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none":
		return LogLevelOff
	case "debug":
		return LogLevelDebug
	default:
		return LogLevelError
	}
}

// String returns the string representation of a log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelOff:
		return "off"
	case LogLevelDebug:
		return "debug"
	case LogLevelError:
		return "error"
	default:
		return "error"
	}
}

func (l LogLevel) logrus() logrus.Level {
	if l == LogLevelDebug {
		return logrus.DebugLevel
	}
	return logrus.ErrorLevel
}

// Logger writes leveled log lines to a file through logrus.
// A Logger with level off or no file discards everything.
type Logger struct {
	mu    sync.Mutex
	level LogLevel
	entry *logrus.Logger
	file  *os.File
}

// NewLogger creates a logger appending to filePath. A leading ~/ is expanded.
func NewLogger(level LogLevel, filePath string) (*Logger, error) {
	if level == LogLevelOff || filePath == "" {
		return NullLogger(), nil
	}

	if strings.HasPrefix(filePath, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		filePath = filepath.Join(home, filePath[2:])
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o750); err != nil {
		return nil, err
	}

	// #nosec G304 -- log file path is from validated config
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	l := newLogger(level, f)
	l.file = f
	return l, nil
}

// NewWriterLogger creates a logger writing to w. Used by tests and for stderr debugging.
func NewWriterLogger(level LogLevel, w io.Writer) *Logger {
	return newLogger(level, w)
}

func newLogger(level LogLevel, w io.Writer) *Logger {
	lr := logrus.New()
	lr.SetOutput(w)
	lr.SetLevel(level.logrus())
	lr.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	return &Logger{level: level, entry: lr}
}

// NullLogger returns a logger that discards all output.
func NullLogger() *Logger {
	lr := logrus.New()
	lr.SetOutput(io.Discard)
	return &Logger{level: LogLevelOff, entry: lr}
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// SetLevel changes the log level.
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
	l.entry.SetLevel(level.logrus())
}

// Level returns the current log level.
func (l *Logger) Level() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...any) {
	if l.Level() == LogLevelOff {
		return
	}
	l.entry.Debugf(format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...any) {
	if l.Level() == LogLevelOff {
		return
	}
	l.entry.Errorf(format, args...)
}

// WithFields returns a logrus entry carrying structured fields.
// Off-level loggers return an entry that writes nowhere.
func (l *Logger) WithFields(fields map[string]any) *logrus.Entry {
	if l.Level() == LogLevelOff {
		return NullLogger().entry.WithFields(fields)
	}
	return l.entry.WithFields(fields)
}
