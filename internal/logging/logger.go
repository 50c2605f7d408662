// Package logging provides simple leveled logging for the exchange bridge.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/vijayshc/trino-teradata-exchange/internal/ifaces"
)

// Logger wraps stdlib log with level support and optional key=value fields.
type Logger struct {
	logger *log.Logger
	level  Level
	fields string // pre-formatted " k=v k=v" suffix inherited by child loggers
	mu     *sync.Mutex
}

var (
	defaultLogger *Logger
	defaultMu     sync.RWMutex
)

// Level represents the available log levels.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Config holds logging configuration.
type Config struct {
	Level  Level
	Output io.Writer
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:  LevelInfo,
		Output: os.Stderr,
	}
}

// New creates a new logger.
func New(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	output := config.Output
	if output == nil {
		output = os.Stderr
	}
	return &Logger{
		logger: log.New(output, "", log.LstdFlags|log.Lmicroseconds),
		level:  config.Level,
		mu:     &sync.Mutex{},
	}
}

// Default returns the process-wide default logger, creating it if necessary.
func Default() *Logger {
	defaultMu.RLock()
	if defaultLogger != nil {
		defer defaultMu.RUnlock()
		return defaultLogger
	}
	defaultMu.RUnlock()

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = New(nil)
	}
	return defaultLogger
}

// SetDefault replaces the process-wide default logger.
func SetDefault(l *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}

// WithQuery returns a child logger that tags every line with the query
// identifier. The server's data-connection handler asks for this once per
// connection and reuses it for that connection's lifetime; the registry and
// dispatcher, which log through ifaces.Logger, pass "qid" as an explicit
// key=value argument instead.
func (l *Logger) WithQuery(qid string) *Logger {
	return l.with("qid", qid)
}

// With returns a child logger carrying one extra key=value field.
func (l *Logger) With(key string, value any) *Logger {
	return l.with(key, value)
}

func (l *Logger) with(key string, value any) *Logger {
	return &Logger{
		logger: l.logger,
		level:  l.level,
		fields: l.fields + fmt.Sprintf(" %s=%v", key, value),
		mu:     l.mu,
	}
}

// formatArgs converts key-value pairs to a " k=v k=v" string.
func formatArgs(args []any) string {
	if len(args) == 0 {
		return ""
	}
	var out string
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			out += fmt.Sprintf(" %v=%v", args[i], args[i+1])
		}
	}
	return out
}

func (l *Logger) log(level Level, prefix, msg string, args ...any) {
	if level < l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.Printf("%s %s%s%s", prefix, msg, l.fields, formatArgs(args))
}

func (l *Logger) Debug(msg string, args ...any) { l.log(LevelDebug, "[DEBUG]", msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.log(LevelInfo, "[INFO]", msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.log(LevelWarn, "[WARN]", msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.log(LevelError, "[ERROR]", msg, args...) }

// Debugf/Infof/Warnf/Errorf offer printf-style logging for call sites that
// already have a formatted string rather than key=value pairs.
func (l *Logger) Debugf(format string, args ...any) { l.log(LevelDebug, "[DEBUG]", fmt.Sprintf(format, args...)) }
func (l *Logger) Infof(format string, args ...any)  { l.log(LevelInfo, "[INFO]", fmt.Sprintf(format, args...)) }
func (l *Logger) Warnf(format string, args ...any)  { l.log(LevelWarn, "[WARN]", fmt.Sprintf(format, args...)) }
func (l *Logger) Errorf(format string, args ...any) { l.log(LevelError, "[ERROR]", fmt.Sprintf(format, args...)) }

// Global convenience functions operating on the default logger.
func Debug(msg string, args ...any) { Default().Debug(msg, args...) }
func Info(msg string, args ...any)  { Default().Info(msg, args...) }
func Warn(msg string, args ...any)  { Default().Warn(msg, args...) }
func Error(msg string, args ...any) { Default().Error(msg, args...) }

// Compile-time check that Logger satisfies the shared interface internal
// packages depend on.
var _ ifaces.Logger = (*Logger)(nil)
