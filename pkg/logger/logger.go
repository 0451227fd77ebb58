// Package logger provides the structured logging interface used across easysms.
// Gateways, the messenger and the facade all log through Logger using
// slog-style key/value pairs, so any backend can be plugged in behind it.
package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// LogLevel is a severity threshold. Higher levels are more verbose.
type LogLevel int

const (
	// Silent writes nothing.
	Silent LogLevel = iota + 1
	Error
	Warn
	Info
	Debug
)

var levelNames = map[LogLevel]string{
	Silent: "silent",
	Error:  "error",
	Warn:   "warn",
	Info:   "info",
	Debug:  "debug",
}

// String returns the lower-case name of the level.
func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "unknown"
}

// ParseLevel converts a level name into a LogLevel. Unknown names map to Warn.
func ParseLevel(name string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "silent", "off":
		return Silent
	case "error":
		return Error
	case "info":
		return Info
	case "debug":
		return Debug
	default:
		return Warn
	}
}

// Logger is implemented by every log backend.
type Logger interface {
	// LogMode returns a copy logging at level.
	LogMode(level LogLevel) Logger
	// With returns a logger that appends the given key/value pairs to every entry.
	With(args ...any) Logger
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
}

// StandardLogger writes "prefix [LEVEL] msg k=v ..." lines through a
// standard library *log.Logger.
type StandardLogger struct {
	out    *log.Logger
	level  LogLevel
	prefix string
	fields []any
}

// NewStandardLogger creates a logger writing through writer at level.
func NewStandardLogger(writer *log.Logger, level LogLevel, prefix string) Logger {
	return &StandardLogger{out: writer, level: level, prefix: prefix}
}

func (l *StandardLogger) LogMode(level LogLevel) Logger {
	clone := *l
	clone.level = level
	return &clone
}

func (l *StandardLogger) With(args ...any) Logger {
	clone := *l
	clone.fields = append(append([]any{}, l.fields...), args...)
	return &clone
}

func (l *StandardLogger) Info(msg string, args ...any)  { l.output(Info, msg, args) }
func (l *StandardLogger) Warn(msg string, args ...any)  { l.output(Warn, msg, args) }
func (l *StandardLogger) Error(msg string, args ...any) { l.output(Error, msg, args) }
func (l *StandardLogger) Debug(msg string, args ...any) { l.output(Debug, msg, args) }

func (l *StandardLogger) output(level LogLevel, msg string, args []any) {
	if l.level < level {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] %s", l.prefix, strings.ToUpper(level.String()), msg)

	pairs := args
	if len(l.fields) > 0 {
		pairs = append(append([]any{}, l.fields...), args...)
	}
	for i := 0; i < len(pairs); i += 2 {
		var val any = "(no value)"
		if i+1 < len(pairs) {
			val = pairs[i+1]
		}
		fmt.Fprintf(&b, " %v=%v", pairs[i], val)
	}
	l.out.Print(b.String())
}

type discardLogger struct{}

func (d discardLogger) LogMode(LogLevel) Logger { return d }
func (d discardLogger) With(...any) Logger      { return d }
func (discardLogger) Info(string, ...any)       {}
func (discardLogger) Warn(string, ...any)       {}
func (discardLogger) Error(string, ...any)      {}
func (discardLogger) Debug(string, ...any)      {}

// Discard drops everything.
var Discard Logger = discardLogger{}

// New returns the default logger: stderr, Warn level, "[easysms]" prefix.
func New() Logger {
	return NewStandardLogger(log.New(os.Stderr, "", log.LstdFlags), Warn, "[easysms]")
}

// OrDiscard returns l, or Discard when l is nil.
func OrDiscard(l Logger) Logger {
	if l == nil {
		return Discard
	}
	return l
}
