// Package logging provides the terminal logger used by the runcmd CLI.
package logging

import (
	"fmt"
	"io"
	"os"
)

// Logger writes leveled, optionally colored messages to a single sink.
type Logger struct {
	out     io.Writer
	debug   bool
	noColor bool
}

// New creates a logger writing to stderr.
func New(debug, noColor bool) *Logger {
	return NewWithWriter(os.Stderr, debug, noColor)
}

// NewWithWriter creates a logger writing to the given sink. Tests use
// this to capture output exactly.
func NewWithWriter(out io.Writer, debug, noColor bool) *Logger {
	return &Logger{
		out:     out,
		debug:   debug,
		noColor: noColor,
	}
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if !l.noColor {
		fmt.Fprintf(l.out, "\033[32m✓\033[0m %s\n", msg)
	} else {
		fmt.Fprintf(l.out, "✓ %s\n", msg)
	}
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if !l.noColor {
		fmt.Fprintf(l.out, "\033[33m⚠\033[0m %s\n", msg)
	} else {
		fmt.Fprintf(l.out, "⚠ %s\n", msg)
	}
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if !l.noColor {
		fmt.Fprintf(l.out, "\033[31m✗\033[0m %s\n", msg)
	} else {
		fmt.Fprintf(l.out, "✗ %s\n", msg)
	}
}

// Debug logs a debug message if debug mode is enabled
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.debug {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if !l.noColor {
		fmt.Fprintf(l.out, "\033[36m[DEBUG]\033[0m %s\n", msg)
	} else {
		fmt.Fprintf(l.out, "[DEBUG] %s\n", msg)
	}
}
