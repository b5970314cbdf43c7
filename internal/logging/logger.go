// Package logging provides the leveled, optionally colored console logger
// with an optional plain-text file sink.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/backmassage/lyricmux/internal/config"
	"github.com/backmassage/lyricmux/internal/term"
)

// Logger is safe for concurrent use; batch workers share one instance.
type Logger struct {
	mu      sync.Mutex
	color   bool
	verbose bool
	out     io.Writer
	errOut  io.Writer
	file    *os.File
}

// NewLogger configures terminal colors from cfg and opens the log file when
// one is set. Call Close when done.
func NewLogger(cfg *config.Config) (*Logger, error) {
	l := &Logger{
		color:   term.Configure(cfg.Logging.Color),
		verbose: cfg.Logging.Verbose,
		out:     os.Stdout,
		errOut:  os.Stderr,
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0o755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		l.file = f
	}
	return l, nil
}

// New returns an uncolored logger writing to w. Used by tests and by
// callers that capture output.
func New(w io.Writer, verbose bool) *Logger {
	return &Logger{out: w, errOut: w, verbose: verbose}
}

// Discard returns a logger that drops everything.
func Discard() *Logger { return New(io.Discard, false) }

// Close closes the log file if one was opened.
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

// Verbose reports whether debug output is enabled.
func (l *Logger) Verbose() bool { return l.verbose }

func (l *Logger) line(level, color, text string) {
	ts := time.Now().Format("2006-01-02 15:04:05")
	l.mu.Lock()
	defer l.mu.Unlock()
	plain := ts + " [" + level + "] " + text + "\n"
	out := l.out
	if level == "ERROR" {
		out = l.errOut
	}
	if l.color && color != "" {
		_, _ = io.WriteString(out, ts+" "+color+"["+level+"]"+term.NC+" "+text+"\n")
	} else {
		_, _ = io.WriteString(out, plain)
	}
	if l.file != nil {
		_, _ = io.WriteString(l.file, plain)
	}
}

// Info logs at INFO level (blue).
func (l *Logger) Info(format string, args ...any) {
	l.line("INFO", term.Blue, fmt.Sprintf(format, args...))
}

// Success logs at SUCCESS level (green).
func (l *Logger) Success(format string, args ...any) {
	l.line("SUCCESS", term.Green, fmt.Sprintf(format, args...))
}

// Warn logs at WARN level (yellow).
func (l *Logger) Warn(format string, args ...any) {
	l.line("WARN", term.Yellow, fmt.Sprintf(format, args...))
}

// Error logs at ERROR level (red) to the error stream.
func (l *Logger) Error(format string, args ...any) {
	l.line("ERROR", term.Red, fmt.Sprintf(format, args...))
}

// Exec logs an external process launch (magenta).
func (l *Logger) Exec(format string, args ...any) {
	l.line("EXEC", term.Magenta, fmt.Sprintf(format, args...))
}

// Debug logs at DEBUG level (cyan) when verbose output is on.
func (l *Logger) Debug(format string, args ...any) {
	if !l.verbose {
		return
	}
	l.line("DEBUG", term.Cyan, fmt.Sprintf(format, args...))
}
