// Package logger is the leveled logging facility shared by the allocator and
// its tools. Output is discarded until Init enables it, and Enabled lets hot
// code skip building attributes when nothing would be written.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
)

const (
	logPrefix     = "ntmalloc-"
	logSuffix     = ".log"
	retentionDays = 30
)

var (
	current atomic.Pointer[slog.Logger]
	active  atomic.Bool
	minimum atomic.Int64
	logFile atomic.Pointer[os.File]
)

func init() {
	current.Store(discard())
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Options configures the logger initialization.
type Options struct {
	Enabled bool       // If false, all logging is discarded
	Level   slog.Level // Minimum log level
	Output  io.Writer  // Destination; defaults to stderr unless LogDir is set
	LogDir  string     // When set, logs go to a dated file in this directory
	JSON    bool       // JSON records instead of text
}

// L returns the current logger.
func L() *slog.Logger { return current.Load() }

// Init configures logging. It may be called again to reconfigure; the
// previous log file, if any, is closed.
func Init(opts Options) error {
	if !opts.Enabled {
		swap(discard(), nil)
		active.Store(false)
		return nil
	}

	out := opts.Output
	var f *os.File
	if opts.LogDir != "" {
		if err := os.MkdirAll(opts.LogDir, 0o755); err != nil {
			return err
		}
		// Clean up old logs (best-effort, ignore errors)
		cleanOldLogs(opts.LogDir)

		filename := filepath.Join(opts.LogDir, logPrefix+time.Now().Format("2006-01-02")+logSuffix)
		var err error
		f, err = os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		out = f
	}
	if out == nil {
		out = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: opts.Level}
	var h slog.Handler
	if opts.JSON {
		h = slog.NewJSONHandler(out, handlerOpts)
	} else {
		h = slog.NewTextHandler(out, handlerOpts)
	}
	minimum.Store(int64(opts.Level))
	swap(slog.New(h), f)
	active.Store(true)
	return nil
}

func swap(l *slog.Logger, f *os.File) {
	current.Store(l)
	if old := logFile.Swap(f); old != nil {
		_ = old.Close()
	}
}

// Enabled reports whether a record at level would be written.
func Enabled(level slog.Level) bool {
	return active.Load() && int64(level) >= minimum.Load()
}

// ParseLevel maps debug, info, warn and error (any case) to a level. ok is
// false for anything else, including "off" and the empty string.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return 0, false
}

// cleanOldLogs removes log files older than retentionDays.
func cleanOldLogs(logDir string) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	entries, err := os.ReadDir(logDir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, logPrefix) || !strings.HasSuffix(name, logSuffix) {
			continue
		}

		// ntmalloc-2024-01-05.log
		dateStr := strings.TrimPrefix(strings.TrimSuffix(name, logSuffix), logPrefix)
		logDate, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			continue
		}

		if logDate.Before(cutoff) {
			os.Remove(filepath.Join(logDir, name))
		}
	}
}

// Debug logs a debug message with optional key-value pairs.
func Debug(msg string, args ...any) { log(slog.LevelDebug, msg, args) }

// Info logs an info message with optional key-value pairs.
func Info(msg string, args ...any) { log(slog.LevelInfo, msg, args) }

// Warn logs a warning message with optional key-value pairs.
func Warn(msg string, args ...any) { log(slog.LevelWarn, msg, args) }

// Error logs an error message with optional key-value pairs.
func Error(msg string, args ...any) { log(slog.LevelError, msg, args) }

func log(level slog.Level, msg string, args []any) {
	if !Enabled(level) {
		return
	}
	current.Load().Log(context.Background(), level, msg, args...)
}
