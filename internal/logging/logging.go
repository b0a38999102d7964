package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultPrefix    = "networth"
	defaultRetention = 7
	fileDateLayout   = "2006-01-02"
)

const (
	envLogLevel     = "NETWORTH_LOG_LEVEL"
	envLogFormat    = "NETWORTH_LOG_FORMAT"
	envLogRetention = "NETWORTH_LOG_RETENTION_DAYS"
)

// DailyWriter appends to <prefix>-YYYY-MM-DD.log, switching files when the
// day changes and pruning files older than the retention window.
type DailyWriter struct {
	dir           string
	prefix        string
	retentionDays int
	now           func() time.Time

	mu   sync.Mutex
	day  string
	file *os.File
}

// NewDailyWriter opens today's log file in dir. A non-positive retention
// uses NETWORTH_LOG_RETENTION_DAYS, else seven days.
func NewDailyWriter(dir string, retentionDays int) (*DailyWriter, error) {
	return openDailyWriter(dir, defaultPrefix, retentionDays, time.Now)
}

func openDailyWriter(dir, prefix string, retentionDays int, now func() time.Time) (*DailyWriter, error) {
	if retentionDays <= 0 {
		retentionDays = envRetention()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	w := &DailyWriter{dir: dir, prefix: prefix, retentionDays: retentionDays, now: now}
	if err := w.switchDay(now()); err != nil {
		return nil, err
	}
	return w, nil
}

func envRetention() int {
	if days, err := strconv.Atoi(strings.TrimSpace(os.Getenv(envLogRetention))); err == nil && days > 0 {
		return days
	}
	return defaultRetention
}

// Write implements io.Writer.
func (w *DailyWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.switchDay(w.now()); err != nil {
		return 0, err
	}
	return w.file.Write(p)
}

// Close closes the current file.
func (w *DailyWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func (w *DailyWriter) fileName(day string) string {
	return fmt.Sprintf("%s-%s.log", w.prefix, day)
}

func (w *DailyWriter) switchDay(now time.Time) error {
	day := now.Format(fileDateLayout)
	if day == w.day && w.file != nil {
		return nil
	}
	file, err := os.OpenFile(filepath.Join(w.dir, w.fileName(day)), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if w.file != nil {
		_ = w.file.Close()
	}
	w.day = day
	w.file = file
	w.prune(now)
	return nil
}

// prune removes this writer's files dated before the retention window.
// Files it did not name are left alone.
func (w *DailyWriter) prune(now time.Time) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return
	}
	cutoff := now.AddDate(0, 0, -w.retentionDays).Format(fileDateLayout)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			continue
		}
		day, ok := strings.CutPrefix(name, w.prefix+"-")
		if !ok {
			continue
		}
		day, ok = strings.CutSuffix(day, ".log")
		if !ok {
			continue
		}
		if _, err := time.Parse(fileDateLayout, day); err != nil {
			continue
		}
		// ISO dates order lexically.
		if day < cutoff {
			_ = os.Remove(filepath.Join(w.dir, name))
		}
	}
}

// NewLogger creates a slog.Logger writing to stdout and a daily file. The
// level may be overridden by NETWORTH_LOG_LEVEL.
func NewLogger(logDir string, level slog.Level) (*slog.Logger, *DailyWriter, error) {
	writer, err := NewDailyWriter(logDir, 0)
	if err != nil {
		return nil, nil, err
	}
	logger := New(io.MultiWriter(os.Stdout, writer), resolveLevel(level))
	slog.SetDefault(logger)
	return logger, writer, nil
}

// New builds the service logger over w without touching the default logger.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(newHandler(w, level)).With("service", defaultPrefix)
}

// ParseLevel maps a level name or number to a slog.Level.
func ParseLevel(value string) (slog.Level, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	switch value {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	if i, err := strconv.Atoi(value); err == nil {
		return slog.Level(i), true
	}
	return slog.LevelInfo, false
}

func resolveLevel(fallback slog.Level) slog.Level {
	if level, ok := ParseLevel(os.Getenv(envLogLevel)); ok {
		return level
	}
	return fallback
}

func newHandler(w io.Writer, level slog.Level) slog.Handler {
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(os.Getenv(envLogFormat)))
	if format == "json" {
		return slog.NewJSONHandler(w, options)
	}
	return slog.NewTextHandler(w, options)
}
