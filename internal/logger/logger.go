// Package logger writes structured JSON logs to a file so terminal output stays clean.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

const logFileName = "debug.log"

var (
	configDir = defaultDir()
	mu        sync.Mutex
	logFile   *os.File
	Log       = slog.New(slog.NewJSONHandler(io.Discard, nil))
)

func defaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, ".config", "mac-maintain")
}

// Dir returns the directory holding the log and the user config.
func Dir() string {
	return configDir
}

// SetDir moves the log directory used by the next Init.
func SetDir(dir string) {
	mu.Lock()
	defer mu.Unlock()
	configDir = dir
}

// Path returns the log file location.
func Path() string {
	return filepath.Join(configDir, logFileName)
}

// Init initializes the logger.
// - debug=true: logs all levels (DEBUG+) to file
// - debug=false: logs WARN/ERROR only to file
func Init(debug bool) error {
	mu.Lock()
	defer mu.Unlock()

	closeLocked()

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(Path(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return err
	}
	logFile = f

	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	Log = slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
	return nil
}

// SetOutput replaces the handler with one writing to w at the given level.
func SetOutput(w io.Writer, level slog.Level) {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
	Log = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func Debug(msg string, args ...any) { Log.Debug(msg, args...) }
func Info(msg string, args ...any)  { Log.Info(msg, args...) }
func Warn(msg string, args ...any)  { Log.Warn(msg, args...) }
func Error(msg string, args ...any) { Log.Error(msg, args...) }

// With returns a logger that adds args to every record.
func With(args ...any) *slog.Logger { return Log.With(args...) }

func Close() {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
	Log = slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func closeLocked() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}
