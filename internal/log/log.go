// Package log configures crewvault's structured logging.
//
// By default logs go to stderr as text. When a log file is configured,
// output switches to JSON through a size-rotated writer.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// RotationConfig configures the rotating file writer.
type RotationConfig struct {
	File      string
	MaxSizeMB int
	MaxFiles  int
}

// NewRotatingWriter builds a size-rotated log writer, creating the log
// directory if needed.
func NewRotatingWriter(cfg RotationConfig) (*lumberjack.Logger, error) {
	if cfg.File == "" {
		return nil, fmt.Errorf("rotation file path must not be empty")
	}

	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 10
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = 5
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	writer := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxFiles,
		Compress:   false,
	}
	return writer, nil
}

// ParseLevel maps a level name to a slog.Level. Unknown names default to
// info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup builds the process logger. The returned closer is non-nil when a
// rotating file writer is in use and must be closed on shutdown.
func Setup(level, file string, maxSizeMB, maxFiles int) (*slog.Logger, io.Closer, error) {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	if file == "" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil, nil
	}

	writer, err := NewRotatingWriter(RotationConfig{
		File:      file,
		MaxSizeMB: maxSizeMB,
		MaxFiles:  maxFiles,
	})
	if err != nil {
		return nil, nil, err
	}
	return slog.New(slog.NewJSONHandler(writer, opts)), writer, nil
}
