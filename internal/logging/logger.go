// Package logging constructs the process-wide structured logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the logger. Zero value produces an info-level
// logger writing only to stdout.
type Options struct {
	Level   string // debug, info, warn, error
	LogDir  string // directory for the rotated log file; "" disables file logging
	AddSource bool
}

// New builds a *slog.Logger writing JSON records to stdout and, when
// LogDir is set, to a size/age-rotated file via lumberjack.
func New(opts Options) *slog.Logger {
	var writer io.Writer = os.Stdout

	if opts.LogDir != "" {
		if err := os.MkdirAll(opts.LogDir, 0o755); err != nil {
			writer = os.Stderr
		} else {
			fileLogger := &lumberjack.Logger{
				Filename:   filepath.Join(opts.LogDir, "xvenue.log"),
				MaxSize:    50,
				MaxBackups: 5,
				MaxAge:     14,
				Compress:   true,
			}
			writer = io.MultiWriter(os.Stdout, fileLogger)
		}
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     levelFromString(opts.Level),
		AddSource: opts.AddSource,
	}

	return slog.New(slog.NewJSONHandler(writer, handlerOpts))
}

func levelFromString(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithVenue returns a logger with a venue field attached, used by stream
// clients and parsers to tag every record with which venue it concerns.
func WithVenue(logger *slog.Logger, venue string) *slog.Logger {
	return logger.With(slog.String("venue", venue))
}
