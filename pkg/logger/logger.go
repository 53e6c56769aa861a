// Package logger centralizes the process logger: slog with a tinted
// console handler, level controlled by LOG_LEVEL.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

var (
	defaultLogger *slog.Logger
	once          sync.Once
)

// GetLogger returns the shared process logger, constructing it on
// first use. LOG_LEVEL selects the level (debug, info, warn, error);
// color is disabled when stderr is not a terminal or NO_COLOR is set.
func GetLogger() *slog.Logger {
	once.Do(func() {
		defaultLogger = New(ParseLevel(os.Getenv("LOG_LEVEL")), os.Stderr)
	})
	return defaultLogger
}

// New constructs a logger writing to w at the given level.
func New(level slog.Level, w io.Writer) *slog.Logger {
	noColor := os.Getenv("NO_COLOR") != ""
	if f, ok := w.(*os.File); ok {
		noColor = noColor || !isatty.IsTerminal(f.Fd())
	} else {
		noColor = true
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.DateTime,
		NoColor:    noColor,
	}))
}

// ParseLevel maps a level name to its slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
