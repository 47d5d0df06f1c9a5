// Package logger configures the process-wide slog logger.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"
)

type Config struct {
	Level   string // debug, info, warn, error
	Format  string // text or json; empty picks text in dev mode
	DevMode bool
	Output  io.Writer
}

// Init installs the default slog logger.
func Init(cfg Config) {
	slog.SetDefault(New(cfg))
}

func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	level := ParseLevel(cfg.Level)
	if cfg.DevMode && cfg.Level == "" {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	format := strings.ToLower(cfg.Format)
	if format == "" {
		format = "json"
		if cfg.DevMode {
			format = "text"
		}
	}

	if format == "text" {
		return slog.New(slog.NewTextHandler(out, opts))
	}
	return slog.New(slog.NewJSONHandler(out, opts))
}

// ParseLevel maps a level name to slog.Level. Unknown names map to Info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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

// LogPanic logs a recovered panic value with its stack.
func LogPanic(r any, msg string, args ...any) {
	args = append(args, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
	slog.Error(msg, args...)
}

// Truncate shortens s to at most n bytes for log output.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
