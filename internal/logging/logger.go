package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kura/internal/config"
)

// LogFileName is the file written under paths.log_dir.
const LogFileName = "kura.log"

// Options describes logger construction.
type Options struct {
	Level  string
	Format string
	// Console receives the human-facing stream. Nil means stderr.
	Console io.Writer
	// FilePath, when set, gets a JSON copy of every record at info level or
	// below the console level, whichever is lower.
	FilePath string
	// Caller adds source locations; debug level always does.
	Caller bool
}

// New builds a logger from opts.
func New(opts Options) (*slog.Logger, error) {
	level := parseLevel(opts.Level)
	caller := opts.Caller || level <= slog.LevelDebug
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	var handler slog.Handler
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "console":
		handler = newConsoleHandler(console, level, caller)
	case "json":
		handler = newJSONHandler(console, level, caller)
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	if path := strings.TrimSpace(opts.FilePath); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", path, err)
		}
		handler = newTee(handler, newJSONHandler(file, min(level, slog.LevelInfo), caller))
	}
	return slog.New(handler), nil
}

// NewFromConfig builds the logger every command uses: console output on
// stderr in the configured format plus <log_dir>/kura.log.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "info"})
	}
	opts := Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format}
	if cfg.Paths.LogDir != "" {
		opts.FilePath = filepath.Join(cfg.Paths.LogDir, LogFileName)
	}
	return New(opts)
}

func parseLevel(level string) slog.Level {
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

// newJSONHandler writes the format package logs parses: "ts" in RFC3339 UTC,
// a lowercase level, and source as file:line.
func newJSONHandler(w io.Writer, level slog.Level, caller bool) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: caller,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return attr
			}
			switch attr.Key {
			case slog.TimeKey:
				attr.Key = "ts"
				attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339))
			case slog.LevelKey:
				attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
			case slog.SourceKey:
				if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
					attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
				}
			}
			return attr
		},
	})
}
