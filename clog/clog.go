// Package clog configures structured logging for the process: human
// readable text on stderr for interactive use, rotated JSON files for
// daemons, or both at once. It builds on log/slog, so application code
// logs through slog and never imports this package outside of Setup.
package clog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// ErrUnknownLevel is returned by ParseLevel for unrecognized names.
var ErrUnknownLevel = errors.New("clog: unknown log level")

// Config selects log destinations and verbosity. The zero value logs
// warnings and above to stderr.
type Config struct {
	// Level is one of DEBUG, INFO, WARN, WARNING, ERROR (case
	// insensitive). Empty means WARN.
	Level string `json:"level"`

	// Console forces text output on stderr even when File is set.
	Console bool `json:"console"`

	// File enables JSON output to a rotated log file.
	File string `json:"file"`

	// Rotation limits for File. Zero values mean 100 MB, 5 backups,
	// and no age limit.
	MaxSizeMB  int `json:"max_size_mb"`
	MaxBackups int `json:"max_backups"`
	MaxAgeDays int `json:"max_age_days"`
}

// Setup installs the configured handler chain as the slog default.
func Setup(cfg Config) error {
	handler, err := buildHandler(cfg, os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

// New returns a logger tagged with a component name. Components call
// this once and keep the logger.
func New(name string) *slog.Logger {
	return slog.Default().With(slog.String("name", name))
}

func buildHandler(cfg Config, console io.Writer) (slog.Handler, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	var handlers []slog.Handler
	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    orDefault(cfg.MaxSizeMB, 100),
			MaxBackups: orDefault(cfg.MaxBackups, 5),
			MaxAge:     cfg.MaxAgeDays,
		}
		handlers = append(handlers, slog.NewJSONHandler(rotator, opts))
	}
	if cfg.Console || cfg.File == "" {
		handlers = append(handlers, slog.NewTextHandler(console, opts))
	}
	if len(handlers) == 1 {
		return handlers[0], nil
	}
	return fanout(handlers), nil
}

func orDefault(value, fallback int) int {
	if value == 0 {
		return fallback
	}
	return value
}

// ParseLevel maps a level name to its slog value.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "":
		return slog.LevelWarn, nil
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownLevel, name)
}

// fanout duplicates records to every handler. A record is emitted when
// any handler wants it; each handler still applies its own level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, h := range f {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make(fanout, len(f))
	for i, h := range f {
		next[i] = h.WithAttrs(attrs)
	}
	return next
}

func (f fanout) WithGroup(name string) slog.Handler {
	next := make(fanout, len(f))
	for i, h := range f {
		next[i] = h.WithGroup(name)
	}
	return next
}
