// Package logging builds the process-wide slog handler.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/lmittmann/tint"
)

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return l, nil
}

// New returns a logger writing to w. Format "json" selects the JSON handler,
// anything else the colourised console handler.
func New(w io.Writer, level, format string) (*slog.Logger, error) {
	l, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: l})), nil
	case "", "text":
		return slog.New(tint.NewHandler(w, &tint.Options{Level: l})), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
}

// Setup installs a logger built by New as the slog default.
func Setup(w io.Writer, level, format string) error {
	logger, err := New(w, level, format)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}
