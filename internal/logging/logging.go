// Package logging builds the structured logger shared by every command.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ServiceName is attached to every record.
const ServiceName = "git-moves-together"

// Mode identifies how the binary is running.
type Mode string

const (
	ModeCLI   Mode = "cli"
	ModeWatch Mode = "watch"
	ModeMCP   Mode = "mcp"
)

// ParseLevel converts a level name to an slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

// New returns a text logger writing to w at level, with service and mode
// pre-attached so they stay top level under WithGroup.
func New(w io.Writer, level slog.Level, mode Mode) *slog.Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler.WithAttrs([]slog.Attr{
		slog.String("service", ServiceName),
		slog.String("mode", string(mode)),
	}))
}
