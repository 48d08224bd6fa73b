package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mesh-intelligence/statcraft/pkg/types"
)

// newLogger builds the command logger. An empty level means warn, so
// commands stay quiet unless asked.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case types.LogLevelDebug:
		lvl = slog.LevelDebug
	case types.LogLevelInfo:
		lvl = slog.LevelInfo
	case "", types.LogLevelWarn:
		lvl = slog.LevelWarn
	case types.LogLevelError:
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("%w: %w: %q", errUser, types.ErrLogLevelUnknown, level)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("%w: unknown log format %q", errUser, format)
	}
}
