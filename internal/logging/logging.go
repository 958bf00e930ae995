// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options selects the handler and level for New.
type Options struct {
	Env    string // "production" selects JSON output when Format is empty
	Format string // "json" or "text"
	Level  string // "debug", "info", "warn", "error"
}

// New builds a logger writing to w. In production, or when Format is "json",
// it uses JSON output for log aggregation; otherwise the text handler.
func New(w io.Writer, opts Options) *slog.Logger {
	ho := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}

	format := strings.ToLower(opts.Format)
	if format == "" && strings.EqualFold(opts.Env, "production") {
		format = "json"
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, ho)
	} else {
		handler = slog.NewTextHandler(w, ho)
	}
	return slog.New(handler)
}

// Init installs a logger on stderr as the slog default and returns it.
func Init(opts Options) *slog.Logger {
	logger := New(os.Stderr, opts)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps a level name to a slog.Level. Unknown names yield Info.
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

// WithAccount returns a logger scoped to a target account.
func WithAccount(logger *slog.Logger, accountID string) *slog.Logger {
	return logger.With("account_id", accountID)
}
