package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ppiankov/hazardscore/internal/model"
)

// Init configures the global slog logger from config. JSON when cfg.JSON
// is set, text otherwise. Logs go to stderr so command output stays clean.
func Init(service string, cfg model.LogConfig) *slog.Logger {
	return InitWriter(os.Stderr, service, cfg)
}

// InitWriter is Init with an explicit destination
func InitWriter(w io.Writer, service string, cfg model.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: false, Level: ParseLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler).With("service", service)
	slog.SetDefault(logger)
	logger.Debug("logging initialized", "json", cfg.JSON, "level", opts.Level)
	return logger
}

// ParseLevel maps a level name to a slog level, defaulting to info
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
