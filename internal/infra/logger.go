package infra

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// NewLogger builds the process logger from config. Logs always reach
// stdout; when a file is configured they are duplicated there so a
// detached run leaves a trail.
func NewLogger(cfg *Config) (*slog.Logger, error) {
	var out io.Writer = os.Stdout

	if cfg.Logging.File != "" {
		if err := EnsureDir(filepath.Dir(cfg.Logging.File)); err != nil {
			return nil, fmt.Errorf("prepare log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, f)
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	})
	logger := slog.New(handler).With(
		slog.String("app", cfg.App.Name),
		slog.String("mode", cfg.Mode()),
	)
	slog.SetDefault(logger)
	return logger, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
