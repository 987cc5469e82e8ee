package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	slogmulti "github.com/samber/slog-multi"

	"studentoffer/internal/config"
)

func parseLevel(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
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

func newHandler(out io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(out, opts)
	}
	return slog.NewTextHandler(out, opts)
}

// New builds the process logger. Records go to out and, when LOG_FILE is
// set, are also appended to that file as JSON. The returned closer releases
// the file.
func New(cfg config.Config, out io.Writer) (*slog.Logger, func() error, error) {
	level := parseLevel(cfg.LogLevel)
	handler := newHandler(out, cfg.LogFormat, level)

	if strings.TrimSpace(cfg.LogFile) == "" {
		return slog.New(handler), func() error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	logger := slog.New(slogmulti.Fanout(
		handler,
		slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level}),
	))
	return logger, file.Close, nil
}
