package app

import (
	"io"
	"log/slog"
	"os"

	"github.com/vk/mammoth/internal/config"
	"github.com/vk/mammoth/pkg/diagnostics"
)

// newLogger creates and configures a new slog.Logger instance. It does not
// set the global logger, allowing for isolated logger instances.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler

	if formatStr == "json" {
		handler = slog.NewJSONHandler(outW, handlerOpts)
	} else {
		handler = slog.NewTextHandler(outW, handlerOpts)
	}

	return slog.New(handler)
}

// openLogFile opens the log file sink configured in the mammoth block. It
// returns a nil sink when no log file is configured or it cannot be opened;
// the path is reported again during validation.
func openLogFile(logger *slog.Logger, m config.Mammoth) (*diagnostics.WriterLogger, io.Closer) {
	if m.LogFile == "" {
		return nil, nil
	}
	f, err := os.OpenFile(m.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger.Warn("Log file unavailable.", "path", m.LogFile, "error", err)
		return nil, nil
	}
	logger.Debug("Log file opened.", "path", m.LogFile, "severity", m.Severity().Name())
	return diagnostics.NewWriterLogger(f, m.Severity()), f
}
