package observability

import (
	"io"
	"log/slog"

	"hermannm.dev/devlog"

	"aasquery/backend/internal/config"
)

// SetupLogger installs the default slog logger, which the devlog/log helpers
// write through.
func SetupLogger(cfg config.Log, writer io.Writer) *slog.Logger {
	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: cfg.Level})
	} else {
		handler = devlog.NewHandler(writer, &devlog.Options{Level: cfg.Level})
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
