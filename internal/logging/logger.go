package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/KeystonCloud/satellite/internal/config"
)

// NewLogger creates the process logger on stdout.
func NewLogger(cfg *config.Config) zerolog.Logger {
	return New(os.Stdout, cfg)
}

// New creates a structured zerolog.Logger writing to w, tagged with the
// service and replica identity from the config. Empty fields are omitted.
// LogFormat "console" writes human-readable lines instead of JSON.
func New(w io.Writer, cfg *config.Config) zerolog.Logger {
	if cfg.LogFormat == config.LogFormatConsole {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05.000", NoColor: true}
	}
	ctx := zerolog.New(w).With().Timestamp()

	if cfg.ServiceName != "" {
		ctx = ctx.Str("service", cfg.ServiceName)
	}
	if cfg.NodeID != "" {
		ctx = ctx.Str("node_id", cfg.NodeID)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}

	return ctx.Logger().Level(level)
}

// Component returns a child logger for one subsystem of the control plane,
// such as the sweeper or the coordinator.
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}
