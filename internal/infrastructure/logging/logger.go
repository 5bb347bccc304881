package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/stonehollow/mqtt-inbound/internal/infrastructure/config"
)

// serviceName tags every log record produced by this daemon.
const serviceName = "mqtt-inbound"

// Logger wraps slog.Logger with the daemon's conventions: structured
// key-value records, a fixed service/version pair on every line, and
// level filtering driven by configuration.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Logger struct {
	*slog.Logger
}

// New builds a Logger from the logging section of config.yaml. Format
// selects JSON (default) or text output, Output selects stdout (default)
// or stderr, and Level falls back to info when unrecognised.
func New(cfg config.LoggingConfig, version string) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var out io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		out = os.Stderr
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", serviceName),
		slog.String("version", version),
	})

	return &Logger{Logger: slog.New(handler)}
}

// parseLevel maps a config string to a slog.Level, defaulting to info.
func parseLevel(level string) slog.Level {
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

// With returns a child Logger carrying additional default attributes,
// typically a component name:
//
//	adapterLog := logger.With("component", "inbound")
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default returns a JSON/info/stdout logger for use during early startup,
// before the configuration file has been loaded.
func Default() *Logger {
	return New(config.LoggingConfig{}, "dev")
}
