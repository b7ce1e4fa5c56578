package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

const masked = "********"

// secretKeys are attribute names whose values are never written.
var secretKeys = map[string]bool{
	"apikey":  true,
	"api_key": true,
	"api-key": true,
}

func Setup(logLevel string, format string) {
	slog.SetDefault(New(os.Stderr, logLevel, format))
}

// New returns a logger writing text, or JSON when format is "json".
func New(w io.Writer, logLevel string, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       parseLevel(logLevel),
		ReplaceAttr: maskSecrets,
	}

	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(logLevel string) slog.Level {
	switch strings.ToLower(logLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func maskSecrets(_ []string, a slog.Attr) slog.Attr {
	if secretKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, masked)
	}

	return a
}

func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
