package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"workclock-backend/internal/platform/config"
)

// New: mode=release なら JSON、dev ならテキスト（ソース位置付き）。format 指定があればそちらを優先
func New(mode string, cfg config.LogConfig) *slog.Logger {
	return newWithWriter(os.Stderr, mode, cfg)
}

func newWithWriter(w io.Writer, mode string, cfg config.LogConfig) *slog.Logger {
	format := strings.ToLower(strings.TrimSpace(cfg.Format))
	if format == "" {
		format = "text"
		if mode == "release" {
			format = "json"
		}
	}

	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: format == "text",
	}

	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}

	l := slog.New(h)
	slog.SetDefault(l)
	return l
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
