package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	slogmulti "github.com/samber/slog-multi"
)

type tickKey struct{}

// Setup installs the process-wide logger: human-readable text on stdout and
// JSON errors on stderr, with tick ids attached to every record.
func Setup(level string) *slog.Logger {
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	jsonHandler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	})

	handler := slogmulti.
		Pipe(TickMiddleware()).
		Handler(slogmulti.Fanout(textHandler, jsonHandler))

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// TickMiddleware adds a tick_id attribute when the record's context carries one.
func TickMiddleware() slogmulti.Middleware {
	return slogmulti.NewHandleInlineMiddleware(func(ctx context.Context, record slog.Record, next func(context.Context, slog.Record) error) error {
		if id, ok := TickID(ctx); ok {
			record.AddAttrs(slog.String("tick_id", id))
		}
		return next(ctx, record)
	})
}

// WithTick returns a context tagged with a fresh tick id.
func WithTick(ctx context.Context) context.Context {
	return context.WithValue(ctx, tickKey{}, uuid.NewString())
}

func TickID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(tickKey{}).(string)
	return id, ok && id != ""
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
