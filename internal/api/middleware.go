package api

import (
	"log/slog"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// NewHTTPLoggingMiddleware logs every request, at a level chosen by status:
// errors for 5xx, warnings for 4xx, debug for read-only polling and info for
// everything that changes the plant.
func NewHTTPLoggingMiddleware(logger *slog.Logger) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		start := time.Now()

		next(ctx)

		attrs := []slog.Attr{
			slog.String("method", ctx.Method()),
			slog.String("path", ctx.URL().Path),
			slog.String("remote_addr", ctx.RemoteAddr()),
			slog.Int("status", ctx.Status()),
			slog.Duration("duration", time.Since(start)),
		}
		if op := ctx.Operation(); op != nil {
			attrs = append(attrs, slog.String("operation", op.OperationID))
		}

		status := ctx.Status()
		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		case ctx.Method() == "GET":
			level = slog.LevelDebug
		}
		logger.LogAttrs(ctx.Context(), level, "HTTP request completed", attrs...)
	}
}
