package observability

import (
	"context"
	"log/slog"
	"time"
)

// Enabled reports whether observability has been toggled on.
func Enabled() bool {
	_, cfg := currentLogger()
	return cfg.Enabled
}

type spanKey struct{}

// Span identifies the operation a context belongs to.
type Span struct {
	Component string
	Operation string
	Start     time.Time
}

// SpanFromContext returns the innermost span started on ctx.
func SpanFromContext(ctx context.Context) (Span, bool) {
	s, ok := ctx.Value(spanKey{}).(Span)
	return s, ok
}

// StartSpan logs the start of an operation and returns a context carrying the
// span plus a func that logs its end. The end func logs at error level when
// given a non-nil error.
func StartSpan(ctx context.Context, component, operation string, attrs ...slog.Attr) (context.Context, func(error)) {
	span := Span{Component: component, Operation: operation, Start: time.Now()}
	ctx = context.WithValue(ctx, spanKey{}, span)

	logger, _ := currentLogger()
	if logger == nil {
		return ctx, func(error) {}
	}

	base := append([]slog.Attr{
		slog.String("component", component),
		slog.String("operation", operation),
	}, attrs...)
	logger.LogAttrs(ctx, slog.LevelDebug, "span start", base...)

	return ctx, func(err error) {
		level := slog.LevelDebug
		end := append(append([]slog.Attr(nil), base...), slog.Duration("duration", time.Since(span.Start)))
		if err != nil {
			level = slog.LevelError
			end = append(end, slog.Any("error", err))
		}
		logger.LogAttrs(ctx, level, "span end", end...)
	}
}
