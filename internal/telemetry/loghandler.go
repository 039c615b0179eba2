package telemetry

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	otellog "go.opentelemetry.io/otel/log"
)

const logScope = "lifesync"

// NewLogHandler returns a handler that writes each record to next and also
// emits it through lp via the otelslog bridge. next decides which levels are
// enabled for both. Pass global.GetLoggerProvider() to follow whatever
// [Setup] installs later.
func NewLogHandler(next slog.Handler, lp otellog.LoggerProvider) slog.Handler {
	return fanout{next, otelslog.NewHandler(logScope, otelslog.WithLoggerProvider(lp))}
}

// fanout sends records to every handler. The first one gates Enabled.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	return f[0].Enabled(ctx, level)
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
