package records

import (
	"context"
	"fmt"
	"log/slog"
)

// slogAdapter routes Lark SDK logs to slog.
type slogAdapter struct {
	logger *slog.Logger
}

func newSlogAdapter(log *slog.Logger) slogAdapter {
	return slogAdapter{logger: log.With(slog.String("source", "lark_sdk"))}
}

func (a slogAdapter) Debug(ctx context.Context, args ...interface{}) {
	a.logger.DebugContext(ctx, fmt.Sprint(args...))
}

func (a slogAdapter) Info(ctx context.Context, args ...interface{}) {
	a.logger.InfoContext(ctx, fmt.Sprint(args...))
}

func (a slogAdapter) Warn(ctx context.Context, args ...interface{}) {
	a.logger.WarnContext(ctx, fmt.Sprint(args...))
}

func (a slogAdapter) Error(ctx context.Context, args ...interface{}) {
	a.logger.ErrorContext(ctx, fmt.Sprint(args...))
}
