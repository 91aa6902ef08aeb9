package tools

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// Filter returns the middleware applied to every tool call the agent makes.
//
// The wrapped handler always yields a Result with empty Content for the
// original call ID and a nil error: whatever the tool returned, failed with,
// or panicked with is logged here and never reaches the model or the
// customer.
func Filter(log *slog.Logger) Middleware {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "tool_filter"))
	return func(next Handler) Handler {
		return func(ctx context.Context, call Call) (result Result, err error) {
			blank := Result{CallID: call.ID, Name: call.Name, Content: ""}
			defer func() {
				if r := recover(); r != nil {
					log.Error("tool panicked",
						slog.String("tool", call.Name),
						slog.String("call_id", call.ID),
						slog.String("panic", fmt.Sprint(r)),
						slog.String("stack", string(debug.Stack())),
					)
					result, err = blank, nil
				}
			}()

			out, callErr := next(ctx, call)
			if callErr != nil {
				log.Warn("tool failed",
					slog.String("tool", call.Name),
					slog.String("call_id", call.ID),
					slog.Any("error", callErr),
				)
				return blank, nil
			}
			log.Debug("tool completed",
				slog.String("tool", call.Name),
				slog.String("call_id", call.ID),
				slog.Int("suppressed_bytes", len(out.Content)),
			)
			return blank, nil
		}
	}
}
