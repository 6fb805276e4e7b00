package agentkit

import (
	"context"
	"log/slog"
	"time"
)

// Middleware wraps a Handler with cross-cutting behavior (logging, recovery, timeout).
type Middleware func(Handler) Handler

// WithLogging returns a middleware that logs start, end, duration, and errors.
func WithLogging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, call Call) (string, error) {
			logger.InfoContext(ctx, "tool start", "tool", call.Tool.Name, "call_id", call.ID)
			start := time.Now()
			res, err := next(ctx, call)
			dur := time.Since(start)
			if err != nil {
				logger.ErrorContext(ctx, "tool error", "tool", call.Tool.Name, "call_id", call.ID, "duration", dur, "error", err)
				return "", err
			}
			logger.InfoContext(ctx, "tool end", "tool", call.Tool.Name, "call_id", call.ID, "duration", dur)
			return res, nil
		}
	}
}

// WithRecovery returns a middleware that recovers panics and returns SystemError.
// Useful when the Compiler was built with WithRecoverPanics(false) but one layer
// of the chain still needs protection.
func WithRecovery() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, call Call) (res string, err error) {
			defer func() {
				if p := recover(); p != nil {
					res = ""
					err = &SystemError{Err: &panicError{p: p}}
				}
			}()
			return next(ctx, call)
		}
	}
}

// WithTimeoutMiddleware returns a middleware that enforces a per-call timeout.
// Named with "Middleware" suffix to avoid collision with the compiler option WithDefaultTimeout.
// When both apply, the effective timeout is the minimum of the two.
func WithTimeoutMiddleware(d time.Duration) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, call Call) (string, error) {
			if d <= 0 {
				return next(ctx, call)
			}
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(ctx, call)
		}
	}
}
