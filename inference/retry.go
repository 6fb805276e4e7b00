package inference

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	defaultRetries    = 5
	defaultRetryDelay = time.Second
)

// RetryProvider retries transport failures of the wrapped provider with a
// constant delay, then returns the last error. Cancellation is never retried.
type RetryProvider struct {
	next    Provider
	retries int
	delay   time.Duration
	logger  *slog.Logger
}

// RetryOption configures a RetryProvider.
type RetryOption func(*RetryProvider)

// WithRetryLogger sets the logger for retry notices.
func WithRetryLogger(logger *slog.Logger) RetryOption {
	return func(r *RetryProvider) {
		r.logger = logger
	}
}

// WithRetry wraps next so that each request is attempted up to retries+1 times
// with delay between attempts. Non-positive values select 5 retries and 1s.
func WithRetry(next Provider, retries int, delay time.Duration, opts ...RetryOption) *RetryProvider {
	if retries <= 0 {
		retries = defaultRetries
	}
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	r := &RetryProvider{next: next, retries: retries, delay: delay, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RetryProvider) Complete(ctx context.Context, req Request) (Response, error) {
	op := func() (Response, error) {
		resp, err := r.next.Complete(ctx, req)
		if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			return Response{}, backoff.Permanent(err)
		}
		return resp, err
	}
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(r.delay)),
		backoff.WithMaxTries(uint(r.retries+1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			r.logger.WarnContext(ctx, "provider request failed, retrying", "error", err, "delay", next)
		}),
	)
}

// MaxContextLength forwards the wrapped provider's limit, if any.
func (r *RetryProvider) MaxContextLength() int {
	if l, ok := r.next.(ContextLimiter); ok {
		return l.MaxContextLength()
	}
	return 0
}
