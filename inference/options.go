package inference

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/skosovsky/agentkit"
	"github.com/skosovsky/agentkit/conversation"
)

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	context          conversation.Context
	compiler         *agentkit.Compiler
	logger           *slog.Logger
	tracerProvider   trace.TracerProvider
	maxIterations    int
	maxContextLength int
	onSummarize      func(ctx context.Context, recap string)
}

// WithContext sets the conversation context. Defaults to a Long context.
func WithContext(c conversation.Context) Option {
	return func(o *clientOptions) {
		o.context = c
	}
}

// WithCompiler sets the tool compiler. Compiled schemas are cached per compiler,
// so clients should share one. Defaults to a new agentkit.Compiler.
func WithCompiler(c *agentkit.Compiler) Option {
	return func(o *clientOptions) {
		o.compiler = c
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider. Defaults to the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *clientOptions) {
		o.tracerProvider = tp
	}
}

// WithMaxIterations caps the number of provider round-trips in one completion.
// Exceeding it returns ErrMaxIterations. Zero (the default) means no cap.
func WithMaxIterations(n int) Option {
	return func(o *clientOptions) {
		o.maxIterations = n
	}
}

// WithMaxContextLength overrides the stored-message limit declared by the
// provider through ContextLimiter. Zero keeps the provider's value; a negative
// value disables summarization.
func WithMaxContextLength(n int) Option {
	return func(o *clientOptions) {
		o.maxContextLength = n
	}
}

// OnSummarize registers a hook that receives every recap produced by summarization.
func OnSummarize(fn func(ctx context.Context, recap string)) Option {
	return func(o *clientOptions) {
		o.onSummarize = fn
	}
}
