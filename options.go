package agentkit

import (
	"context"
	"log/slog"
	"time"
)

// CompilerOption configures a Compiler.
type CompilerOption func(*compilerOptions)

type compilerOptions struct {
	maxDepth          int
	validateArguments bool
	recoverPanics     bool
	timeout           time.Duration
	maxConcurrency    int
	middlewares       []Middleware
	logger            *slog.Logger
	onBefore          func(context.Context, Call)
	onAfter           func(context.Context, Call, string, error, time.Duration)
}

// WithMaxDepth caps the nesting depth of parameter types. Deeper types fail compilation
// with ErrMaxDepth. Zero (the default) means no cap; self-referential types are always
// rejected with ErrRecursiveType.
func WithMaxDepth(n int) CompilerOption {
	return func(o *compilerOptions) {
		o.maxDepth = n
	}
}

// WithArgumentValidation validates incoming arguments against the compiled JSON schema
// before binding. Explicit nulls are dropped first, so null stays equivalent to absent.
func WithArgumentValidation() CompilerOption {
	return func(o *compilerOptions) {
		o.validateArguments = true
	}
}

// WithRecoverPanics enables panic recovery in Execute (returns SystemError). Enabled by default.
func WithRecoverPanics(enable bool) CompilerOption {
	return func(o *compilerOptions) {
		o.recoverPanics = enable
	}
}

// WithDefaultTimeout sets a deadline on the context handed to every entry operation.
// Zero (the default) leaves the context untouched; operations that ignore their
// context run to completion either way.
func WithDefaultTimeout(d time.Duration) CompilerOption {
	return func(o *compilerOptions) {
		o.timeout = d
	}
}

// WithMaxConcurrency limits concurrent tool executions across all completions sharing the Compiler.
// Pass 0 or negative to disable the semaphore (unlimited concurrency).
func WithMaxConcurrency(n int) CompilerOption {
	return func(o *compilerOptions) {
		o.maxConcurrency = n
	}
}

// WithMiddleware sets the initial middleware chain (see Compiler.Use).
func WithMiddleware(middlewares ...Middleware) CompilerOption {
	return func(o *compilerOptions) {
		o.middlewares = middlewares
	}
}

// WithLogger sets the logger used for compile diagnostics. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) CompilerOption {
	return func(o *compilerOptions) {
		o.logger = logger
	}
}

// WithOnBeforeExecute sets a hook called before each tool execution.
func WithOnBeforeExecute(fn func(context.Context, Call)) CompilerOption {
	return func(o *compilerOptions) {
		o.onBefore = fn
	}
}

// WithOnAfterExecute sets a hook called after each tool execution with its result text and error.
func WithOnAfterExecute(fn func(ctx context.Context, call Call, result string, err error, d time.Duration)) CompilerOption {
	return func(o *compilerOptions) {
		o.onAfter = fn
	}
}
