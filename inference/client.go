package inference

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/skosovsky/agentkit"
	"github.com/skosovsky/agentkit/chat"
	"github.com/skosovsky/agentkit/conversation"
)

const tracerName = "github.com/skosovsky/agentkit/inference"

// Client runs completions for one conversation against one provider.
// It implements agentkit.InferenceClient, so tools can receive it as a
// capability parameter and ask the model follow-up questions.
type Client struct {
	provider         Provider
	context          conversation.Context
	compiler         *agentkit.Compiler
	logger           *slog.Logger
	tracer           trace.Tracer
	maxIterations    int
	maxContextLength int
	onSummarize      func(ctx context.Context, recap string)
}

var _ agentkit.InferenceClient = (*Client)(nil)

// NewClient creates a client over provider.
func NewClient(provider Provider, opts ...Option) *Client {
	o := clientOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.context == nil {
		o.context = conversation.NewLong()
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.compiler == nil {
		o.compiler = agentkit.NewCompiler(agentkit.WithLogger(o.logger))
	}
	if o.tracerProvider == nil {
		o.tracerProvider = otel.GetTracerProvider()
	}
	limit := o.maxContextLength
	if limit == 0 {
		if l, ok := provider.(ContextLimiter); ok {
			limit = l.MaxContextLength()
		}
	}
	return &Client{
		provider:         provider,
		context:          o.context,
		compiler:         o.compiler,
		logger:           o.logger,
		tracer:           o.tracerProvider.Tracer(tracerName),
		maxIterations:    o.maxIterations,
		maxContextLength: limit,
		onSummarize:      o.onSummarize,
	}
}

// Context returns the conversation context the client reads and writes.
func (c *Client) Context() conversation.Context { return c.context }

// Provider returns the underlying provider.
func (c *Client) Provider() Provider { return c.provider }

// Compiler returns the compiler used for tools passed to completions.
func (c *Client) Compiler() *agentkit.Compiler { return c.compiler }

// MaxContextLength returns the stored-message limit that triggers
// summarization, or a value <= 0 when summarization is disabled.
func (c *Client) MaxContextLength() int { return c.maxContextLength }

// CompleteChat sends a text message and returns the model's final answer.
func (c *Client) CompleteChat(
	ctx context.Context,
	message string,
	opts agentkit.CompletionOptions,
	tools []agentkit.Tool,
	source agentkit.Agent,
) (string, error) {
	return c.Complete(ctx, chat.User(message), opts, tools, source)
}

// Complete sends an arbitrary user message (for example text plus images) and
// returns the model's final answer. Tools that fail to compile are logged and
// dropped; the remaining ones are offered to the model.
func (c *Client) Complete(
	ctx context.Context,
	message chat.Message,
	opts agentkit.CompletionOptions,
	tools []agentkit.Tool,
	source agentkit.Agent,
) (string, error) {
	compiled, _ := c.compiler.CompileAll(tools)
	answer, err := c.run(ctx, message, opts, compiled, source, nil)
	if err != nil {
		return "", err
	}
	c.summarizeIfNeeded(ctx)
	return answer, nil
}
