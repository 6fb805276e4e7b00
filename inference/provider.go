// Package inference drives multi-turn completions against a model provider:
// it submits history and tool schemas, executes requested tool calls, resubmits
// until the model answers, and keeps the conversation context bounded.
package inference

import (
	"context"

	"github.com/skosovsky/agentkit"
	"github.com/skosovsky/agentkit/chat"
)

// Request is one round-trip submitted to a provider.
type Request struct {
	Messages    []chat.Message
	Tools       []*agentkit.CompiledTool
	Temperature float64
	// ResponseFormat requests a structured JSON answer when set.
	ResponseFormat *ResponseFormat
}

// ResponseFormat describes the JSON schema of a structured answer.
type ResponseFormat struct {
	Name   string
	Schema map[string]any
	Strict bool
}

// Response is a provider reply. A reply with tool calls asks the engine to run
// them and resubmit; Text may be empty in that case.
type Response struct {
	Text      string
	ToolCalls []chat.ToolCall
}

// Provider is the transport to a model (OpenAI, Gemini, ...).
type Provider interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, req Request) (Response, error)

func (f ProviderFunc) Complete(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// ContextLimiter is implemented by providers that declare a maximum number of
// stored messages. Exceeding it triggers summarization after a completion.
type ContextLimiter interface {
	MaxContextLength() int
}
